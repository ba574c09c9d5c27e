package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikey/invoice-analyzer/internal/core"
	"go.uber.org/zap"
)

var (
	errMissingEmailID      = errors.New("emailId is required")
	errMissingEmailContent = errors.New("emailContent is required")
)

// analyzeRequest leaves EmailID nil when the field is absent; an empty id is accepted
type analyzeRequest struct {
	EmailID      *string     `json:"emailId"`
	EmailContent *core.Email `json:"emailContent"`
}

type analyzeResponse struct {
	Success  bool           `json:"success"`
	Analysis *core.Analysis `json:"analysis"`
	Cached   bool           `json:"cached"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func respondError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{
		Success: false,
		Error:   err.Error(),
	})
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Warn("Invalid analyze request", zap.Error(err))
		respondError(c, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.EmailContent == nil {
		respondError(c, errMissingEmailContent)
		return
	}
	if req.EmailID == nil {
		respondError(c, errMissingEmailID)
		return
	}

	emailID := *req.EmailID
	analysis, cached, err := s.analyzer.Analyze(c.Request.Context(), emailID, req.EmailContent)
	if err != nil {
		s.logger.Error("Analysis failed", zap.String("email_id", emailID), zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, analyzeResponse{
		Success:  true,
		Analysis: analysis,
		Cached:   cached,
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleDashboard(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", dashboardHTML)
}
