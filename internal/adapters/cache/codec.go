package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mikey/invoice-analyzer/internal/core"
)

// timestampLayout is used for the SQL stores. It is fixed width, so UTC
// values compare correctly as text.
const timestampLayout = "2006-01-02 15:04:05.000000"

// timestampParseLayout also accepts rows written without a fractional part
const timestampParseLayout = "2006-01-02 15:04:05.999999999"

func encodeAnalysis(analysis *core.Analysis) (string, error) {
	data, err := json.Marshal(analysis)
	if err != nil {
		return "", fmt.Errorf("failed to encode analysis: %w", err)
	}
	return string(data), nil
}

func decodeAnalysis(data string) (*core.Analysis, error) {
	var analysis core.Analysis
	if err := json.Unmarshal([]byte(data), &analysis); err != nil {
		return nil, fmt.Errorf("failed to decode cached analysis: %w", err)
	}
	return &analysis, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(timestampParseLayout, s, time.UTC)
}

// nullableTimestamp maps a zero time to SQL NULL
func nullableTimestamp(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTimestamp(t), Valid: true}
}

// scanEntry assembles a cache entry from its stored columns
func scanEntry(emailID, analysisJSON, createdAt string, expiresAt sql.NullString) (*core.CacheEntry, error) {
	analysis, err := decodeAnalysis(analysisJSON)
	if err != nil {
		return nil, err
	}

	entry := &core.CacheEntry{EmailID: emailID, Analysis: analysis}
	if entry.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at timestamp: %w", err)
	}
	if expiresAt.Valid {
		if entry.ExpiresAt, err = parseTimestamp(expiresAt.String); err != nil {
			return nil, fmt.Errorf("failed to parse expires_at timestamp: %w", err)
		}
	}
	return entry, nil
}
