package filter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/mail"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"github.com/mikey/invoice-analyzer/internal/config"
	"github.com/mikey/invoice-analyzer/internal/core"
	"github.com/mikey/invoice-analyzer/internal/whitelist"
	"go.uber.org/zap"
)

const analysisErrorHeader = "X-Invoice-Analysis-Error"

// Analyzer is the part of core.AnalysisService the filters need
type Analyzer interface {
	Analyze(ctx context.Context, emailID string, email *core.Email) (*core.Analysis, bool, error)
}

// MessageObserver records the outcome of each filtered message
type MessageObserver interface {
	ObserveSMTPMessage(status string)
}

// relayFunc delivers a message to the downstream MTA
type relayFunc func(sender string, recipients []string, data []byte) error

// SMTPFilter is an SMTP content filter that stamps invoice headers on each
// message and relays it to the next hop
type SMTPFilter struct {
	service  Analyzer
	logger   *zap.Logger
	cfg      config.SMTPConfig
	skip     *whitelist.Checker
	observer MessageObserver
	server   *smtp.Server
	relay    relayFunc
}

// NewSMTPFilter creates a new SMTP content filter. observer may be nil.
func NewSMTPFilter(
	service Analyzer,
	cfg config.SMTPConfig,
	skip *whitelist.Checker,
	observer MessageObserver,
	logger *zap.Logger,
) *SMTPFilter {
	if cfg.AnalysisTimeout <= 0 {
		cfg.AnalysisTimeout = 10 * time.Second
	}
	if skip == nil {
		skip = whitelist.NewChecker(nil, logger)
	}

	f := &SMTPFilter{
		service:  service,
		logger:   logger,
		cfg:      cfg,
		skip:     skip,
		observer: observer,
	}
	f.relay = f.sendToRelay
	return f
}

// Start starts the SMTP listener
func (f *SMTPFilter) Start() error {
	f.server = smtp.NewServer(&smtpBackend{filter: f})

	f.server.Addr = f.cfg.ListenAddress
	f.server.Domain = f.cfg.Domain
	f.server.ReadTimeout = 30 * time.Second
	f.server.WriteTimeout = 30 * time.Second
	f.server.MaxMessageBytes = 30 * 1024 * 1024 // 30MB
	f.server.MaxRecipients = 50
	f.server.AllowInsecureAuth = true

	f.logger.Info("SMTP filter starting",
		zap.String("address", f.cfg.ListenAddress),
		zap.Bool("relay_enabled", f.cfg.RelayEnabled))

	go func() {
		if err := f.server.ListenAndServe(); err != nil && !errors.Is(err, smtp.ErrServerClosed) {
			f.logger.Error("SMTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop stops the SMTP listener
func (f *SMTPFilter) Stop() error {
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// ProcessEmail analyzes an email under a generated id
func (f *SMTPFilter) ProcessEmail(ctx context.Context, email *core.Email) (*core.Analysis, error) {
	analysis, _, err := f.service.Analyze(ctx, uuid.NewString(), email)
	return analysis, err
}

func (f *SMTPFilter) observe(status string) {
	if f.observer != nil {
		f.observer.ObserveSMTPMessage(status)
	}
}

// filterMessage analyzes a raw message and returns the bytes to relay
func (f *SMTPFilter) filterMessage(sender string, recipients []string, raw []byte) ([]byte, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse email message: %w", err)
	}

	from := msg.Header.Get("From")
	if from == "" {
		from = sender
	}
	if f.skip.IsWhitelisted(from) || f.skip.IsWhitelisted(sender) {
		f.logger.Debug("Relaying message from skipped domain untouched", zap.String("from", from))
		f.observe("skipped")
		return raw, nil
	}

	body, err := extractTextFromMessage(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text content: %w", err)
	}

	rawSubject := msg.Header.Get("Subject")
	subject, err := decodeEncodedHeader(rawSubject)
	if err != nil {
		subject = rawSubject
	}
	if decodedFrom, err := decodeEncodedHeader(from); err == nil {
		from = decodedFrom
	}

	email := &core.Email{
		Subject: subject,
		From:    from,
		Body:    body,
		To:      recipients,
		Headers: msg.Header,
	}

	emailID := strings.Trim(msg.Header.Get("Message-ID"), "<> ")
	if emailID == "" {
		emailID = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(context.Background(), f.cfg.AnalysisTimeout)
	defer cancel()

	analysis, _, analysisErr := f.service.Analyze(ctx, emailID, email)

	var stamped bytes.Buffer
	if analysisErr != nil {
		f.logger.Error("Failed to analyze email",
			zap.Error(analysisErr),
			zap.String("email_id", emailID),
			zap.String("sender", from))
		writeHeader(&stamped, analysisErrorHeader, analysisErr.Error())
		f.observe("error")
	} else {
		f.writeAnalysisHeaders(&stamped, analysis)
		f.observe(strconv.FormatBool(analysis.ContainsInvoice))

		f.logger.Info("Processed email",
			zap.String("email_id", emailID),
			zap.String("from", from),
			zap.Bool("contains_invoice", analysis.ContainsInvoice),
			zap.Int("confidence", analysis.Confidence))
	}

	headerBlock, rest := splitMessage(raw)
	if analysisErr == nil && analysis.ContainsInvoice && f.cfg.ModifySubject && f.cfg.SubjectPrefix != "" &&
		!strings.HasPrefix(subject, f.cfg.SubjectPrefix) {
		headerBlock = replaceSubject(headerBlock, mime.QEncoding.Encode("utf-8", f.cfg.SubjectPrefix+subject))
	}

	stamped.Write(headerBlock)
	stamped.Write(rest)
	return stamped.Bytes(), nil
}

func (f *SMTPFilter) writeAnalysisHeaders(w *bytes.Buffer, analysis *core.Analysis) {
	writeHeader(w, f.cfg.InvoiceHeader, strconv.FormatBool(analysis.ContainsInvoice))
	writeHeader(w, f.cfg.ConfidenceHeader, strconv.Itoa(analysis.Confidence))
	if analysis.ContainsInvoice {
		writeHeader(w, f.cfg.DetailsHeader, formatDetails(analysis.InvoiceDetails))
	}
	writeHeader(w, f.cfg.TopicsHeader, strings.Join(analysis.Topics, ", "))
	writeHeader(w, f.cfg.UrgencyHeader, string(analysis.Urgency))
}

// formatDetails renders the invoice fields as a single header value
func formatDetails(details core.InvoiceDetails) string {
	amount := "none"
	if details.Amount != nil {
		amount = *details.Amount
	}
	return fmt.Sprintf("amount=%s; invoice=%s; vendor=%s", amount, details.InvoiceNumber, details.Vendor)
}

func writeHeader(w *bytes.Buffer, name, value string) {
	if name == "" {
		return
	}
	value = strings.NewReplacer("\r", " ", "\n", " ").Replace(value)
	fmt.Fprintf(w, "%s: %s\r\n", name, value)
}

// splitMessage separates the raw header block (including the blank line) from the body
func splitMessage(raw []byte) ([]byte, []byte) {
	if i := bytes.Index(raw, []byte("\r\n\r\n")); i >= 0 {
		return raw[:i+4], raw[i+4:]
	}
	if i := bytes.Index(raw, []byte("\n\n")); i >= 0 {
		return raw[:i+2], raw[i+2:]
	}
	return raw, nil
}

// replaceSubject swaps the Subject header, folded continuation lines
// included, for a new value. A Subject is added when none exists.
func replaceSubject(headerBlock []byte, subject string) []byte {
	lines := bytes.SplitAfter(headerBlock, []byte("\n"))
	var out bytes.Buffer
	replaced := false
	inSubject := false

	for _, line := range lines {
		if inSubject && len(line) > 0 && (line[0] == ' ' || line[0] == '\t') {
			continue
		}
		inSubject = false

		if len(line) >= 8 && strings.EqualFold(string(line[:8]), "subject:") {
			fmt.Fprintf(&out, "Subject: %s\r\n", subject)
			replaced = true
			inSubject = true
			continue
		}
		if !replaced && (string(line) == "\r\n" || string(line) == "\n") {
			fmt.Fprintf(&out, "Subject: %s\r\n", subject)
			replaced = true
		}
		out.Write(line)
	}

	return out.Bytes()
}

// sendToRelay sends the processed email to the downstream MTA
func (f *SMTPFilter) sendToRelay(sender string, recipients []string, emailData []byte) error {
	relayAddr := net.JoinHostPort(f.cfg.RelayAddress, strconv.Itoa(f.cfg.RelayPort))

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", relayAddr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to relay: %w", err)
	}

	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}

	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	recipientOK := false
	for _, recipient := range recipients {
		if err := c.Rcpt(recipient, nil); err != nil {
			f.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", recipient),
				zap.Error(err))
			continue
		}
		recipientOK = true
	}

	if !recipientOK {
		return errors.New("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}

	if _, err := wc.Write(emailData); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send email data: %w", err)
	}

	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	// The message is already accepted at this point
	if err := c.Quit(); err != nil {
		f.logger.Warn("QUIT command failed", zap.Error(err))
	}

	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	filter *SMTPFilter
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{filter: b.filter}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	filter     *SMTPFilter
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = nil
}

// Mail sets the sender address
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt adds a recipient
func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data filters the message and hands it to the relay
func (s *smtpSession) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		s.filter.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	stamped, err := s.filter.filterMessage(s.sender, s.recipients, raw)
	if err != nil {
		// Unparseable mail is still delivered
		s.filter.logger.Warn("Relaying message without analysis", zap.Error(err))
		var buf bytes.Buffer
		writeHeader(&buf, analysisErrorHeader, err.Error())
		buf.Write(raw)
		stamped = buf.Bytes()
		s.filter.observe("error")
	}

	if !s.filter.cfg.RelayEnabled {
		s.filter.logger.Warn("Relay disabled, message not forwarded", zap.String("sender", s.sender))
		return nil
	}

	if err := s.filter.relay(s.sender, s.recipients, stamped); err != nil {
		s.filter.logger.Error("Failed to relay email",
			zap.Error(err),
			zap.String("sender", s.sender))
		return err
	}

	return nil
}

// Logout handles SMTP logout
func (s *smtpSession) Logout() error {
	return nil
}
