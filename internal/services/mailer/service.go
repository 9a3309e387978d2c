package mailer

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
)

// sendFunc abstracts smtp.SendMail for tests.
type sendFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// Service emails the lead digest when a run completes. Disabled unless
// the digest config names an SMTP host and recipients.
type Service struct {
	cfg    *common.DigestConfig
	export interfaces.ExportService
	logger arbor.ILogger
	send   sendFunc
}

// NewService creates the digest mailer.
func NewService(cfg *common.DigestConfig, export interfaces.ExportService, logger arbor.ILogger) *Service {
	return &Service{
		cfg:    cfg,
		export: export,
		logger: logger,
		send:   smtp.SendMail,
	}
}

// Enabled reports whether the digest is configured to send.
func (s *Service) Enabled() bool {
	return s.cfg.Enabled && s.cfg.SMTPHost != "" && s.cfg.From != "" && len(s.cfg.To) > 0
}

// SendDigest renders the run digest and mails it to the configured
// recipients. Returns without error when the digest is disabled.
func (s *Service) SendDigest(ctx context.Context, run *models.Run) error {
	if !s.Enabled() {
		return nil
	}
	if run.Result == nil {
		return fmt.Errorf("run %s has no result to send", run.ID)
	}

	subject := fmt.Sprintf("Lead report: %d leads for %q", len(run.Result.Leads), truncateProduct(run.Request.Product))

	textBody := s.export.RenderMarkdown(run.Result)
	htmlBody, err := s.export.RenderHTML(run.Result)
	if err != nil {
		return fmt.Errorf("failed to render digest html: %w", err)
	}

	var attachments []attachment
	if s.cfg.AttachPDF {
		pdfBody, err := s.export.RenderPDF(run.Result)
		if err != nil {
			s.logger.Warn().Err(err).Str("run_id", run.ID).Msg("Failed to render PDF attachment, sending without it")
		} else {
			attachments = append(attachments, attachment{
				Filename:    fmt.Sprintf("leads-%s.pdf", run.ID),
				ContentType: "application/pdf",
				Content:     pdfBody,
			})
		}
	}

	msg := buildMessage(s.cfg.From, s.cfg.To, subject, textBody, string(htmlBody), attachments)

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)
	}

	if err := s.send(addr, auth, s.cfg.From, s.cfg.To, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send digest: %w", err)
	}

	s.logger.Info().
		Str("run_id", run.ID).
		Int("recipients", len(s.cfg.To)).
		Bool("pdf_attached", len(attachments) > 0).
		Msg("Digest sent")

	return nil
}

type attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// buildMessage assembles a multipart/mixed MIME message with an
// alternative text/html body and optional attachments.
func buildMessage(from string, to []string, subject, textBody, htmlBody string, attachments []attachment) string {
	mixedBoundary := generateBoundary("mixed")
	altBoundary := generateBoundary("alt")

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(to, ", ")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString(fmt.Sprintf("Content-Type: multipart/mixed; boundary=\"%s\"\r\n", mixedBoundary))
	msg.WriteString("\r\n")

	msg.WriteString(fmt.Sprintf("--%s\r\n", mixedBoundary))
	msg.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=\"%s\"\r\n", altBoundary))
	msg.WriteString("\r\n")

	// Plain text part. Base64 keeps lines inside the RFC 5322 limit.
	msg.WriteString(fmt.Sprintf("--%s\r\n", altBoundary))
	msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	msg.WriteString("Content-Transfer-Encoding: base64\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(encodeBase64WithLineBreaks([]byte(textBody)))
	msg.WriteString("\r\n")

	// HTML part
	msg.WriteString(fmt.Sprintf("--%s\r\n", altBoundary))
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("Content-Transfer-Encoding: base64\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(encodeBase64WithLineBreaks([]byte(htmlBody)))
	msg.WriteString("\r\n")

	msg.WriteString(fmt.Sprintf("--%s--\r\n", altBoundary))

	for _, att := range attachments {
		msg.WriteString(fmt.Sprintf("--%s\r\n", mixedBoundary))
		msg.WriteString(fmt.Sprintf("Content-Type: %s; name=\"%s\"\r\n", att.ContentType, att.Filename))
		msg.WriteString("Content-Transfer-Encoding: base64\r\n")
		msg.WriteString(fmt.Sprintf("Content-Disposition: attachment; filename=\"%s\"\r\n", att.Filename))
		msg.WriteString("\r\n")
		msg.WriteString(encodeBase64WithLineBreaks(att.Content))
		msg.WriteString("\r\n")
	}

	msg.WriteString(fmt.Sprintf("--%s--\r\n", mixedBoundary))
	return msg.String()
}

// encodeBase64WithLineBreaks encodes content in base64 wrapped at 76
// characters per RFC 2045.
func encodeBase64WithLineBreaks(content []byte) string {
	encoded := base64.StdEncoding.EncodeToString(content)

	var b strings.Builder
	for len(encoded) > 76 {
		b.WriteString(encoded[:76])
		b.WriteString("\r\n")
		encoded = encoded[76:]
	}
	b.WriteString(encoded)
	return b.String()
}

func generateBoundary(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

func truncateProduct(product string) string {
	product = strings.TrimSpace(product)
	if len(product) <= 60 {
		return product
	}
	return product[:57] + "..."
}
