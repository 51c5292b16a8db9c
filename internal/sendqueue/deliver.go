package sendqueue

import (
	"bytes"
	"crypto/rand"
	"crypto/tls"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"os"
	"strings"
	"time"

	gosasl "github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"
	"golang.org/x/net/idna"

	"github.com/jcgurango/meremail/internal/config"
	"github.com/jcgurango/meremail/internal/mailparse"
	"github.com/jcgurango/meremail/internal/store"
)

// localDomain derives the Message-ID domain from the configured SMTP
// username, falling back to meremail.local (spec §4.F "Deliver").
func localDomain(cfg config.Config) string {
	at := strings.LastIndexByte(cfg.SMTPUser, '@')
	if at < 0 || at == len(cfg.SMTPUser)-1 {
		return "meremail.local"
	}
	domain := cfg.SMTPUser[at+1:]
	ascii, err := idna.ToASCII(domain)
	if err != nil || ascii == "" {
		return "meremail.local"
	}
	return ascii
}

func generateMessageID(cfg config.Config) string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// A CSPRNG failure is effectively unreachable; fall back to
		// something still unique-enough rather than blocking delivery.
		for i := range buf {
			buf[i] = byte(os.Getpid() + i)
		}
	}
	return fmt.Sprintf("<%s@%s>", hex.EncodeToString(buf), localDomain(cfg))
}

func recipientList(s *Sendable) []string {
	out := make([]string, 0, len(s.To)+len(s.CC)+len(s.BCC))
	for _, a := range s.To {
		out = append(out, a.Email)
	}
	for _, a := range s.CC {
		out = append(out, a.Email)
	}
	for _, a := range s.BCC {
		out = append(out, a.Email)
	}
	return out
}

// deliver submits s to the upstream SMTP relay and returns the message-id
// used (spec §4.F "Deliver").
func deliver(cfg config.Config, s *Sendable) (string, error) {
	messageID := generateMessageID(cfg)

	raw, err := encodeMIME(s, messageID)
	if err != nil {
		return "", err
	}

	addr := fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort)
	auth := gosasl.NewPlainClient("", cfg.SMTPUser, cfg.SMTPPass)

	var c *gosmtp.Client
	if cfg.SMTPSecure {
		c, err = gosmtp.DialTLS(addr, &tls.Config{ServerName: cfg.SMTPHost})
	} else {
		c, err = gosmtp.Dial(addr)
	}
	if err != nil {
		return "", fmt.Errorf("sendqueue: dial %s: %w", addr, err)
	}
	defer c.Close()

	if err := c.Auth(auth); err != nil {
		return "", fmt.Errorf("sendqueue: auth: %w", err)
	}

	if err := c.Mail(s.From.Email, nil); err != nil {
		return "", fmt.Errorf("sendqueue: mail from: %w", err)
	}
	for _, rcpt := range recipientList(s) {
		if err := c.Rcpt(rcpt, nil); err != nil {
			return "", fmt.Errorf("sendqueue: rcpt to %s: %w", rcpt, err)
		}
	}

	wc, err := c.Data()
	if err != nil {
		return "", fmt.Errorf("sendqueue: data: %w", err)
	}
	if _, err := wc.Write(raw); err != nil {
		wc.Close()
		return "", fmt.Errorf("sendqueue: write body: %w", err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("sendqueue: finalize body: %w", err)
	}

	return messageID, nil
}

// encodeMIME renders s as an RFC 5322 message: a multipart/mixed envelope
// carrying the body (a single text/plain part, or a text/html alternative
// when an HTML body is present) plus one part per attachment.
func encodeMIME(s *Sendable, messageID string) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	writeAddressHeader(&buf, "From", []mailparse.Address{s.From})
	writeAddressHeader(&buf, "To", s.To)
	if len(s.CC) > 0 {
		writeAddressHeader(&buf, "Cc", s.CC)
	}
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", s.Subject))
	fmt.Fprintf(&buf, "Message-Id: %s\r\n", messageID)
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mw.Boundary())

	if err := writeBodyParts(mw, s); err != nil {
		return nil, err
	}
	for _, a := range s.Attachments {
		// An individual unreadable attachment doesn't abort the send; the
		// recipient gets the message body without it.
		_ = writeAttachmentPart(mw, a)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func writeAddressHeader(buf *bytes.Buffer, header string, addrs []mailparse.Address) {
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a.Name != "" {
			parts = append(parts, fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", a.Name), a.Email))
		} else {
			parts = append(parts, a.Email)
		}
	}
	fmt.Fprintf(buf, "%s: %s\r\n", header, strings.Join(parts, ", "))
}

func writeBodyParts(mw *multipart.Writer, s *Sendable) error {
	if s.HTMLBody == nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Type", "text/plain; charset=utf-8")
		h.Set("Content-Transfer-Encoding", "quoted-printable")
		part, err := mw.CreatePart(h)
		if err != nil {
			return err
		}
		qp := quotedprintable.NewWriter(part)
		if _, err := qp.Write([]byte(s.TextBody)); err != nil {
			return err
		}
		return qp.Close()
	}

	var altBuf bytes.Buffer
	altMw := multipart.NewWriter(&altBuf)

	textH := make(textproto.MIMEHeader)
	textH.Set("Content-Type", "text/plain; charset=utf-8")
	textPart, err := altMw.CreatePart(textH)
	if err != nil {
		return err
	}
	if _, err := textPart.Write([]byte(s.TextBody)); err != nil {
		return err
	}

	htmlH := make(textproto.MIMEHeader)
	htmlH.Set("Content-Type", "text/html; charset=utf-8")
	htmlPart, err := altMw.CreatePart(htmlH)
	if err != nil {
		return err
	}
	if _, err := htmlPart.Write([]byte(*s.HTMLBody)); err != nil {
		return err
	}
	if err := altMw.Close(); err != nil {
		return err
	}

	outerH := make(textproto.MIMEHeader)
	outerH.Set("Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", altMw.Boundary()))
	outerPart, err := mw.CreatePart(outerH)
	if err != nil {
		return err
	}
	_, err = outerPart.Write(altBuf.Bytes())
	return err
}

func writeAttachmentPart(mw *multipart.Writer, a store.Attachment) error {
	content, err := os.ReadFile(a.FilePath)
	if err != nil {
		return err
	}

	ct := "application/octet-stream"
	if a.MimeType != nil && *a.MimeType != "" {
		ct = *a.MimeType
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Type", fmt.Sprintf("%s; name=%q", ct, a.Filename))
	h.Set("Content-Transfer-Encoding", "base64")
	disposition := "attachment"
	if a.IsInline {
		disposition = "inline"
	}
	h.Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, a.Filename))
	if a.ContentID != nil && *a.ContentID != "" {
		h.Set("Content-Id", "<"+*a.ContentID+">")
	}

	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}

	encoder := base64.NewEncoder(base64.StdEncoding, part)
	if _, err := encoder.Write(content); err != nil {
		return err
	}
	return encoder.Close()
}
