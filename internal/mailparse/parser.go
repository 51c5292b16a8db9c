// Package mailparse implements the Parser component (spec §4.B): turning a
// raw RFC 5322 byte stream plus source metadata into a canonical
// ImportableMessage, ready for the Importer.
package mailparse

import (
	"bytes"
	"io"
	"mime"
	"regexp"
	"strings"
	"time"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/jcgurango/meremail/internal/errs"
	"github.com/jcgurango/meremail/internal/mailnorm"
)

// Address is a parsed, normalized mailbox (spec §4.B address parsing).
type Address struct {
	Name  string
	Email string
}

// Attachment is one MIME part recognized as an attachment (spec §4.B).
type Attachment struct {
	Filename  string
	MimeType  string
	Size      int64
	ContentID string
	IsInline  bool
	Content   []byte
}

// ImportableMessage is the Parser's output (spec §4.B).
type ImportableMessage struct {
	MessageID    string
	InReplyTo    string
	References   []string
	From         Address
	To           []Address
	CC           []Address
	BCC          []Address
	Subject      string
	TextBody     string
	HTMLBody     *string
	SentAt       *time.Time
	IsRead       bool
	IsSent       bool
	IsJunk       bool
	DeliveredTo  string
	Attachments  []Attachment
	Headers      map[string]string
	Raw          []byte
	SourceFolder string
	UID          uint32
	Flags        []string
}

var (
	sentFolderRe = regexp.MustCompile(`(?i)^(sent|sent items|sent mail|\[gmail\]/sent mail)$`)
	junkFolderRe = regexp.MustCompile(`(?i)^(junk|spam|\[gmail\]/spam)$`)
)

// Parse converts raw RFC 5322 bytes into an ImportableMessage (spec §4.B).
// uid and flags carry the source server's IMAP UID and flag set through to
// the importer's eml archival headers (spec §4.C, §5).
func Parse(raw []byte, folder string, uid uint32, flags []string) (*ImportableMessage, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, errs.ParseErr("mailparse.Parse", err)
	}

	h := mr.Header
	msg := &ImportableMessage{
		Headers:      map[string]string{},
		Raw:          raw,
		SourceFolder: folder,
		UID:          uid,
		Flags:        append([]string(nil), flags...),
	}

	msg.Subject = mailnorm.NormalizeEmailSubject(decodeHeaderWord(headerFirst(&h, "Subject")))
	msg.MessageID, _ = h.MessageID()
	msg.InReplyTo = firstHeaderMessageID(&h, "In-Reply-To")
	msg.References = parseReferences(headerFirst(&h, "References"))

	if from, err := h.AddressList("From"); err == nil && len(from) > 0 {
		msg.From = toAddress(from[0])
	}
	if to, err := h.AddressList("To"); err == nil {
		msg.To = toAddresses(to)
	}
	if cc, err := h.AddressList("Cc"); err == nil {
		msg.CC = toAddresses(cc)
	}
	if bcc, err := h.AddressList("Bcc"); err == nil {
		msg.BCC = toAddresses(bcc)
	}
	if t, err := h.Date(); err == nil {
		utc := t.UTC()
		msg.SentAt = &utc
	}

	msg.DeliveredTo = firstNonEmptyHeader(&h, "X-Pm-Original-To", "X-Pm-Known-Alias", "Delivered-To")

	copyAllHeaders(&h, msg.Headers)

	msg.IsSent = sentFolderRe.MatchString(strings.TrimSpace(folder))
	msg.IsJunk = junkFolderRe.MatchString(strings.TrimSpace(folder))
	msg.IsRead = hasFlag(flags, `\Seen`) || msg.IsSent

	if err := readParts(mr, msg); err != nil {
		return nil, errs.ParseErr("mailparse.Parse.parts", err)
	}

	return msg, nil
}

func readParts(mr *mail.Reader, msg *ImportableMessage) error {
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A malformed part does not abort the whole message: reading
			// stops there, the parts already read are kept, and the
			// message is still returned.
			break
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			ct, _, _ := h.ContentType()
			body, _ := io.ReadAll(part.Body)
			switch {
			case strings.HasPrefix(ct, "text/html"):
				s := string(body)
				msg.HTMLBody = &s
			case strings.HasPrefix(ct, "text/plain"):
				if msg.TextBody != "" {
					msg.TextBody += "\n" + string(body)
				} else {
					msg.TextBody = string(body)
				}
			}
		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			ct, _, _ := h.ContentType()
			contentID := h.Get("Content-Id")
			contentID = strings.Trim(contentID, "<>")
			disposition, _, _ := h.ContentDisposition()

			body, _ := io.ReadAll(part.Body)
			msg.Attachments = append(msg.Attachments, Attachment{
				Filename:  filename,
				MimeType:  ct,
				Size:      int64(len(body)),
				ContentID: contentID,
				IsInline:  contentID != "" || strings.EqualFold(disposition, "inline"),
				Content:   body,
			})
		}
	}
	return nil
}

func toAddress(a *mail.Address) Address {
	name, email := mailnorm.NormalizeAddress(a.Name, a.Address)
	return Address{Name: name, Email: email}
}

func toAddresses(addrs []*mail.Address) []Address {
	out := make([]Address, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, toAddress(a))
	}
	return out
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if strings.EqualFold(f, want) {
			return true
		}
	}
	return false
}

func headerFirst(h *mail.Header, key string) string {
	return h.Get(key)
}

func firstNonEmptyHeader(h *mail.Header, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(h.Get(k)); v != "" {
			return extractAddr(v)
		}
	}
	return ""
}

func extractAddr(v string) string {
	if addrs, err := mail.ParseAddressList(v); err == nil && len(addrs) > 0 {
		return strings.ToLower(addrs[0].Address)
	}
	return strings.ToLower(strings.Trim(v, " <>"))
}

func firstHeaderMessageID(h *mail.Header, key string) string {
	v := strings.TrimSpace(h.Get(key))
	return strings.Trim(v, "<>")
}

func parseReferences(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	fields := strings.Fields(raw)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, strings.Trim(f, "<>"))
	}
	return out
}

func copyAllHeaders(h *mail.Header, dst map[string]string) {
	fields := h.Fields()
	for fields.Next() {
		dst[fields.Key()] = fields.Value()
	}
}

func decodeHeaderWord(s string) string {
	dec := new(mime.WordDecoder)
	if decoded, err := dec.DecodeHeader(s); err == nil {
		return decoded
	}
	return s
}
