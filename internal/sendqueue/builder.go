// Package sendqueue implements the Send Queue component (spec §4.F):
// durable, crash-safe outbound delivery with per-message exponential
// backoff.
package sendqueue

import (
	"fmt"
	"strings"
	"time"

	"github.com/jcgurango/meremail/internal/mailparse"
	"github.com/jcgurango/meremail/internal/store"
)

// Sendable is an assembled outbound message, ready for SMTP submission
// (spec §4.F "Build").
type Sendable struct {
	From        mailparse.Address
	To          []mailparse.Address
	CC          []mailparse.Address
	BCC         []mailparse.Address
	Subject     string
	TextBody    string
	HTMLBody    *string
	Attachments []store.Attachment
}

// buildSendable assembles a Sendable from the stored message and its
// junctions, appending reply-quoted content when the message is a reply
// (spec §4.F "Build").
func buildSendable(st *store.Store, m *store.Message) (*Sendable, error) {
	sender, err := st.GetContact(m.SenderID)
	if err != nil {
		return nil, err
	}

	to, err := st.ListMessageContacts(m.ID, store.RoleTo)
	if err != nil {
		return nil, err
	}
	cc, err := st.ListMessageContacts(m.ID, store.RoleCC)
	if err != nil {
		return nil, err
	}
	bcc, err := st.ListMessageContacts(m.ID, store.RoleBCC)
	if err != nil {
		return nil, err
	}
	atts, err := st.ListMessageAttachments(m.ID)
	if err != nil {
		return nil, err
	}

	s := &Sendable{
		From:        mailparse.Address{Name: sender.Name, Email: sender.Email},
		To:          toAddresses(to),
		CC:          toAddresses(cc),
		BCC:         toAddresses(bcc),
		Subject:     m.Subject,
		TextBody:    m.ContentText,
		HTMLBody:    m.ContentHTML,
		Attachments: atts,
	}

	if m.InReplyTo != nil && *m.InReplyTo != "" {
		appendQuotedReply(st, s, m, *m.InReplyTo)
	}

	return s, nil
}

func toAddresses(contacts []store.Contact) []mailparse.Address {
	out := make([]mailparse.Address, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, mailparse.Address{Name: c.Name, Email: c.Email})
	}
	return out
}

// appendQuotedReply loads the referenced original message and appends
// quoted text and/or HTML, per spec §4.F's attribution-line rule.
func appendQuotedReply(st *store.Store, s *Sendable, m *store.Message, inReplyTo string) {
	original, err := st.FindMessageByMessageID(st.DB(), inReplyTo)
	if err != nil || original == nil {
		return
	}
	originalSender, err := st.GetContact(original.SenderID)
	if err != nil {
		return
	}

	sentAt := original.ReceivedAt
	if original.SentAt != nil {
		sentAt = *original.SentAt
	}
	attribution := fmt.Sprintf("On %s, %s <%s> wrote:", localizedDate(sentAt), originalSender.Name, originalSender.Email)

	s.TextBody = s.TextBody + "\n\n" + attribution + "\n" + quoteText(original.ContentText)

	switch {
	case s.HTMLBody != nil:
		merged := *s.HTMLBody + "\n" + blockquoteHTML(attribution, originalHTMLOrEscaped(original))
		s.HTMLBody = &merged
	case original.ContentHTML != nil:
		// The new message is text-only but the original had HTML: carry the
		// new text in a <div> so the quoted HTML still renders correctly
		// (spec §4.F).
		merged := "<div>" + nl2br(m.ContentText) + "</div>\n" + blockquoteHTML(attribution, *original.ContentHTML)
		s.HTMLBody = &merged
	}
}

func quoteText(text string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = "> " + l
	}
	return strings.Join(lines, "\n")
}

func blockquoteHTML(attribution, body string) string {
	return fmt.Sprintf("<p>%s</p>\n<blockquote>%s</blockquote>", htmlEscape(attribution), body)
}

func originalHTMLOrEscaped(m *store.Message) string {
	if m.ContentHTML != nil {
		return *m.ContentHTML
	}
	return nl2br(m.ContentText)
}

func nl2br(text string) string {
	return strings.ReplaceAll(htmlEscape(text), "\n", "<br>")
}

func htmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}

func localizedDate(t time.Time) string {
	return t.Format("January 2, 2006 at 3:04 PM")
}
