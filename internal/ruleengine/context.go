package ruleengine

import (
	"github.com/jcgurango/meremail/internal/store"
)

// buildContext assembles an EvalContext for one message, resolving its
// thread, recipients, and attachments from the store (spec §4.D "Leaf
// fields" are drawn from the message, its thread, and its participants).
func buildContext(st *store.Store, m *store.Message) (EvalContext, error) {
	ctx := EvalContext{
		EmailSubject: m.Subject,
		Content:      m.ContentText,
		Headers:      map[string]string(m.Headers),
	}

	sender, err := st.GetContact(m.SenderID)
	if err == nil {
		ctx.SenderName = sender.Name
		ctx.SenderEmail = sender.Email
	}

	if m.ThreadID != nil {
		if t, err := st.GetThread(*m.ThreadID); err == nil {
			ctx.ThreadSubject = t.Subject
		}
	}

	if to, err := st.ListMessageContacts(m.ID, store.RoleTo); err == nil {
		for _, c := range to {
			ctx.ToNames = append(ctx.ToNames, c.Name)
			ctx.ToEmails = append(ctx.ToEmails, c.Email)
		}
	}
	if cc, err := st.ListMessageContacts(m.ID, store.RoleCC); err == nil {
		for _, c := range cc {
			ctx.CCNames = append(ctx.CCNames, c.Name)
			ctx.CCEmails = append(ctx.CCEmails, c.Email)
		}
	}

	if atts, err := st.ListMessageAttachments(m.ID); err == nil {
		for _, a := range atts {
			ctx.AttachmentFilenames = append(ctx.AttachmentFilenames, a.Filename)
		}
	}

	return ctx, nil
}
