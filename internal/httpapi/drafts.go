package httpapi

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/jcgurango/meremail/internal/store"
)

type addressInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type createDraftRequest struct {
	ThreadID    *uint          `json:"threadId"`
	Subject     string         `json:"subject"`
	ContentText string         `json:"contentText"`
	ContentHTML *string        `json:"contentHtml"`
	InReplyTo   *string        `json:"inReplyTo"`
	To          []addressInput `json:"to"`
	CC          []addressInput `json:"cc"`
	BCC         []addressInput `json:"bcc"`
}

// handleCreateDraft implements "POST /api/drafts" (spec §6).
func (s *Server) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	var req createDraftRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}

	sender, err := s.store.GetDefaultIdentity()
	if err != nil {
		writeErr(w, err)
		return
	}

	var threadID *uint
	if req.ThreadID != nil {
		if _, err := s.store.GetThread(*req.ThreadID); err != nil {
			writeErr(w, err)
			return
		}
		threadID = req.ThreadID
	}

	m := &store.Message{
		ThreadID:    threadID,
		SenderID:    sender.ID,
		Subject:     req.Subject,
		ContentText: req.ContentText,
		ContentHTML: req.ContentHTML,
		InReplyTo:   req.InReplyTo,
		Folder:      "drafts",
	}
	if err := s.store.CreateDraft(m); err != nil {
		writeErr(w, err)
		return
	}

	if err := s.attachRecipients(m.ID, req.To, req.CC, req.BCC); err != nil {
		writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) attachRecipients(messageID uint, to, cc, bcc []addressInput) error {
	groups := []struct {
		addrs []addressInput
		role  store.MessageContactRole
	}{
		{to, store.RoleTo},
		{cc, store.RoleCC},
		{bcc, store.RoleBCC},
	}
	for _, g := range groups {
		for _, a := range g.addrs {
			contact, _, err := s.store.UpsertContact(s.store.DB(), a.Email, a.Name, store.BucketUnsorted)
			if err != nil {
				return err
			}
			if err := s.store.AddMessageContact(s.store.DB(), messageID, contact.ID, g.role); err != nil {
				return err
			}
		}
	}
	return nil
}

type updateDraftRequest struct {
	Subject     string  `json:"subject"`
	ContentText string  `json:"contentText"`
	ContentHTML *string `json:"contentHtml"`
}

// handleUpdateDraft implements "PATCH /api/drafts/:id".
func (s *Server) handleUpdateDraft(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	var req updateDraftRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if err := s.store.UpdateDraft(id, req.Subject, req.ContentText, req.ContentHTML); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleDeleteDraft implements "DELETE /api/drafts/:id".
func (s *Server) handleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := s.store.DeleteDraft(id); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleSendDraft implements "POST /api/drafts/:id/send": transition
// draft → queued. Delivery itself happens asynchronously in the send
// queue's tick loop (spec §4.F).
//
// A standalone draft (threadId == nil, spec §3 Message) acquires a thread
// here, at the moment it stops being "never sent" — threadId is only
// allowed to be null for drafts that have never left draft status.
func (s *Server) handleSendDraft(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}

	m, err := s.store.GetMessage(id)
	if err != nil {
		writeErr(w, err)
		return
	}

	if m.ThreadID == nil {
		if err := s.store.Tx(func(tx *gorm.DB) error {
			th, err := s.store.CreateThread(tx, m.Subject, m.SenderID)
			if err != nil {
				return err
			}
			return s.store.SetMessageThread(tx, m.ID, th.ID)
		}); err != nil {
			writeErr(w, err)
			return
		}
	}

	if err := s.store.TransitionDraftToQueued(id); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
