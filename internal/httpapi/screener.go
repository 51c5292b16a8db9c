package httpapi

import (
	"net/http"

	"github.com/jcgurango/meremail/internal/store"
)

type screenerRequest struct {
	Bucket store.Bucket `json:"bucket"`
}

// handleScreener implements "PATCH /api/screener/:id": an explicit,
// user-driven bucket assignment, so it always overrides any existing
// bucket (spec §4.C "implicit trust... only applies when the recipient
// has no bucket" — the screener is the explicit counterpart).
func (s *Server) handleScreener(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	var req screenerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if err := s.store.SetBucket(s.store.DB(), id, req.Bucket, true); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type markReadRequest struct {
	IDs []uint `json:"ids"`
}

// handleMarkRead implements "POST /api/emails/mark-read" (bulk).
func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	var req markReadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if err := s.store.BulkMarkRead(req.IDs); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleUnreadCounts implements "GET /api/unread-counts".
func (s *Server) handleUnreadCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.UnreadCounts()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// handlePendingNotifications implements "GET /api/notifications/pending".
func (s *Server) handlePendingNotifications(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	msgs, err := s.store.ListPendingNotifications(limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}
