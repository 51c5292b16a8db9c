package httpapi

import (
	"net/http"
	"time"

	"github.com/jcgurango/meremail/internal/store"
)

// handleListThreads implements "GET /api/threads?bucket=&limit=&offset=".
func (s *Server) handleListThreads(w http.ResponseWriter, r *http.Request) {
	bucket := store.Bucket(r.URL.Query().Get("bucket"))
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	threads, err := s.store.ListThreadsPage(bucket, limit, offset)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, threads)
}

type threadDetail struct {
	Thread   store.Thread    `json:"thread"`
	Messages []store.Message `json:"messages"`
}

// handleGetThread implements "GET /api/threads/:id"; its side effect marks
// every contained message read (spec §6).
func (s *Server) handleGetThread(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}

	thread, err := s.store.GetThread(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	messages, err := s.store.ListThreadMessages(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := s.store.MarkThreadRead(id); err != nil {
		writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, threadDetail{Thread: *thread, Messages: messages})
}

type replyLaterRequest struct {
	Set bool `json:"set"`
}

// handleSetReplyLater implements "PATCH /api/threads/:id/reply-later".
func (s *Server) handleSetReplyLater(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	var req replyLaterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}

	var at *time.Time
	if req.Set {
		now := time.Now().UTC()
		at = &now
	}
	if err := s.store.SetThreadReplyLater(id, at); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type setAsideRequest struct {
	Set bool `json:"set"`
}

// handleSetSetAside implements "PATCH /api/threads/:id/set-aside".
func (s *Server) handleSetSetAside(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	var req setAsideRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}

	var at *time.Time
	if req.Set {
		now := time.Now().UTC()
		at = &now
	}
	if err := s.store.SetThreadSetAside(id, at); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
