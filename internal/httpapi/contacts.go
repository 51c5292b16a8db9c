package httpapi

import (
	"net/http"

	"github.com/jcgurango/meremail/internal/store"
)

// handleListContacts implements "GET /api/contacts?bucket=".
func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	bucket := store.Bucket(r.URL.Query().Get("bucket"))
	contacts, err := s.store.ListContacts(bucket)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contacts)
}

// handleGetContact implements "GET /api/contacts/:id".
func (s *Server) handleGetContact(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	c, err := s.store.GetContact(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type updateContactRequest struct {
	Name   string       `json:"name"`
	Bucket store.Bucket `json:"bucket"`
}

// handleUpdateContact implements "PATCH /api/contacts/:id".
func (s *Server) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	var req updateContactRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if err := s.store.UpdateContact(id, req.Name, req.Bucket); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleSetDefaultIdentity implements
// "POST /api/contacts/:id/set-default-identity" (spec §3 invariant 5).
func (s *Server) handleSetDefaultIdentity(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := s.store.SetDefaultIdentity(id); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
