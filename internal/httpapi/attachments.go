package httpapi

import (
	"net/http"
	"os"

	"github.com/jcgurango/meremail/internal/errs"
)

// handleGetAttachment implements "GET /api/attachments/:id": streams the
// file from disk with its recorded MIME type (spec §6).
func (s *Server) handleGetAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	a, err := s.store.GetAttachment(id)
	if err != nil {
		writeErr(w, err)
		return
	}

	f, err := os.Open(a.FilePath)
	if err != nil {
		writeErr(w, errs.NotFound("handleGetAttachment", "attachment file missing"))
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeErr(w, errs.Storage("handleGetAttachment.stat", err))
		return
	}

	contentType := "application/octet-stream"
	if a.MimeType != nil && *a.MimeType != "" {
		contentType = *a.MimeType
	}
	w.Header().Set("Content-Type", contentType)

	disposition := "attachment"
	if a.IsInline {
		disposition = "inline"
	}
	w.Header().Set("Content-Disposition", disposition+`; filename="`+a.Filename+`"`)

	http.ServeContent(w, r, a.Filename, info.ModTime(), f)
}
