package httpapi

import (
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/jcgurango/meremail/internal/errs"
	"github.com/jcgurango/meremail/internal/store"
)

// handleUpload implements "POST /api/uploads": a multipart file upload
// persisted under uploads/<uuid><ext>, optionally associated with a draft
// by passing a draftId form field (spec §6 "Persisted layout").
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.cfg.MaxAttachmentSize); err != nil {
		writeErr(w, errs.Validation("handleUpload", "upload too large or malformed"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeErr(w, errs.Validation("handleUpload", "missing file field"))
		return
	}
	defer file.Close()

	if header.Size > s.cfg.MaxAttachmentSize {
		writeErr(w, errs.Validation("handleUpload", "file exceeds maximum attachment size"))
		return
	}

	att, err := s.saveUpload(file, header)
	if err != nil {
		writeErr(w, err)
		return
	}

	if draftIDStr := r.FormValue("draftId"); draftIDStr != "" {
		draftID, err := strconv.ParseUint(draftIDStr, 10, 32)
		if err != nil {
			writeErr(w, errs.Validation("handleUpload", "invalid draftId"))
			return
		}
		if err := s.store.SetAttachmentMessage(att.ID, uint(draftID)); err != nil {
			writeErr(w, err)
			return
		}
		att.MessageID = uint(draftID)
	}

	writeJSON(w, http.StatusCreated, att)
}

func (s *Server) saveUpload(file multipart.File, header *multipart.FileHeader) (*store.Attachment, error) {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, errs.Storage("saveUpload.mkdir", err)
	}

	ext := filepath.Ext(header.Filename)
	name := uuid.NewString() + ext
	dest := filepath.Join(s.uploadDir, name)

	out, err := os.Create(dest)
	if err != nil {
		return nil, errs.Storage("saveUpload.create", err)
	}
	defer out.Close()

	n, err := io.Copy(out, file)
	if err != nil {
		return nil, errs.Storage("saveUpload.copy", err)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	a := &store.Attachment{
		Filename: strings.TrimSpace(header.Filename),
		MimeType: &contentType,
		Size:     &n,
		FilePath: dest,
	}
	if err := s.store.InsertAttachment(s.store.DB(), a); err != nil {
		return nil, err
	}
	return a, nil
}
