package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/jcgurango/meremail/internal/config"
	"github.com/jcgurango/meremail/internal/errs"
	"github.com/jcgurango/meremail/internal/importer"
	"github.com/jcgurango/meremail/internal/logging"
	"github.com/jcgurango/meremail/internal/ruleengine"
	"github.com/jcgurango/meremail/internal/store"
)

// Server is the thin JSON translation layer over Store/Importer/
// RuleEngine (spec §6).
type Server struct {
	store     *store.Store
	rules     *ruleengine.Engine
	imp       *importer.Importer
	cfg       config.Config
	log       logging.Logger
	uploadDir string
}

func New(st *store.Store, rules *ruleengine.Engine, imp *importer.Importer, cfg config.Config) *Server {
	return &Server{
		store:     st,
		rules:     rules,
		imp:       imp,
		cfg:       cfg,
		log:       logging.Logger{Name: "httpapi"},
		uploadDir: cfg.DataRoot + "/uploads",
	}
}

func (s *Server) Handler() http.Handler {
	return s.router()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeErr translates a component error to an HTTP status using its Kind
// (spec §7 "the HTTP handlers translate internal errors to appropriate
// status codes and never leak transport errors to the client").
func writeErr(w http.ResponseWriter, err error) {
	switch errs.KindOf(err) {
	case errs.KindNotFound:
		writeError(w, http.StatusNotFound, "not found")
	case errs.KindValidation:
		writeError(w, http.StatusBadRequest, "invalid request")
	case errs.KindAuth:
		writeError(w, http.StatusUnauthorized, "not authenticated")
	case errs.KindConflict:
		writeError(w, http.StatusConflict, "conflict")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return errs.Validation("decodeJSON", "malformed request body")
	}
	return nil
}
