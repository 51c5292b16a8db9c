package httpapi

import (
	"net/http"

	"github.com/jcgurango/meremail/internal/store"
)

// handleFeed implements "GET /api/feed": threads created by feed-bucket
// contacts (spec GLOSSARY "feed").
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	threads, err := s.store.ListThreadsPage(store.BucketFeed, limit, offset)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, threads)
}

// handleSetAsideList implements "GET /api/set-aside".
func (s *Server) handleSetAsideList(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	threads, err := s.store.ListSetAsideThreads(limit, offset)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, threads)
}

// handleSearch implements "GET /api/search?q=&limit=" over the FTS5
// indexes (spec §3, §6).
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit := queryInt(r, "limit", 50)
	if query == "" {
		writeJSON(w, http.StatusOK, []store.SearchResult{})
		return
	}
	results, err := s.store.Search(query, limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}
