package httpapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// router wires every endpoint from spec §6 onto a Go 1.22+ method+pattern
// ServeMux. Every route except /api/auth/login and GET /metrics is gated by
// requireAuth.
func (s *Server) router() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", s.requireAuth(s.handleLogout))
	mux.HandleFunc("GET /api/auth/me", s.requireAuth(s.handleMe))

	mux.HandleFunc("GET /api/threads", s.requireAuth(s.handleListThreads))
	mux.HandleFunc("GET /api/threads/{id}", s.requireAuth(s.handleGetThread))
	mux.HandleFunc("PATCH /api/threads/{id}/reply-later", s.requireAuth(s.handleSetReplyLater))
	mux.HandleFunc("PATCH /api/threads/{id}/set-aside", s.requireAuth(s.handleSetSetAside))

	mux.HandleFunc("POST /api/drafts", s.requireAuth(s.handleCreateDraft))
	mux.HandleFunc("PATCH /api/drafts/{id}", s.requireAuth(s.handleUpdateDraft))
	mux.HandleFunc("DELETE /api/drafts/{id}", s.requireAuth(s.handleDeleteDraft))
	mux.HandleFunc("POST /api/drafts/{id}/send", s.requireAuth(s.handleSendDraft))

	mux.HandleFunc("GET /api/contacts", s.requireAuth(s.handleListContacts))
	mux.HandleFunc("GET /api/contacts/{id}", s.requireAuth(s.handleGetContact))
	mux.HandleFunc("PATCH /api/contacts/{id}", s.requireAuth(s.handleUpdateContact))
	mux.HandleFunc("POST /api/contacts/{id}/set-default-identity", s.requireAuth(s.handleSetDefaultIdentity))

	mux.HandleFunc("PATCH /api/screener/{id}", s.requireAuth(s.handleScreener))
	mux.HandleFunc("POST /api/emails/mark-read", s.requireAuth(s.handleMarkRead))
	mux.HandleFunc("GET /api/unread-counts", s.requireAuth(s.handleUnreadCounts))
	mux.HandleFunc("GET /api/notifications/pending", s.requireAuth(s.handlePendingNotifications))

	mux.HandleFunc("GET /api/feed", s.requireAuth(s.handleFeed))
	mux.HandleFunc("GET /api/set-aside", s.requireAuth(s.handleSetAsideList))
	mux.HandleFunc("GET /api/search", s.requireAuth(s.handleSearch))

	mux.HandleFunc("GET /api/rules", s.requireAuth(s.handleListRules))
	mux.HandleFunc("POST /api/rules", s.requireAuth(s.handleCreateRule))
	mux.HandleFunc("PATCH /api/rules/{id}", s.requireAuth(s.handleUpdateRule))
	mux.HandleFunc("DELETE /api/rules/{id}", s.requireAuth(s.handleDeleteRule))
	mux.HandleFunc("POST /api/rules/{id}/apply", s.requireAuth(s.handleApplyRule))
	mux.HandleFunc("GET /api/rules/applications/{id}", s.requireAuth(s.handleGetRuleApplication))

	mux.HandleFunc("GET /api/attachments/{id}", s.requireAuth(s.handleGetAttachment))
	mux.HandleFunc("POST /api/uploads", s.requireAuth(s.handleUpload))

	return mux
}
