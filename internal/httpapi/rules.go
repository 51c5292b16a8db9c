package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/jcgurango/meremail/internal/ruleengine"
	"github.com/jcgurango/meremail/internal/store"
)

// handleListRules implements "GET /api/rules".
func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.store.ListRules()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rules)
}

type ruleRequest struct {
	Name         string               `json:"name"`
	Conditions   ruleengine.Node      `json:"conditions"`
	ActionType   store.RuleActionType `json:"actionType"`
	ActionConfig json.RawMessage      `json:"actionConfig"`
	FolderIDs    []uint               `json:"folderIds"`
	Position     int                  `json:"position"`
	Enabled      bool                 `json:"enabled"`
}

// handleCreateRule implements "POST /api/rules".
func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}

	rule, err := req.toRule()
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := s.store.CreateRule(rule); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

// handleUpdateRule implements "PATCH /api/rules/:id".
func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	var req ruleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}

	rule, err := req.toRule()
	if err != nil {
		writeErr(w, err)
		return
	}
	rule.ID = id
	if err := s.store.UpdateRule(rule); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// handleDeleteRule implements "DELETE /api/rules/:id".
func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := s.store.DeleteRule(id); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleApplyRule implements "POST /api/rules/:id/apply": starts a
// retroactive batch application job and returns its tracking row (spec
// §4.D "Retroactive application", §8 S6).
func (s *Server) handleApplyRule(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	app, err := s.rules.StartRetroactiveApplication(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, app)
}

// handleGetRuleApplication implements "GET /api/rules/applications/:id".
func (s *Server) handleGetRuleApplication(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	app, err := s.store.GetRuleApplication(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (req ruleRequest) toRule() (*store.Rule, error) {
	condJSON, err := req.Conditions.Encode()
	if err != nil {
		return nil, err
	}
	folderIDs, err := json.Marshal(req.FolderIDs)
	if err != nil {
		return nil, err
	}

	var actionConfig *string
	if len(req.ActionConfig) > 0 {
		s := string(req.ActionConfig)
		actionConfig = &s
	}

	return &store.Rule{
		Name:          req.Name,
		ConditionsRaw: condJSON,
		ActionType:    req.ActionType,
		ActionConfig:  actionConfig,
		FolderIDsRaw:  string(folderIDs),
		Position:      req.Position,
		Enabled:       req.Enabled,
	}, nil
}
