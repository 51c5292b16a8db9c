package ruleengine

import (
	"encoding/json"
	"time"

	"github.com/jcgurango/meremail/internal/logging"
	"github.com/jcgurango/meremail/internal/store"
)

// Engine evaluates enabled rules against messages and applies the first
// match's action (spec §4.D). It implements importer.RuleApplier.
type Engine struct {
	store         *store.Store
	trashFolderID *uint
	log           logging.Logger
}

func New(st *store.Store, trashFolderID *uint) *Engine {
	return &Engine{store: st, trashFolderID: trashFolderID, log: logging.Logger{Name: "ruleengine"}}
}

// ApplyOnImport evaluates the rule set against one freshly imported message,
// scoped to folderID when the caller provides one (spec §4.C "Rule
// application").
func (e *Engine) ApplyOnImport(messageID uint, folderID *uint) error {
	m, err := e.store.GetMessage(messageID)
	if err != nil {
		return err
	}
	if m.ThreadID == nil {
		return nil
	}

	rule, err := e.firstMatch(m, folderID)
	if err != nil {
		return err
	}
	if rule == nil {
		return nil
	}

	return e.applyAction(*rule, *m.ThreadID, &messageID)
}

// firstMatch returns the first enabled rule (by ascending position) whose
// folder scope includes folderID (if given) and whose condition tree
// evaluates true against m.
func (e *Engine) firstMatch(m *store.Message, folderID *uint) (*store.Rule, error) {
	rules, err := e.store.ListEnabledRulesOrdered()
	if err != nil {
		return nil, err
	}

	ctx, err := buildContext(e.store, m)
	if err != nil {
		return nil, err
	}

	for i := range rules {
		r := rules[i]
		if folderID != nil && !ruleAppliesToFolder(r, *folderID) {
			continue
		}
		cond, err := ParseConditions(r.ConditionsRaw)
		if err != nil {
			e.log.Error("rule has invalid conditions, skipping", err)
			continue
		}
		if Evaluate(cond, ctx) {
			return &r, nil
		}
	}
	return nil, nil
}

func ruleAppliesToFolder(r store.Rule, folderID uint) bool {
	ids := parseFolderIDs(r.FolderIDsRaw)
	if len(ids) == 0 {
		return true
	}
	for _, id := range ids {
		if id == folderID {
			return true
		}
	}
	return false
}

func parseFolderIDs(raw string) []uint {
	if raw == "" {
		return nil
	}
	var ids []uint
	_ = json.Unmarshal([]byte(raw), &ids)
	return ids
}

// applyAction performs the action side effects of a matched rule
// (spec §4.D "Actions"). triggerMessageID is non-nil for on-import
// application (action targets that single message where applicable) and nil
// for retroactive application (action targets the whole thread).
func (e *Engine) applyAction(rule store.Rule, threadID uint, triggerMessageID *uint) error {
	switch rule.ActionType {
	case store.ActionDeleteThread:
		if err := e.store.SetThreadFolder(e.store.DB(), threadID, e.trashFolderID); err != nil {
			return err
		}
		if err := e.store.SetThreadTrashed(e.store.DB(), threadID, time.Now().UTC()); err != nil {
			return err
		}
		return e.markRead(threadID, triggerMessageID)

	case store.ActionMoveToFolder:
		folderID, err := parseTargetFolderID(rule.ActionConfig)
		if err != nil {
			return err
		}
		return e.store.SetThreadFolder(e.store.DB(), threadID, folderID)

	case store.ActionMarkRead:
		return e.markRead(threadID, triggerMessageID)

	case store.ActionAddReplyLater:
		now := time.Now().UTC()
		return e.store.SetThreadReplyLater(threadID, &now)

	case store.ActionAddSetAside:
		now := time.Now().UTC()
		return e.store.SetThreadSetAside(threadID, &now)

	default:
		return nil
	}
}

func (e *Engine) markRead(threadID uint, triggerMessageID *uint) error {
	if triggerMessageID != nil {
		return e.store.MarkMessageRead(e.store.DB(), *triggerMessageID)
	}
	return e.store.MarkThreadRead(threadID)
}

func parseTargetFolderID(actionConfig *string) (*uint, error) {
	if actionConfig == nil || *actionConfig == "" {
		return nil, nil
	}
	var cfg struct {
		FolderID *uint `json:"folderId"`
	}
	if err := json.Unmarshal([]byte(*actionConfig), &cfg); err != nil {
		return nil, err
	}
	return cfg.FolderID, nil
}
