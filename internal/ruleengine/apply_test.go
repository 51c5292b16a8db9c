package ruleengine

import (
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/jcgurango/meremail/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"), false)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return store.New(db)
}

func mustUpsertContact(t *testing.T, s *store.Store, email string) *store.Contact {
	t.Helper()
	c, _, err := s.UpsertContact(s.DB(), email, "", store.BucketUnsorted)
	if err != nil {
		t.Fatalf("UpsertContact failed: %v", err)
	}
	return c
}

func mustInsertThreadMessage(t *testing.T, s *store.Store, threadID, senderID uint, subject string, sentAt time.Time) *store.Message {
	t.Helper()
	m := store.Message{ThreadID: &threadID, SenderID: senderID, Subject: subject, SentAt: &sentAt, Status: store.StatusReceived}
	if err := s.InsertMessage(s.DB(), &m); err != nil {
		t.Fatalf("InsertMessage failed: %v", err)
	}
	return &m
}

// TestRunRetroactiveAppliesOncePerThread guards against the per-Message
// regression: a thread with several messages must still contribute exactly
// one to totalCount/processedCount/matchedCount, and have its action
// applied exactly once (spec §4.D "Retroactive application", §8 S6).
func TestRunRetroactiveAppliesOncePerThread(t *testing.T) {
	s := newTestStore(t)
	alice := mustUpsertContact(t, s, "alice@example.com")

	var threadID uint
	if err := s.Tx(func(tx *gorm.DB) error {
		th, err := s.CreateThread(tx, "Hello", alice.ID)
		if err != nil {
			return err
		}
		threadID = th.ID
		return nil
	}); err != nil {
		t.Fatalf("CreateThread failed: %v", err)
	}

	base := time.Now().UTC().Add(-time.Hour)
	mustInsertThreadMessage(t, s, threadID, alice.ID, "Hello", base)
	mustInsertThreadMessage(t, s, threadID, alice.ID, "Re: Hello", base.Add(time.Minute))
	mustInsertThreadMessage(t, s, threadID, alice.ID, "Re: Hello", base.Add(2*time.Minute))

	cond := Node{
		Type:      NodeCondition,
		Field:     "sender_email",
		MatchType: MatchExact,
		Value:     "alice@example.com",
	}
	raw, err := cond.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	rule := &store.Rule{Name: "archive alice", ConditionsRaw: raw, ActionType: store.ActionMarkRead, Enabled: true}
	if err := s.CreateRule(rule); err != nil {
		t.Fatalf("CreateRule failed: %v", err)
	}

	e := New(s, nil)
	app, err := s.CreateRuleApplication(rule.ID)
	if err != nil {
		t.Fatalf("CreateRuleApplication failed: %v", err)
	}

	e.runRetroactive(app.ID, *rule)

	got, err := s.GetRuleApplication(app.ID)
	if err != nil {
		t.Fatalf("GetRuleApplication failed: %v", err)
	}
	if got.Status != store.ApplicationCompleted {
		t.Fatalf("status = %q, want %q", got.Status, store.ApplicationCompleted)
	}
	if got.TotalCount != 1 {
		t.Errorf("totalCount = %d, want 1 (one thread, not 3 messages)", got.TotalCount)
	}
	if got.ProcessedCount != 1 {
		t.Errorf("processedCount = %d, want 1", got.ProcessedCount)
	}
	if got.MatchedCount != 1 {
		t.Errorf("matchedCount = %d, want 1", got.MatchedCount)
	}

	msgs, err := s.ListThreadMessages(threadID)
	if err != nil {
		t.Fatalf("ListThreadMessages failed: %v", err)
	}
	for _, m := range msgs {
		if m.ReadAt == nil {
			t.Errorf("message %d should have been marked read by the thread-level action", m.ID)
		}
	}
}

// TestApplyActionDeleteThreadSetsTrashedAt guards against the dead
// retention-sweep regression: ActionDeleteThread must stamp trashedAt so
// the trash-folder cutoff query in ListThreadsForRetention ever matches
// (spec §4.G "Retention sweep").
func TestApplyActionDeleteThreadSetsTrashedAt(t *testing.T) {
	s := newTestStore(t)
	alice := mustUpsertContact(t, s, "alice@example.com")

	var threadID uint
	if err := s.Tx(func(tx *gorm.DB) error {
		th, err := s.CreateThread(tx, "Spam", alice.ID)
		if err != nil {
			return err
		}
		threadID = th.ID
		return nil
	}); err != nil {
		t.Fatalf("CreateThread failed: %v", err)
	}
	mustInsertThreadMessage(t, s, threadID, alice.ID, "Spam", time.Now().UTC())

	trashFolderID := uint(99)
	e := New(s, &trashFolderID)
	rule := store.Rule{ActionType: store.ActionDeleteThread}
	if err := e.applyAction(rule, threadID, nil); err != nil {
		t.Fatalf("applyAction failed: %v", err)
	}

	th, err := s.GetThread(threadID)
	if err != nil {
		t.Fatalf("GetThread failed: %v", err)
	}
	if th.TrashedAt == nil {
		t.Fatal("trashedAt should be set after ActionDeleteThread")
	}
	if th.FolderID == nil || *th.FolderID != trashFolderID {
		t.Errorf("folderId = %v, want %d", th.FolderID, trashFolderID)
	}
}
