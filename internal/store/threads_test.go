package store

import (
	"testing"
	"time"

	"gorm.io/gorm"
)

func mustUpsertContact(t *testing.T, s *Store, email, name string, bucket Bucket) *Contact {
	t.Helper()
	var c *Contact
	err := s.Tx(func(tx *gorm.DB) error {
		var err error
		c, _, err = s.UpsertContact(tx, email, name, bucket)
		return err
	})
	if err != nil {
		t.Fatalf("UpsertContact(%q) failed: %v", email, err)
	}
	return c
}

func TestCreateThreadNormalizesSubject(t *testing.T) {
	s := newTestStore(t)
	creator := mustUpsertContact(t, s, "alice@example.com", "Alice", BucketUnsorted)

	var th *Thread
	err := s.Tx(func(tx *gorm.DB) error {
		var err error
		th, err = s.CreateThread(tx, "Re: Project update", creator.ID)
		return err
	})
	if err != nil {
		t.Fatalf("CreateThread failed: %v", err)
	}
	if th.Subject != "Project update" {
		t.Errorf("subject = %q, want normalized %q", th.Subject, "Project update")
	}
}

func TestMaybeReassignCreatorOnlyWhenEarlier(t *testing.T) {
	s := newTestStore(t)
	alice := mustUpsertContact(t, s, "alice@example.com", "Alice", BucketUnsorted)
	bob := mustUpsertContact(t, s, "bob@example.com", "Bob", BucketUnsorted)

	var th *Thread
	_ = s.Tx(func(tx *gorm.DB) error {
		var err error
		th, err = s.CreateThread(tx, "Hello", alice.ID)
		return err
	})

	now := time.Now().UTC()
	msg := Message{ThreadID: &th.ID, SenderID: alice.ID, Status: StatusReceived, SentAt: &now}
	if err := s.InsertMessage(s.db, &msg); err != nil {
		t.Fatalf("InsertMessage failed: %v", err)
	}

	later := now.Add(time.Hour)
	_ = s.Tx(func(tx *gorm.DB) error { return s.MaybeReassignCreator(tx, th.ID, bob.ID, later) })
	got, _ := s.GetThread(th.ID)
	if got.CreatorID != alice.ID {
		t.Errorf("a later message must not reassign the creator, got creatorId=%d", got.CreatorID)
	}

	earlier := now.Add(-time.Hour)
	_ = s.Tx(func(tx *gorm.DB) error { return s.MaybeReassignCreator(tx, th.ID, bob.ID, earlier) })
	got, _ = s.GetThread(th.ID)
	if got.CreatorID != bob.ID {
		t.Errorf("an earlier message should reassign the creator to its sender, got creatorId=%d", got.CreatorID)
	}
}

func TestClearReplyLaterIfSettled(t *testing.T) {
	s := newTestStore(t)
	alice := mustUpsertContact(t, s, "alice@example.com", "Alice", BucketUnsorted)

	var th *Thread
	_ = s.Tx(func(tx *gorm.DB) error {
		var err error
		th, err = s.CreateThread(tx, "Hello", alice.ID)
		return err
	})
	now := time.Now().UTC()
	if err := s.SetThreadReplyLater(th.ID, &now); err != nil {
		t.Fatalf("SetThreadReplyLater failed: %v", err)
	}

	draft := Message{ThreadID: &th.ID, SenderID: alice.ID, Status: StatusDraft}
	if err := s.CreateDraft(&draft); err != nil {
		t.Fatalf("CreateDraft failed: %v", err)
	}

	_ = s.Tx(func(tx *gorm.DB) error { return s.ClearReplyLaterIfSettled(tx, th.ID) })
	got, _ := s.GetThread(th.ID)
	if got.ReplyLaterAt == nil {
		t.Error("reply-later must not clear while a draft is still pending")
	}

	if err := s.DeleteDraft(draft.ID); err != nil {
		t.Fatalf("DeleteDraft failed: %v", err)
	}
	_ = s.Tx(func(tx *gorm.DB) error { return s.ClearReplyLaterIfSettled(tx, th.ID) })
	got, _ = s.GetThread(th.ID)
	if got.ReplyLaterAt != nil {
		t.Error("reply-later should clear once no draft/queued messages remain")
	}
}

func TestDeleteThreadCascades(t *testing.T) {
	s := newTestStore(t)
	alice := mustUpsertContact(t, s, "alice@example.com", "Alice", BucketUnsorted)

	var th *Thread
	_ = s.Tx(func(tx *gorm.DB) error {
		var err error
		th, err = s.CreateThread(tx, "Hello", alice.ID)
		return err
	})
	msg := Message{ThreadID: &th.ID, SenderID: alice.ID, Status: StatusReceived}
	if err := s.InsertMessage(s.db, &msg); err != nil {
		t.Fatalf("InsertMessage failed: %v", err)
	}
	att := Attachment{MessageID: msg.ID, Filename: "f.txt", FilePath: "/tmp/f.txt"}
	if err := s.InsertAttachment(s.db, &att); err != nil {
		t.Fatalf("InsertAttachment failed: %v", err)
	}

	removed, err := s.DeleteThread(th.ID)
	if err != nil {
		t.Fatalf("DeleteThread failed: %v", err)
	}
	if len(removed) != 1 || removed[0].ID != att.ID {
		t.Errorf("expected the thread's one attachment back, got %+v", removed)
	}

	if _, err := s.GetThread(th.ID); err == nil {
		t.Error("thread should no longer exist after DeleteThread")
	}
	if _, err := s.GetMessage(msg.ID); err == nil {
		t.Error("message should no longer exist after DeleteThread")
	}
}
