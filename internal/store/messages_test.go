package store

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/jcgurango/meremail/internal/errs"
)

func TestInsertMessageDuplicateMessageIDIsConflict(t *testing.T) {
	s := newTestStore(t)
	alice := mustUpsertContact(t, s, "alice@example.com", "Alice", BucketUnsorted)
	mid := "dup@example.com"

	m1 := Message{SenderID: alice.ID, Status: StatusReceived, MessageID: &mid}
	if err := s.InsertMessage(s.db, &m1); err != nil {
		t.Fatalf("first InsertMessage failed: %v", err)
	}

	m2 := Message{SenderID: alice.ID, Status: StatusReceived, MessageID: &mid}
	err := s.InsertMessage(s.db, &m2)
	if errs.KindOf(err) != errs.KindConflict {
		t.Fatalf("expected a conflict error on duplicate messageId, got %v", err)
	}
}

func TestTransitionDraftToQueuedRejectsNonDraft(t *testing.T) {
	s := newTestStore(t)
	alice := mustUpsertContact(t, s, "alice@example.com", "Alice", BucketUnsorted)

	m := Message{SenderID: alice.ID, Status: StatusReceived}
	if err := s.InsertMessage(s.db, &m); err != nil {
		t.Fatalf("InsertMessage failed: %v", err)
	}

	if err := s.TransitionDraftToQueued(m.ID); err == nil {
		t.Error("transitioning a non-draft message to queued should fail")
	}
}

func TestTransitionDraftToQueued(t *testing.T) {
	s := newTestStore(t)
	alice := mustUpsertContact(t, s, "alice@example.com", "Alice", BucketUnsorted)

	draft := Message{SenderID: alice.ID}
	if err := s.CreateDraft(&draft); err != nil {
		t.Fatalf("CreateDraft failed: %v", err)
	}

	if err := s.TransitionDraftToQueued(draft.ID); err != nil {
		t.Fatalf("TransitionDraftToQueued failed: %v", err)
	}

	got, _ := s.GetMessage(draft.ID)
	if got.Status != StatusQueued {
		t.Errorf("status = %q, want %q", got.Status, StatusQueued)
	}
	if got.QueuedAt == nil {
		t.Error("queuedAt should be set")
	}
}

func TestUnreadCountsGroupsByBucket(t *testing.T) {
	s := newTestStore(t)
	approved := mustUpsertContact(t, s, "a@example.com", "A", BucketApproved)
	feed := mustUpsertContact(t, s, "b@example.com", "B", BucketFeed)

	for i := 0; i < 2; i++ {
		m := Message{SenderID: approved.ID, Status: StatusReceived}
		if err := s.InsertMessage(s.db, &m); err != nil {
			t.Fatalf("InsertMessage failed: %v", err)
		}
	}
	m := Message{SenderID: feed.ID, Status: StatusReceived}
	if err := s.InsertMessage(s.db, &m); err != nil {
		t.Fatalf("InsertMessage failed: %v", err)
	}

	counts, err := s.UnreadCounts()
	if err != nil {
		t.Fatalf("UnreadCounts failed: %v", err)
	}
	if counts[BucketApproved] != 2 {
		t.Errorf("approved count = %d, want 2", counts[BucketApproved])
	}
	if counts[BucketFeed] != 1 {
		t.Errorf("feed count = %d, want 1", counts[BucketFeed])
	}
}

func TestBulkMarkRead(t *testing.T) {
	s := newTestStore(t)
	alice := mustUpsertContact(t, s, "alice@example.com", "Alice", BucketUnsorted)

	var ids []uint
	for i := 0; i < 3; i++ {
		m := Message{SenderID: alice.ID, Status: StatusReceived}
		if err := s.InsertMessage(s.db, &m); err != nil {
			t.Fatalf("InsertMessage failed: %v", err)
		}
		ids = append(ids, m.ID)
	}

	if err := s.BulkMarkRead(ids[:2]); err != nil {
		t.Fatalf("BulkMarkRead failed: %v", err)
	}

	for i, id := range ids {
		m, _ := s.GetMessage(id)
		wantRead := i < 2
		if (m.ReadAt != nil) != wantRead {
			t.Errorf("message %d readAt set = %v, want %v", i, m.ReadAt != nil, wantRead)
		}
	}

	if err := s.BulkMarkRead(nil); err != nil {
		t.Errorf("BulkMarkRead with no ids should be a no-op, got error: %v", err)
	}
}

func TestSetMessageThread(t *testing.T) {
	s := newTestStore(t)
	alice := mustUpsertContact(t, s, "alice@example.com", "Alice", BucketUnsorted)

	draft := Message{SenderID: alice.ID, Subject: "Hello"}
	if err := s.CreateDraft(&draft); err != nil {
		t.Fatalf("CreateDraft failed: %v", err)
	}
	if draft.ThreadID != nil {
		t.Fatal("a freshly created standalone draft should have no thread")
	}

	var th *Thread
	err := s.Tx(func(tx *gorm.DB) error {
		var err error
		th, err = s.CreateThread(tx, draft.Subject, draft.SenderID)
		if err != nil {
			return err
		}
		return s.SetMessageThread(tx, draft.ID, th.ID)
	})
	if err != nil {
		t.Fatalf("assigning a thread to a standalone draft failed: %v", err)
	}

	got, _ := s.GetMessage(draft.ID)
	if got.ThreadID == nil || *got.ThreadID != th.ID {
		t.Errorf("expected threadId %d, got %v", th.ID, got.ThreadID)
	}
}

func TestListPendingNotificationsFiltersApprovedUnread(t *testing.T) {
	s := newTestStore(t)
	approved := mustUpsertContact(t, s, "a@example.com", "A", BucketApproved)
	blocked := mustUpsertContact(t, s, "b@example.com", "B", BucketBlocked)

	m1 := Message{SenderID: approved.ID, Status: StatusReceived}
	if err := s.InsertMessage(s.db, &m1); err != nil {
		t.Fatalf("InsertMessage failed: %v", err)
	}
	m2 := Message{SenderID: blocked.ID, Status: StatusReceived}
	if err := s.InsertMessage(s.db, &m2); err != nil {
		t.Fatalf("InsertMessage failed: %v", err)
	}
	now := time.Now().UTC()
	m3 := Message{SenderID: approved.ID, Status: StatusReceived, ReadAt: &now}
	if err := s.InsertMessage(s.db, &m3); err != nil {
		t.Fatalf("InsertMessage failed: %v", err)
	}

	notifications, err := s.ListPendingNotifications(0)
	if err != nil {
		t.Fatalf("ListPendingNotifications failed: %v", err)
	}
	if len(notifications) != 1 || notifications[0].ID != m1.ID {
		t.Errorf("expected only the one unread approved-sender message, got %+v", notifications)
	}
}
