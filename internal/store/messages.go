package store

import (
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jcgurango/meremail/internal/errs"
)

func onConflictDoNothing() clause.OnConflict {
	return clause.OnConflict{DoNothing: true}
}

// FindMessageByMessageID returns at most one row (spec §4.A).
func (s *Store) FindMessageByMessageID(tx *gorm.DB, messageID string) (*Message, error) {
	if messageID == "" {
		return nil, nil
	}
	var m Message
	err := tx.Where("message_id = ?", messageID).First(&m).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Storage("FindMessageByMessageID", err)
	}
	return &m, nil
}

// InsertMessage creates the Message row. A unique-constraint conflict on
// messageId is the canonical dedup signal and is returned as a
// *errs.Error{Kind: KindConflict}, not logged as a failure (spec §4.A).
func (s *Store) InsertMessage(tx *gorm.DB, m *Message) error {
	if err := tx.Create(m).Error; err != nil {
		if isUniqueConstraint(err) {
			return errs.Conflict("InsertMessage", "duplicate message-id")
		}
		return errs.Storage("InsertMessage", err)
	}
	return nil
}

// AddMessageContact inserts a (message, contact, role) junction row,
// ignoring a duplicate on the (messageId, contactId, role) triple
// (spec §3 MessageContact).
func (s *Store) AddMessageContact(tx *gorm.DB, messageID, contactID uint, role MessageContactRole) error {
	mc := MessageContact{MessageID: messageID, ContactID: contactID, Role: role}
	err := tx.Clauses(onConflictDoNothing()).Create(&mc).Error
	if err != nil {
		return errs.Storage("AddMessageContact", err)
	}
	return nil
}

// AddThreadContact inserts or preserves a (thread, contact, role) junction
// row — the union of roles a participant has held across the thread's
// messages (spec §3 ThreadContact).
func (s *Store) AddThreadContact(tx *gorm.DB, threadID, contactID uint, role ThreadContactRole) error {
	tc := ThreadContact{ThreadID: threadID, ContactID: contactID, Role: role}
	err := tx.Clauses(onConflictDoNothing()).Create(&tc).Error
	if err != nil {
		return errs.Storage("AddThreadContact", err)
	}
	return nil
}

func (s *Store) GetMessage(id uint) (*Message, error) {
	var m Message
	if err := s.db.First(&m, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errs.NotFound("GetMessage", "message not found")
		}
		return nil, errs.Storage("GetMessage", err)
	}
	return &m, nil
}

func (s *Store) ListThreadMessages(threadID uint) ([]Message, error) {
	var msgs []Message
	if err := s.db.Where("thread_id = ?", threadID).Order("COALESCE(sent_at, received_at) ASC").Find(&msgs).Error; err != nil {
		return nil, errs.Storage("ListThreadMessages", err)
	}
	return msgs, nil
}

// MarkThreadRead sets readAt on every unread message in the thread (spec §6
// "GET /api/threads/:id ... side effect: marks contained messages read").
func (s *Store) MarkThreadRead(threadID uint) error {
	now := time.Now().UTC()
	return s.db.Model(&Message{}).
		Where("thread_id = ? AND read_at IS NULL", threadID).
		Update("read_at", now).Error
}

func (s *Store) MarkMessageRead(tx *gorm.DB, messageID uint) error {
	now := time.Now().UTC()
	return tx.Model(&Message{}).Where("id = ? AND read_at IS NULL", messageID).Update("read_at", now).Error
}

func (s *Store) SetMessageFolder(tx *gorm.DB, messageID uint, folder string) error {
	return tx.Model(&Message{}).Where("id = ?", messageID).Update("folder", folder).Error
}

// SetMessageThread assigns a draft's threadId, used when a standalone
// draft (spec §3 Message "threadId? (null only for standalone drafts
// never sent)") is sent for the first time.
func (s *Store) SetMessageThread(tx *gorm.DB, messageID, threadID uint) error {
	return tx.Model(&Message{}).Where("id = ?", messageID).Update("thread_id", threadID).Error
}

// TransitionDraftToQueued moves a draft message to queued, clearing any
// prior error state (spec §3 Message invariants).
func (s *Store) TransitionDraftToQueued(messageID uint) error {
	now := time.Now().UTC()
	res := s.db.Model(&Message{}).
		Where("id = ? AND status = ?", messageID, StatusDraft).
		Updates(map[string]interface{}{
			"status":          StatusQueued,
			"queued_at":       now,
			"send_attempts":   0,
			"last_send_error": nil,
		})
	if res.Error != nil {
		return errs.Storage("TransitionDraftToQueued", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.Validation("TransitionDraftToQueued", "message is not a draft")
	}
	return nil
}

// ListQueuedMessages returns every message currently in queued status
// (spec §4.F "reads all messages with status=queued").
func (s *Store) ListQueuedMessages() ([]Message, error) {
	var msgs []Message
	if err := s.db.Where("status = ?", StatusQueued).Order("id ASC").Find(&msgs).Error; err != nil {
		return nil, errs.Storage("ListQueuedMessages", err)
	}
	return msgs, nil
}

// MarkSent finalizes a successful delivery (spec §4.F "Deliver").
func (s *Store) MarkSent(messageID uint, serverMessageID string, sentAt time.Time) error {
	return s.db.Model(&Message{}).Where("id = ?", messageID).Updates(map[string]interface{}{
		"status":          StatusSent,
		"message_id":      serverMessageID,
		"sent_at":         sentAt,
		"last_send_error": nil,
		"folder":          "sent",
	}).Error
}

// RecordSendFailure increments sendAttempts and stores the error verbatim
// (spec §4.F "Failure").
func (s *Store) RecordSendFailure(messageID uint, attempts int, when time.Time, errMsg string) error {
	return s.db.Model(&Message{}).Where("id = ?", messageID).Updates(map[string]interface{}{
		"send_attempts":        attempts,
		"last_send_attempt_at": when,
		"last_send_error":      errMsg,
	}).Error
}

func (s *Store) DeleteDraft(messageID uint) error {
	res := s.db.Where("id = ? AND status = ?", messageID, StatusDraft).Delete(&Message{})
	if res.Error != nil {
		return errs.Storage("DeleteDraft", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("DeleteDraft", "draft not found")
	}
	return nil
}

func (s *Store) UpdateDraft(messageID uint, subject, contentText string, contentHTML *string) error {
	res := s.db.Model(&Message{}).Where("id = ? AND status = ?", messageID, StatusDraft).Updates(map[string]interface{}{
		"subject":      subject,
		"content_text": contentText,
		"content_html": contentHTML,
	})
	if res.Error != nil {
		return errs.Storage("UpdateDraft", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("UpdateDraft", "draft not found")
	}
	return nil
}

func (s *Store) CreateDraft(m *Message) error {
	m.Status = StatusDraft
	if err := s.db.Create(m).Error; err != nil {
		return errs.Storage("CreateDraft", err)
	}
	return nil
}

// ListMessageContacts returns the recipients of a message by role.
func (s *Store) ListMessageContacts(messageID uint, role MessageContactRole) ([]Contact, error) {
	var contacts []Contact
	q := s.db.Joins("JOIN message_contacts ON message_contacts.contact_id = contacts.id").
		Where("message_contacts.message_id = ?", messageID)
	if role != "" {
		q = q.Where("message_contacts.role = ?", role)
	}
	if err := q.Find(&contacts).Error; err != nil {
		return nil, errs.Storage("ListMessageContacts", err)
	}
	return contacts, nil
}

// UnreadCounts groups unread messages by their sender's bucket, backing
// "GET /api/unread-counts" (spec §6).
func (s *Store) UnreadCounts() (map[Bucket]int64, error) {
	var rows []struct {
		Bucket Bucket
		Count  int64
	}
	err := s.db.Table("messages").
		Select("contacts.bucket AS bucket, COUNT(*) AS count").
		Joins("JOIN contacts ON contacts.id = messages.sender_id").
		Where("messages.read_at IS NULL").
		Group("contacts.bucket").
		Scan(&rows).Error
	if err != nil {
		return nil, errs.Storage("UnreadCounts", err)
	}
	out := make(map[Bucket]int64, len(rows))
	for _, r := range rows {
		out[r.Bucket] = r.Count
	}
	return out, nil
}

// BulkMarkRead marks every message in ids read, ignoring ids that are
// already read or don't exist (spec §6 "POST /api/emails/mark-read").
func (s *Store) BulkMarkRead(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	now := time.Now().UTC()
	if err := s.db.Model(&Message{}).Where("id IN ? AND read_at IS NULL", ids).Update("read_at", now).Error; err != nil {
		return errs.Storage("BulkMarkRead", err)
	}
	return nil
}

// ListPendingNotifications returns unread messages from approved-bucket
// senders, most recent first, bounded by limit (spec §6 "GET
// /api/notifications/pending").
func (s *Store) ListPendingNotifications(limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 20
	}
	var msgs []Message
	err := s.db.Joins("JOIN contacts ON contacts.id = messages.sender_id").
		Where("contacts.bucket = ? AND messages.read_at IS NULL", BucketApproved).
		Order("messages.received_at DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, errs.Storage("ListPendingNotifications", err)
	}
	return msgs, nil
}

func isUniqueConstraint(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed: UNIQUE")
}
