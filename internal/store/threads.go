package store

import (
	"time"

	"gorm.io/gorm"

	"github.com/jcgurango/meremail/internal/errs"
	"github.com/jcgurango/meremail/internal/mailnorm"
)

// CreateThread starts a new thread with creatorID as the author of its
// earliest known message (spec §3 Thread invariant).
func (s *Store) CreateThread(tx *gorm.DB, subject string, creatorID uint) (*Thread, error) {
	t := Thread{
		Subject:   mailnorm.NormalizeThreadSubject(subject),
		CreatorID: creatorID,
	}
	if err := tx.Create(&t).Error; err != nil {
		return nil, errs.Storage("CreateThread", err)
	}
	return &t, nil
}

// FindThreadByMessageRef resolves the thread containing the Message whose
// messageId is one of ids (spec §4.C threading step 1).
func (s *Store) FindThreadByMessageRef(tx *gorm.DB, ids []string) (*Thread, *Message, error) {
	ids = nonEmpty(ids)
	if len(ids) == 0 {
		return nil, nil, nil
	}
	var m Message
	err := tx.Where("message_id IN ?", ids).Order("sent_at ASC").First(&m).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, errs.Storage("FindThreadByMessageRef", err)
	}
	if m.ThreadID == nil {
		return nil, &m, nil
	}
	var t Thread
	if err := tx.First(&t, *m.ThreadID).Error; err != nil {
		return nil, nil, errs.Storage("FindThreadByMessageRef.thread", err)
	}
	return &t, &m, nil
}

// ThreadCandidate pairs a Thread with its earliest known message's sender,
// used by the subject-fallback and cross-party heuristics (spec §4.C steps
// 2-3).
type ThreadCandidate struct {
	Thread       Thread
	CreatorIsMe  bool
	EarliestSent *time.Time
}

// FindThreadsByNormalizedSubject returns threads whose stored (already
// normalized) subject equals the normalized subject given, most recent
// first.
func (s *Store) FindThreadsByNormalizedSubject(tx *gorm.DB, normalizedSubject string) ([]ThreadCandidate, error) {
	var threads []Thread
	if err := tx.Where("subject = ?", normalizedSubject).Order("created_at DESC").Find(&threads).Error; err != nil {
		return nil, errs.Storage("FindThreadsByNormalizedSubject", err)
	}
	out := make([]ThreadCandidate, 0, len(threads))
	for _, t := range threads {
		var creator Contact
		if err := tx.First(&creator, t.CreatorID).Error; err != nil {
			continue
		}
		earliest, _ := s.earliestMessageSentAt(tx, t.ID)
		out = append(out, ThreadCandidate{Thread: t, CreatorIsMe: creator.IsMe, EarliestSent: earliest})
	}
	return out, nil
}

func (s *Store) earliestMessageSentAt(tx *gorm.DB, threadID uint) (*time.Time, error) {
	var m Message
	err := tx.Where("thread_id = ?", threadID).Order("COALESCE(sent_at, received_at) ASC").First(&m).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if m.SentAt != nil {
		return m.SentAt, nil
	}
	return &m.ReceivedAt, nil
}

// MaybeReassignCreator reassigns a thread's creatorId to senderID when
// candidateSentAt predates the thread's currently-known earliest message
// (spec §4.C "On join... preserves the invariant that the creator is the
// author of the earliest known message").
func (s *Store) MaybeReassignCreator(tx *gorm.DB, threadID uint, senderID uint, candidateSentAt time.Time) error {
	earliest, err := s.earliestMessageSentAt(tx, threadID)
	if err != nil {
		return errs.Storage("MaybeReassignCreator", err)
	}
	if earliest != nil && !candidateSentAt.Before(*earliest) {
		return nil
	}
	return tx.Model(&Thread{}).Where("id = ?", threadID).Update("creator_id", senderID).Error
}

func (s *Store) GetThread(id uint) (*Thread, error) {
	var t Thread
	if err := s.db.First(&t, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errs.NotFound("GetThread", "thread not found")
		}
		return nil, errs.Storage("GetThread", err)
	}
	return &t, nil
}

func (s *Store) SetThreadFolder(tx *gorm.DB, threadID uint, folderID *uint) error {
	return tx.Model(&Thread{}).Where("id = ?", threadID).Update("folder_id", folderID).Error
}

// SetThreadTrashed stamps trashedAt, the timestamp the trash-folder
// retention sweep measures its cutoff from (spec §4.G "Retention sweep").
func (s *Store) SetThreadTrashed(tx *gorm.DB, threadID uint, trashedAt time.Time) error {
	return tx.Model(&Thread{}).Where("id = ?", threadID).Update("trashed_at", trashedAt).Error
}

func (s *Store) SetThreadReplyLater(threadID uint, at *time.Time) error {
	return s.db.Model(&Thread{}).Where("id = ?", threadID).Update("reply_later_at", at).Error
}

func (s *Store) SetThreadSetAside(threadID uint, at *time.Time) error {
	return s.db.Model(&Thread{}).Where("id = ?", threadID).Update("set_aside_at", at).Error
}

// ClearReplyLaterIfSettled clears replyLaterAt on a thread once it has no
// remaining draft/queued messages (spec §4.F, §8 invariant 6).
func (s *Store) ClearReplyLaterIfSettled(tx *gorm.DB, threadID uint) error {
	var n int64
	if err := tx.Model(&Message{}).
		Where("thread_id = ? AND status IN ?", threadID, []MessageStatus{StatusDraft, StatusQueued}).
		Count(&n).Error; err != nil {
		return errs.Storage("ClearReplyLaterIfSettled.count", err)
	}
	if n > 0 {
		return nil
	}
	return tx.Model(&Thread{}).Where("id = ?", threadID).Update("reply_later_at", nil).Error
}

// DeleteThread cascades: attachments (db rows; file deletion is the
// caller's responsibility since Store doesn't own the filesystem layout),
// junction rows, messages, then the thread (spec §4.A).
func (s *Store) DeleteThread(threadID uint) ([]Attachment, error) {
	var removed []Attachment
	err := s.Tx(func(tx *gorm.DB) error {
		var messageIDs []uint
		if err := tx.Model(&Message{}).Where("thread_id = ?", threadID).Pluck("id", &messageIDs).Error; err != nil {
			return err
		}
		if len(messageIDs) > 0 {
			if err := tx.Where("message_id IN ?", messageIDs).Find(&removed).Error; err != nil {
				return err
			}
			if err := tx.Where("message_id IN ?", messageIDs).Delete(&Attachment{}).Error; err != nil {
				return err
			}
			if err := tx.Where("message_id IN ?", messageIDs).Delete(&MessageContact{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", messageIDs).Delete(&Message{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("thread_id = ?", threadID).Delete(&ThreadContact{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Thread{}, threadID).Error
	})
	return removed, err
}

// CountThreads backs the retroactive rule application batch job's
// totalCount (spec §4.D "Retroactive application", §8 S6).
func (s *Store) CountThreads() (int64, error) {
	var n int64
	if err := s.db.Model(&Thread{}).Count(&n).Error; err != nil {
		return 0, errs.Storage("CountThreads", err)
	}
	return n, nil
}

// GetEarliestThreadMessage returns a thread's earliest known message, the
// message retroactive rule application evaluates a thread's conditions
// against (spec §4.D "Retroactive application").
func (s *Store) GetEarliestThreadMessage(threadID uint) (*Message, error) {
	var m Message
	err := s.db.Where("thread_id = ?", threadID).Order("COALESCE(sent_at, received_at) ASC").First(&m).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errs.NotFound("GetEarliestThreadMessage", "thread has no messages")
	}
	if err != nil {
		return nil, errs.Storage("GetEarliestThreadMessage", err)
	}
	return &m, nil
}

func (s *Store) ListThreadsPage(bucket Bucket, limit, offset int) ([]Thread, error) {
	var threads []Thread
	q := s.db.Order("created_at DESC").Limit(limit).Offset(offset)
	if bucket != "" {
		q = q.Joins("JOIN contacts ON contacts.id = threads.creator_id").Where("contacts.bucket = ?", bucket)
	}
	if err := q.Find(&threads).Error; err != nil {
		return nil, errs.Storage("ListThreadsPage", err)
	}
	return threads, nil
}

// ListThreadsForRetention returns threads in folderID whose age (measured
// from trashedAt when byTrashedAt is true, else createdAt) exceeds cutoff
// (spec §4.G "Retention sweep").
func (s *Store) ListThreadsForRetention(folderID uint, cutoff time.Time, byTrashedAt bool) ([]Thread, error) {
	q := s.db.Where("folder_id = ?", folderID)
	if byTrashedAt {
		q = q.Where("trashed_at IS NOT NULL AND trashed_at < ?", cutoff)
	} else {
		q = q.Where("created_at < ?", cutoff)
	}
	var threads []Thread
	if err := q.Find(&threads).Error; err != nil {
		return nil, errs.Storage("ListThreadsForRetention", err)
	}
	return threads, nil
}

// ListSetAsideThreads returns threads with a non-null setAsideAt, most
// recently set aside first (spec §6 "GET /api/set-aside").
func (s *Store) ListSetAsideThreads(limit, offset int) ([]Thread, error) {
	var threads []Thread
	err := s.db.Where("set_aside_at IS NOT NULL").
		Order("set_aside_at DESC").
		Limit(limit).Offset(offset).
		Find(&threads).Error
	if err != nil {
		return nil, errs.Storage("ListSetAsideThreads", err)
	}
	return threads, nil
}

func nonEmpty(ss []string) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
