package store

import (
	"gorm.io/gorm"

	"github.com/jcgurango/meremail/internal/errs"
)

func (s *Store) InsertAttachment(tx *gorm.DB, a *Attachment) error {
	if err := tx.Create(a).Error; err != nil {
		return errs.Storage("InsertAttachment", err)
	}
	return nil
}

func (s *Store) ListMessageAttachments(messageID uint) ([]Attachment, error) {
	var atts []Attachment
	if err := s.db.Where("message_id = ?", messageID).Find(&atts).Error; err != nil {
		return nil, errs.Storage("ListMessageAttachments", err)
	}
	return atts, nil
}

// SetAttachmentMessage associates a previously-uploaded attachment with a
// draft (spec §6 "POST /api/uploads" — "optional association with a
// draft").
func (s *Store) SetAttachmentMessage(id, messageID uint) error {
	res := s.db.Model(&Attachment{}).Where("id = ?", id).Update("message_id", messageID)
	if res.Error != nil {
		return errs.Storage("SetAttachmentMessage", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("SetAttachmentMessage", "attachment not found")
	}
	return nil
}

func (s *Store) GetAttachment(id uint) (*Attachment, error) {
	var a Attachment
	if err := s.db.First(&a, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errs.NotFound("GetAttachment", "attachment not found")
		}
		return nil, errs.Storage("GetAttachment", err)
	}
	return &a, nil
}
