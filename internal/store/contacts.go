package store

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jcgurango/meremail/internal/errs"
	"github.com/jcgurango/meremail/internal/mailnorm"
)

func nameIsAbsent(name, email string) bool {
	return mailnorm.IsDisplayNameAbsent(name, email)
}

// UpsertContact implements §4.A's "upsert-with-name-promotion" contract:
// create the contact on first sighting, or promote its name if a
// higher-quality one is now known. bucketOnCreate is only applied when the
// contact is newly created (e.g. quarantine-on-junk, spec §4.C).
func (s *Store) UpsertContact(tx *gorm.DB, email, name string, bucketOnCreate Bucket) (*Contact, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var existing Contact
	err := tx.Where("email = ?", email).First(&existing).Error
	switch {
	case err == nil:
		if !nameIsAbsent(name, email) && nameIsAbsent(existing.Name, email) {
			existing.Name = strings.TrimSpace(name)
			if err := tx.Model(&existing).Update("name", existing.Name).Error; err != nil {
				return nil, false, errs.Storage("UpsertContact.promote", err)
			}
		}
		return &existing, false, nil
	case err == gorm.ErrRecordNotFound:
		c := Contact{Email: email, Bucket: bucketOnCreate}
		if !nameIsAbsent(name, email) {
			c.Name = strings.TrimSpace(name)
		}
		if err := tx.Create(&c).Error; err != nil {
			// A unique-constraint race is the canonical dedup signal, not
			// an error (spec §4.A): retry the lookup.
			var again Contact
			if lookupErr := tx.Where("email = ?", email).First(&again).Error; lookupErr == nil {
				return &again, false, nil
			}
			return nil, false, errs.Storage("UpsertContact.create", err)
		}
		return &c, true, nil
	default:
		return nil, false, errs.Storage("UpsertContact.lookup", err)
	}
}

// MarkIsMe promotes a contact to isMe=true. isMe is monotonic: a contact is
// never demoted (spec §4.C).
func (s *Store) MarkIsMe(tx *gorm.DB, contactID uint) error {
	return tx.Model(&Contact{}).Where("id = ?", contactID).Update("is_me", true).Error
}

// SetBucket transitions a contact's bucket, but only when it currently has
// none, unless force is true (spec §4.C "implicit trust by outward
// correspondence" only applies when "the recipient has no bucket").
func (s *Store) SetBucket(tx *gorm.DB, contactID uint, bucket Bucket, force bool) error {
	q := tx.Model(&Contact{}).Where("id = ?", contactID)
	if !force {
		q = q.Where("bucket = ?", BucketUnsorted)
	}
	return q.Update("bucket", bucket).Error
}

// GetOrCreateImpostor returns the synthetic sender used when junk-foldered
// mail claims an isMe From address (spec §4.C).
func (s *Store) GetOrCreateImpostor(tx *gorm.DB) (*Contact, error) {
	const impostorEmail = "impostor@impostor"
	c, _, err := s.UpsertContact(tx, impostorEmail, "", BucketUnsorted)
	return c, err
}

// SetDefaultIdentity enforces the invariant that at most one Contact has
// isDefaultIdentity=true (spec §3, §8 invariant 5).
func (s *Store) SetDefaultIdentity(contactID uint) error {
	return s.Tx(func(tx *gorm.DB) error {
		if err := tx.Model(&Contact{}).Where("is_default_identity = ?", true).
			Update("is_default_identity", false).Error; err != nil {
			return err
		}
		return tx.Model(&Contact{}).Where("id = ?", contactID).
			Update("is_default_identity", true).Error
	})
}

// GetDefaultIdentity returns the contact with isDefaultIdentity=true, used
// as the sender of a new draft (spec §3 invariant 5, §6 "POST /api/drafts").
func (s *Store) GetDefaultIdentity() (*Contact, error) {
	var c Contact
	if err := s.db.Where("is_default_identity = ?", true).First(&c).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errs.NotFound("GetDefaultIdentity", "no default identity configured")
		}
		return nil, errs.Storage("GetDefaultIdentity", err)
	}
	return &c, nil
}

func (s *Store) GetContact(id uint) (*Contact, error) {
	var c Contact
	if err := s.db.First(&c, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errs.NotFound("GetContact", "contact not found")
		}
		return nil, errs.Storage("GetContact", err)
	}
	return &c, nil
}

func (s *Store) ListContacts(bucket Bucket) ([]Contact, error) {
	var contacts []Contact
	q := s.db.Order("email")
	if bucket != "" {
		q = q.Where("bucket = ?", bucket)
	}
	if err := q.Find(&contacts).Error; err != nil {
		return nil, errs.Storage("ListContacts", err)
	}
	return contacts, nil
}

func (s *Store) UpdateContact(id uint, name string, bucket Bucket) error {
	return s.db.Model(&Contact{}).Where("id = ?", id).
		Clauses(clause.Returning{}).
		Updates(map[string]interface{}{"name": name, "bucket": bucket}).Error
}
