package store

import (
	"testing"

	"gorm.io/gorm"
)

func TestUpsertContactCreatesOnFirstSighting(t *testing.T) {
	s := newTestStore(t)

	var c *Contact
	err := s.Tx(func(tx *gorm.DB) error {
		var err error
		c, _, err = s.UpsertContact(tx, "Alice@Example.com", "Alice Smith", BucketFeed)
		return err
	})
	if err != nil {
		t.Fatalf("UpsertContact failed: %v", err)
	}
	if c.Email != "alice@example.com" {
		t.Errorf("email should be lowercased, got %q", c.Email)
	}
	if c.Name != "Alice Smith" {
		t.Errorf("name = %q, want Alice Smith", c.Name)
	}
	if c.Bucket != BucketFeed {
		t.Errorf("bucket = %q, want %q", c.Bucket, BucketFeed)
	}
}

func TestUpsertContactPromotesName(t *testing.T) {
	s := newTestStore(t)

	var first *Contact
	_ = s.Tx(func(tx *gorm.DB) error {
		var err error
		first, _, err = s.UpsertContact(tx, "bob@example.com", "", BucketUnsorted)
		return err
	})
	if first.Name != "" {
		t.Fatalf("expected absent display name on first sighting, got %q", first.Name)
	}

	var second *Contact
	var created bool
	_ = s.Tx(func(tx *gorm.DB) error {
		var err error
		second, created, err = s.UpsertContact(tx, "bob@example.com", "Bob Jones", BucketUnsorted)
		return err
	})
	if created {
		t.Error("second sighting of an existing contact should not report created=true")
	}
	if second.Name != "Bob Jones" {
		t.Errorf("a higher-quality name should promote the contact's name, got %q", second.Name)
	}
}

func TestUpsertContactDoesNotDemoteName(t *testing.T) {
	s := newTestStore(t)

	_ = s.Tx(func(tx *gorm.DB) error {
		_, _, err := s.UpsertContact(tx, "carol@example.com", "Carol White", BucketUnsorted)
		return err
	})

	var c *Contact
	_ = s.Tx(func(tx *gorm.DB) error {
		var err error
		c, _, err = s.UpsertContact(tx, "carol@example.com", "", BucketUnsorted)
		return err
	})
	if c.Name != "Carol White" {
		t.Errorf("an absent name on a later sighting must not overwrite a known one, got %q", c.Name)
	}
}

func TestSetBucketOnlyWhenUnsorted(t *testing.T) {
	s := newTestStore(t)

	var c *Contact
	_ = s.Tx(func(tx *gorm.DB) error {
		var err error
		c, _, err = s.UpsertContact(tx, "dan@example.com", "Dan", BucketUnsorted)
		return err
	})

	_ = s.Tx(func(tx *gorm.DB) error { return s.SetBucket(tx, c.ID, BucketApproved, false) })
	got, err := s.GetContact(c.ID)
	if err != nil {
		t.Fatalf("GetContact failed: %v", err)
	}
	if got.Bucket != BucketApproved {
		t.Fatalf("bucket = %q, want %q", got.Bucket, BucketApproved)
	}

	_ = s.Tx(func(tx *gorm.DB) error { return s.SetBucket(tx, c.ID, BucketBlocked, false) })
	got, _ = s.GetContact(c.ID)
	if got.Bucket != BucketApproved {
		t.Errorf("without force, an already-sorted contact's bucket must not change, got %q", got.Bucket)
	}

	_ = s.Tx(func(tx *gorm.DB) error { return s.SetBucket(tx, c.ID, BucketBlocked, true) })
	got, _ = s.GetContact(c.ID)
	if got.Bucket != BucketBlocked {
		t.Errorf("force=true should override an existing bucket, got %q", got.Bucket)
	}
}

func TestSetDefaultIdentityIsExclusive(t *testing.T) {
	s := newTestStore(t)

	var a, b *Contact
	_ = s.Tx(func(tx *gorm.DB) error {
		var err error
		a, _, err = s.UpsertContact(tx, "me@example.com", "Me", BucketUnsorted)
		return err
	})
	_ = s.Tx(func(tx *gorm.DB) error {
		var err error
		b, _, err = s.UpsertContact(tx, "me-alt@example.com", "Me Alt", BucketUnsorted)
		return err
	})

	if err := s.SetDefaultIdentity(a.ID); err != nil {
		t.Fatalf("SetDefaultIdentity failed: %v", err)
	}
	if err := s.SetDefaultIdentity(b.ID); err != nil {
		t.Fatalf("SetDefaultIdentity failed: %v", err)
	}

	got, err := s.GetDefaultIdentity()
	if err != nil {
		t.Fatalf("GetDefaultIdentity failed: %v", err)
	}
	if got.ID != b.ID {
		t.Errorf("expected the most recently set identity (%d) to be default, got %d", b.ID, got.ID)
	}

	gotA, _ := s.GetContact(a.ID)
	if gotA.IsDefaultIdentity {
		t.Error("setting a new default identity should clear the previous one")
	}
}

func TestGetDefaultIdentityNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetDefaultIdentity()
	if err == nil {
		t.Error("GetDefaultIdentity with no identity configured should error")
	}
}
