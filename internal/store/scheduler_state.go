package store

import (
	"time"

	"gorm.io/gorm/clause"

	"github.com/jcgurango/meremail/internal/errs"
)

func timeNow() time.Time { return time.Now().UTC() }

const schedulerStateSingletonID = 1

// GetSchedulerState loads the singleton scheduler watermark row, creating
// it with empty dates on first use (spec §3 SchedulerState).
func (s *Store) GetSchedulerState() (*SchedulerState, error) {
	var st SchedulerState
	err := s.db.FirstOrCreate(&st, SchedulerState{ID: schedulerStateSingletonID}).Error
	if err != nil {
		return nil, errs.Storage("GetSchedulerState", err)
	}
	return &st, nil
}

func (s *Store) SetLastBackupDate(isoDate string) error {
	return s.db.Model(&SchedulerState{}).Where("id = ?", schedulerStateSingletonID).
		Update("last_backup_date", isoDate).Error
}

func (s *Store) SetLastRetentionCleanupDate(isoDate string) error {
	return s.db.Model(&SchedulerState{}).Where("id = ?", schedulerStateSingletonID).
		Update("last_retention_cleanup_date", isoDate).Error
}

// GetIngestionState returns the per-folder sync watermark, defaulting to
// now-24h on first sight (spec §4.E).
func (s *Store) GetIngestionState(folder string, defaultSince time.Time) (*IngestionState, error) {
	st := IngestionState{Folder: folder, LastSyncAt: defaultSince}
	err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&st).Error
	if err != nil {
		return nil, errs.Storage("GetIngestionState.create", err)
	}
	var out IngestionState
	if err := s.db.First(&out, "folder = ?", folder).Error; err != nil {
		return nil, errs.Storage("GetIngestionState.load", err)
	}
	return &out, nil
}

func (s *Store) UpdateIngestionState(folder string, lastSyncAt time.Time, uidValidity uint32) error {
	return s.db.Save(&IngestionState{Folder: folder, LastSyncAt: lastSyncAt, UIDValidity: uidValidity}).Error
}
