package store

import (
	"gorm.io/gorm"

	"github.com/jcgurango/meremail/internal/errs"
)

// ListEnabledRulesOrdered returns enabled rules sorted by ascending
// position (spec §4.D "Rule iteration order").
func (s *Store) ListEnabledRulesOrdered() ([]Rule, error) {
	var rules []Rule
	if err := s.db.Where("enabled = ?", true).Order("position ASC").Find(&rules).Error; err != nil {
		return nil, errs.Storage("ListEnabledRulesOrdered", err)
	}
	return rules, nil
}

func (s *Store) ListRules() ([]Rule, error) {
	var rules []Rule
	if err := s.db.Order("position ASC").Find(&rules).Error; err != nil {
		return nil, errs.Storage("ListRules", err)
	}
	return rules, nil
}

func (s *Store) GetRule(id uint) (*Rule, error) {
	var r Rule
	if err := s.db.First(&r, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errs.NotFound("GetRule", "rule not found")
		}
		return nil, errs.Storage("GetRule", err)
	}
	return &r, nil
}

func (s *Store) CreateRule(r *Rule) error {
	if err := s.db.Create(r).Error; err != nil {
		return errs.Storage("CreateRule", err)
	}
	return nil
}

func (s *Store) UpdateRule(r *Rule) error {
	if err := s.db.Save(r).Error; err != nil {
		return errs.Storage("UpdateRule", err)
	}
	return nil
}

func (s *Store) DeleteRule(id uint) error {
	if err := s.db.Delete(&Rule{}, id).Error; err != nil {
		return errs.Storage("DeleteRule", err)
	}
	return nil
}

// CreateRuleApplication starts a new retroactive application row in status
// running (spec §4.D "Retroactive application").
func (s *Store) CreateRuleApplication(ruleID uint) (*RuleApplication, error) {
	now := timeNow()
	app := RuleApplication{
		RuleID:    &ruleID,
		Status:    ApplicationRunning,
		StartedAt: &now,
	}
	if err := s.db.Create(&app).Error; err != nil {
		return nil, errs.Storage("CreateRuleApplication", err)
	}
	return &app, nil
}

func (s *Store) GetRuleApplication(id uint) (*RuleApplication, error) {
	var app RuleApplication
	if err := s.db.First(&app, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errs.NotFound("GetRuleApplication", "rule application not found")
		}
		return nil, errs.Storage("GetRuleApplication", err)
	}
	return &app, nil
}

// UpdateRuleApplicationProgress is called after each processed batch
// (spec §4.D, §8 S6: "processedCount observations ... monotonically
// non-decreasing").
func (s *Store) UpdateRuleApplicationProgress(id uint, total, processed, matched int) error {
	return s.db.Model(&RuleApplication{}).Where("id = ?", id).Updates(map[string]interface{}{
		"total_count":     total,
		"processed_count": processed,
		"matched_count":   matched,
	}).Error
}

func (s *Store) CompleteRuleApplication(id uint) error {
	now := timeNow()
	return s.db.Model(&RuleApplication{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":       ApplicationCompleted,
		"completed_at": now,
	}).Error
}

func (s *Store) FailRuleApplication(id uint, errMsg string) error {
	now := timeNow()
	return s.db.Model(&RuleApplication{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":       ApplicationFailed,
		"error":        errMsg,
		"completed_at": now,
	}).Error
}

// FailStaleRunningApplications transitions any RuleApplication left in
// running at process start to failed (spec §9 Open Question, resolved in
// SPEC_FULL.md).
func (s *Store) FailStaleRunningApplications() (int64, error) {
	res := s.db.Model(&RuleApplication{}).Where("status = ?", ApplicationRunning).
		Updates(map[string]interface{}{
			"status": ApplicationFailed,
			"error":  "interrupted by restart",
		})
	return res.RowsAffected, res.Error
}
