package store

import (
	"fmt"
	"time"

	"github.com/mkettering/foreman/internal/models"
	"gorm.io/gorm"
)

// AddLearning appends a note to a project, or globally when prjID is
// models.GlobalLearningID.
func AddLearning(gdb *gorm.DB, prjID int, desc string) error {
	if desc == "" {
		return fmt.Errorf("store: learning text is required")
	}
	if prjID != models.GlobalLearningID {
		if _, err := GetProject(gdb, uint(prjID)); err != nil {
			return err
		}
	}
	lrn := models.Learning{PrjID: prjID, Desc: desc, TouchedAt: time.Now()}
	if err := gdb.Create(&lrn).Error; err != nil {
		return fmt.Errorf("store: add learning: %w", err)
	}
	return nil
}

// ScopedLearning is a learning annotated with its scope for prompt building.
type ScopedLearning struct {
	models.Learning
	Scope string // "global" or "project"
}

// LearningsWithGlobal returns a project's learnings merged with global ones,
// most recent first.
func LearningsWithGlobal(gdb *gorm.DB, prjID int) ([]ScopedLearning, error) {
	var rows []models.Learning
	err := gdb.Where("prjid = ? OR prjid = ?", prjID, models.GlobalLearningID).
		Order("lrntouchts DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: list learnings of project %d: %w", prjID, err)
	}

	out := make([]ScopedLearning, 0, len(rows))
	for _, l := range rows {
		scope := "project"
		if l.PrjID == models.GlobalLearningID {
			scope = "global"
		}
		out = append(out, ScopedLearning{Learning: l, Scope: scope})
	}
	return out, nil
}

// DeleteLearning removes one learning.
func DeleteLearning(gdb *gorm.DB, lrnID uint) error {
	result := gdb.Where("lrnid = ?", lrnID).Delete(&models.Learning{})
	if result.Error != nil {
		return fmt.Errorf("store: delete learning %d: %w", lrnID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: learning %d", ErrNotFound, lrnID)
	}
	return nil
}
