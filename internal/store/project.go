package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/mkettering/foreman/internal/models"
	"gorm.io/gorm"
)

// CreateProject inserts a new project. A name collision surfaces as
// ErrDuplicateName.
func CreateProject(gdb *gorm.DB, prj *models.Project) error {
	if prj.Name == "" {
		return fmt.Errorf("store: project name is required")
	}
	if prj.Version == "" {
		prj.Version = models.VersionPOC
	}
	if !prj.Version.Valid() {
		return fmt.Errorf("store: invalid project version %q", prj.Version)
	}
	if prj.Phase == "" {
		prj.Phase = models.ProjectDev
	}
	if !prj.Phase.Valid() {
		return fmt.Errorf("store: invalid project phase %q", prj.Phase)
	}
	if prj.Priority == 0 {
		prj.Priority = models.DefaultPriority
	}
	prj.TouchedAt = time.Now()

	if err := gdb.Create(prj).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %q", ErrDuplicateName, prj.Name)
		}
		return fmt.Errorf("store: create project %q: %w", prj.Name, err)
	}
	return nil
}

// GetProject retrieves a project by id.
func GetProject(gdb *gorm.DB, prjID uint) (*models.Project, error) {
	var prj models.Project
	if err := gdb.Where("prjid = ?", prjID).First(&prj).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: project %d", ErrNotFound, prjID)
		}
		return nil, fmt.Errorf("store: get project %d: %w", prjID, err)
	}
	return &prj, nil
}

// GetProjectByName retrieves a project by its unique name.
func GetProjectByName(gdb *gorm.DB, name string) (*models.Project, error) {
	var prj models.Project
	if err := gdb.Where("prjname = ?", name).First(&prj).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: project %q", ErrNotFound, name)
		}
		return nil, fmt.Errorf("store: get project %q: %w", name, err)
	}
	return &prj, nil
}

// ListProjects returns all projects ordered by priority then name.
func ListProjects(gdb *gorm.DB) ([]models.Project, error) {
	var prjs []models.Project
	if err := gdb.Order("prjpriority ASC, prjname ASC").Find(&prjs).Error; err != nil {
		return nil, fmt.Errorf("store: list projects: %w", err)
	}
	return prjs, nil
}

// ProjectUpdate carries optional field changes for UpdateProject. Nil fields
// are left untouched.
type ProjectUpdate struct {
	Name             *string
	Version          *models.Version
	Priority         *int
	Phase            *models.ProjectPhase
	Desc             *string
	CodeDir          *string
	Prompt           *string
	DocPath          *string
	Model            *string
	CommitEnabled    *int // CommitDisabled/CommitEnabled; use ClearCommitEnabled to unset
	CommitBranchMode *string
	CommitBranchName *string

	ClearCommitEnabled bool
}

// UpdateProject applies the non-nil fields of upd and refreshes the touch
// timestamp.
func UpdateProject(gdb *gorm.DB, prjID uint, upd ProjectUpdate) error {
	fields := map[string]interface{}{}
	if upd.Name != nil {
		fields["prjname"] = *upd.Name
	}
	if upd.Version != nil {
		if !upd.Version.Valid() {
			return fmt.Errorf("store: invalid project version %q", *upd.Version)
		}
		fields["prjversion"] = *upd.Version
	}
	if upd.Priority != nil {
		fields["prjpriority"] = *upd.Priority
	}
	if upd.Phase != nil {
		if !upd.Phase.Valid() {
			return fmt.Errorf("store: invalid project phase %q", *upd.Phase)
		}
		fields["prjphase"] = *upd.Phase
	}
	if upd.Desc != nil {
		fields["prjdesc"] = *upd.Desc
	}
	if upd.CodeDir != nil {
		fields["prjcodedir"] = *upd.CodeDir
	}
	if upd.Prompt != nil {
		fields["prjprompt"] = *upd.Prompt
	}
	if upd.DocPath != nil {
		fields["prjdocpath"] = *upd.DocPath
	}
	if upd.Model != nil {
		fields["prjmodel"] = *upd.Model
	}
	if upd.ClearCommitEnabled {
		fields["prjcommitenabled"] = nil
	} else if upd.CommitEnabled != nil {
		fields["prjcommitenabled"] = *upd.CommitEnabled
	}
	if upd.CommitBranchMode != nil {
		fields["prjcommitbranchmode"] = *upd.CommitBranchMode
	}
	if upd.CommitBranchName != nil {
		fields["prjcommitbranchname"] = *upd.CommitBranchName
	}
	if len(fields) == 0 {
		return nil
	}
	fields["prjtouchts"] = time.Now()

	result := gdb.Model(&models.Project{}).Where("prjid = ?", prjID).Updates(fields)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return fmt.Errorf("%w", ErrDuplicateName)
		}
		return fmt.Errorf("store: update project %d: %w", prjID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: project %d", ErrNotFound, prjID)
	}
	return nil
}

// DeleteProject removes a project and cascades to its requests (and their
// infrastructure overrides), its own infrastructure rows, and its learnings.
// Global learnings are untouched.
func DeleteProject(gdb *gorm.DB, prjID uint) error {
	return gdb.Transaction(func(tx *gorm.DB) error {
		var reqIDs []uint
		if err := tx.Model(&models.Request{}).Where("prjid = ?", prjID).
			Pluck("reqid", &reqIDs).Error; err != nil {
			return fmt.Errorf("store: list requests of project %d: %w", prjID, err)
		}
		if len(reqIDs) > 0 {
			if err := tx.Where("reqid IN ?", reqIDs).
				Delete(&models.RequestInfrastructure{}).Error; err != nil {
				return fmt.Errorf("store: cascade request infra of project %d: %w", prjID, err)
			}
		}
		if err := tx.Where("prjid = ?", prjID).Delete(&models.Request{}).Error; err != nil {
			return fmt.Errorf("store: cascade requests of project %d: %w", prjID, err)
		}
		if err := tx.Where("prjid = ?", prjID).Delete(&models.Infrastructure{}).Error; err != nil {
			return fmt.Errorf("store: cascade infra of project %d: %w", prjID, err)
		}
		if err := tx.Where("prjid = ?", int(prjID)).Delete(&models.Learning{}).Error; err != nil {
			return fmt.Errorf("store: cascade learnings of project %d: %w", prjID, err)
		}
		result := tx.Where("prjid = ?", prjID).Delete(&models.Project{})
		if result.Error != nil {
			return fmt.Errorf("store: delete project %d: %w", prjID, result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: project %d", ErrNotFound, prjID)
		}
		return nil
	})
}
