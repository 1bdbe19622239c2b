package store

import (
	"fmt"

	"github.com/mkettering/foreman/internal/models"
	"gorm.io/gorm"
)

// AddInfraOption adds a selectable catalog entry.
func AddInfraOption(gdb *gorm.DB, opt *models.InfraOption) error {
	if !opt.Type.Valid() {
		return fmt.Errorf("store: invalid infra type %q", opt.Type)
	}
	if opt.Name == "" {
		return fmt.Errorf("store: option name is required")
	}
	if opt.Provider == "" {
		opt.Provider = models.ProviderLocal
	}
	if err := gdb.Create(opt).Error; err != nil {
		return fmt.Errorf("store: add infra option %s/%s: %w", opt.Type, opt.Name, err)
	}
	return nil
}

// ListInfraOptions returns catalog entries, optionally filtered by type,
// ordered for menu display.
func ListInfraOptions(gdb *gorm.DB, infType models.InfraType) ([]models.InfraOption, error) {
	q := gdb.Model(&models.InfraOption{})
	if infType != "" {
		q = q.Where("opttype = ?", infType)
	}
	var opts []models.InfraOption
	if err := q.Order("opttype ASC, optsortorder ASC, optname ASC").Find(&opts).Error; err != nil {
		return nil, fmt.Errorf("store: list infra options: %w", err)
	}
	return opts, nil
}

// DeleteInfraOption removes one catalog entry.
func DeleteInfraOption(gdb *gorm.DB, optID uint) error {
	result := gdb.Where("optid = ?", optID).Delete(&models.InfraOption{})
	if result.Error != nil {
		return fmt.Errorf("store: delete infra option %d: %w", optID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: infra option %d", ErrNotFound, optID)
	}
	return nil
}
