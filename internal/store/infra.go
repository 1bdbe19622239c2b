package store

import (
	"fmt"
	"sort"

	"github.com/mkettering/foreman/internal/models"
	"gorm.io/gorm"
)

// AddProjectInfra declares infrastructure for a project.
func AddProjectInfra(gdb *gorm.DB, inf *models.Infrastructure) error {
	if !inf.Type.Valid() {
		return fmt.Errorf("store: invalid infra type %q", inf.Type)
	}
	if inf.Provider == "" {
		inf.Provider = models.ProviderLocal
	}
	if !inf.Provider.Valid() {
		return fmt.Errorf("store: invalid provider %q", inf.Provider)
	}
	if _, err := GetProject(gdb, inf.PrjID); err != nil {
		return err
	}
	if err := gdb.Create(inf).Error; err != nil {
		return fmt.Errorf("store: add project infra: %w", err)
	}
	return nil
}

// ListProjectInfra returns a project's infrastructure rows.
func ListProjectInfra(gdb *gorm.DB, prjID uint) ([]models.Infrastructure, error) {
	var rows []models.Infrastructure
	if err := gdb.Where("prjid = ?", prjID).Order("inftype ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: list infra of project %d: %w", prjID, err)
	}
	return rows, nil
}

// DeleteProjectInfra removes one project infrastructure row.
func DeleteProjectInfra(gdb *gorm.DB, infID uint) error {
	result := gdb.Where("infid = ?", infID).Delete(&models.Infrastructure{})
	if result.Error != nil {
		return fmt.Errorf("store: delete infra %d: %w", infID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: infra %d", ErrNotFound, infID)
	}
	return nil
}

// AddRequestInfra declares a request-level infrastructure override.
func AddRequestInfra(gdb *gorm.DB, inf *models.RequestInfrastructure) error {
	if !inf.Type.Valid() {
		return fmt.Errorf("store: invalid infra type %q", inf.Type)
	}
	if inf.Provider == "" {
		inf.Provider = models.ProviderLocal
	}
	if !inf.Provider.Valid() {
		return fmt.Errorf("store: invalid provider %q", inf.Provider)
	}
	if _, err := GetRequest(gdb, inf.ReqID); err != nil {
		return err
	}
	if err := gdb.Create(inf).Error; err != nil {
		return fmt.Errorf("store: add request infra: %w", err)
	}
	return nil
}

// ListRequestInfra returns a request's infrastructure overrides.
func ListRequestInfra(gdb *gorm.DB, reqID uint) ([]models.RequestInfrastructure, error) {
	var rows []models.RequestInfrastructure
	if err := gdb.Where("reqid = ?", reqID).Order("inftype ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: list infra of request %d: %w", reqID, err)
	}
	return rows, nil
}

// DeleteRequestInfra removes one request infrastructure override.
func DeleteRequestInfra(gdb *gorm.DB, infID uint) error {
	result := gdb.Where("infid = ?", infID).Delete(&models.RequestInfrastructure{})
	if result.Error != nil {
		return fmt.Errorf("store: delete request infra %d: %w", infID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: request infra %d", ErrNotFound, infID)
	}
	return nil
}

// EffectiveInfrastructure computes the per-type infrastructure for a request:
// project rows first, overlaid by request rows of the same type (request
// wins). Each entry is tagged with the level that contributed it. The result
// is sorted by type for stable output.
func EffectiveInfrastructure(gdb *gorm.DB, reqID uint) ([]models.EffectiveInfra, error) {
	req, err := GetRequest(gdb, reqID)
	if err != nil {
		return nil, err
	}

	prjRows, err := ListProjectInfra(gdb, req.PrjID)
	if err != nil {
		return nil, err
	}
	reqRows, err := ListRequestInfra(gdb, reqID)
	if err != nil {
		return nil, err
	}

	merged := make(map[models.InfraType]models.EffectiveInfra, len(prjRows))
	for _, r := range prjRows {
		merged[r.Type] = models.EffectiveInfra{
			Type: r.Type, Provider: r.Provider, Value: r.Value, Note: r.Note,
			Source: "project",
		}
	}
	for _, r := range reqRows {
		merged[r.Type] = models.EffectiveInfra{
			Type: r.Type, Provider: r.Provider, Value: r.Value, Note: r.Note,
			Source: "request",
		}
	}

	out := make([]models.EffectiveInfra, 0, len(merged))
	for _, e := range merged {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}
