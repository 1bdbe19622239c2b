package db

import (
	"errors"
	"fmt"
	"time"

	"github.com/mkettering/foreman/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaintenanceProjectName is the reserved project that receives auto-filed
// bug-fix requests when a dispatch fails terminally.
const MaintenanceProjectName = "maintenance"

// AllModels returns every GORM model for migration, in FK dependency order.
func AllModels() []interface{} {
	return []interface{}{
		&models.Project{},
		&models.Request{},
		&models.Infrastructure{},
		&models.RequestInfrastructure{},
		&models.Learning{},
		&models.InfraOption{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// SeedMaintenanceProject ensures the reserved maintenance project exists and
// returns its id.
func SeedMaintenanceProject(gdb *gorm.DB) (uint, error) {
	var existing models.Project
	err := gdb.Where("prjname = ?", MaintenanceProjectName).First(&existing).Error
	if err == nil {
		return existing.PrjID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("db: look up maintenance project: %w", err)
	}

	prj := models.Project{
		Name:      MaintenanceProjectName,
		Version:   models.VersionV1,
		Priority:  models.EscalationPriority,
		Phase:     models.ProjectDev,
		Desc:      "Reserved project for auto-filed bug-fix requests.",
		TouchedAt: time.Now(),
	}
	if err := gdb.Create(&prj).Error; err != nil {
		return 0, fmt.Errorf("db: seed maintenance project: %w", err)
	}
	return prj.PrjID, nil
}

// defaultInfraOptions is the selectable catalog per infra type. Local comes
// first in each group.
var defaultInfraOptions = []models.InfraOption{
	{Type: models.InfraCompute, Name: "Local", Provider: models.ProviderLocal, SortOrder: 0},
	{Type: models.InfraCompute, Name: "AWS Lambda", Provider: models.ProviderAWS, SortOrder: 1},
	{Type: models.InfraCompute, Name: "AWS EC2", Provider: models.ProviderAWS, SortOrder: 2},
	{Type: models.InfraCompute, Name: "GCP Cloud Functions", Provider: models.ProviderGCP, SortOrder: 3},
	{Type: models.InfraCompute, Name: "Azure Functions", Provider: models.ProviderAzure, SortOrder: 4},
	{Type: models.InfraCompute, Name: "Container (Docker)", Provider: models.ProviderContainer, SortOrder: 5},

	{Type: models.InfraStorage, Name: "Local", Provider: models.ProviderLocal, SortOrder: 0},
	{Type: models.InfraStorage, Name: "AWS AuroraDB", Provider: models.ProviderAWS, SortOrder: 1},
	{Type: models.InfraStorage, Name: "AWS DynamoDB", Provider: models.ProviderAWS, SortOrder: 2},
	{Type: models.InfraStorage, Name: "AWS S3", Provider: models.ProviderAWS, SortOrder: 3},
	{Type: models.InfraStorage, Name: "GCP Cloud SQL", Provider: models.ProviderGCP, SortOrder: 4},
	{Type: models.InfraStorage, Name: "Azure SQL", Provider: models.ProviderAzure, SortOrder: 5},

	{Type: models.InfraQueue, Name: "Local", Provider: models.ProviderLocal, SortOrder: 0},
	{Type: models.InfraQueue, Name: "AWS Kinesis", Provider: models.ProviderAWS, SortOrder: 1},
	{Type: models.InfraQueue, Name: "AWS SQS", Provider: models.ProviderAWS, SortOrder: 2},
	{Type: models.InfraQueue, Name: "GCP Pub/Sub", Provider: models.ProviderGCP, SortOrder: 3},
	{Type: models.InfraQueue, Name: "Azure Service Bus", Provider: models.ProviderAzure, SortOrder: 4},

	{Type: models.InfraAccess, Name: "Local", Provider: models.ProviderLocal, SortOrder: 0},
	{Type: models.InfraAccess, Name: "AWS API Gateway", Provider: models.ProviderAWS, SortOrder: 1},
	{Type: models.InfraAccess, Name: "GCP API Gateway", Provider: models.ProviderGCP, SortOrder: 2},
	{Type: models.InfraAccess, Name: "Azure API Management", Provider: models.ProviderAzure, SortOrder: 3},
	{Type: models.InfraAccess, Name: "Direct", Provider: models.ProviderLocal, SortOrder: 4},

	{Type: models.InfraUI, Name: "Local", Provider: models.ProviderLocal, SortOrder: 0},
	{Type: models.InfraUI, Name: "Container (Docker)", Provider: models.ProviderContainer, SortOrder: 1},
}

// SeedInfraOptions upserts the default infra option catalog and returns the
// number of rows written.
func SeedInfraOptions(gdb *gorm.DB) (int, error) {
	for _, opt := range defaultInfraOptions {
		result := gdb.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "opttype"}, {Name: "optname"}},
			DoUpdates: clause.AssignmentColumns([]string{"optprovider", "optsortorder"}),
		}).Create(&opt)
		if result.Error != nil {
			return 0, fmt.Errorf("db: seed infra option %s/%s: %w", opt.Type, opt.Name, result.Error)
		}
	}
	return len(defaultInfraOptions), nil
}
