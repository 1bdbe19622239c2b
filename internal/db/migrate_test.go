package db

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mkettering/foreman/internal/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func TestSeedMaintenanceProjectIdempotent(t *testing.T) {
	gdb := testDB(t)

	first, err := SeedMaintenanceProject(gdb)
	if err != nil {
		t.Fatalf("first seed: %v", err)
	}
	second, err := SeedMaintenanceProject(gdb)
	if err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if first != second {
		t.Errorf("seed created duplicate projects: %d vs %d", first, second)
	}

	var prj models.Project
	if err := gdb.Where("prjid = ?", first).First(&prj).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if prj.Name != MaintenanceProjectName {
		t.Errorf("name = %q", prj.Name)
	}
	if prj.Priority != models.EscalationPriority {
		t.Errorf("priority = %d, want %d", prj.Priority, models.EscalationPriority)
	}
}

func TestSeedInfraOptionsIdempotent(t *testing.T) {
	gdb := testDB(t)

	n, err := SeedInfraOptions(gdb)
	if err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if n == 0 {
		t.Fatal("no options seeded")
	}
	if _, err := SeedInfraOptions(gdb); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	var count int64
	if err := gdb.Model(&models.InfraOption{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != int64(n) {
		t.Errorf("option count = %d after reseed, want %d", count, n)
	}

	// Every infra type has a Local entry so the local-only path is reachable
	// from the catalog.
	for _, it := range models.InfraTypes {
		var c int64
		if err := gdb.Model(&models.InfraOption{}).
			Where("opttype = ? AND optprovider = ?", it, models.ProviderLocal).
			Count(&c).Error; err != nil {
			t.Fatalf("count %s: %v", it, err)
		}
		if c == 0 {
			t.Errorf("no local option for %s", it)
		}
	}
}
