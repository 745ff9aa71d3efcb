package migrate

import (
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pedalacom/catalog-api/internal/database"
)

func TestTableStatusReportsMissingThenPresent(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:migrate_status?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	before := tableStatus(db)
	if len(before) != len(database.Models()) {
		t.Fatalf("expected one line per model, got %v", before)
	}
	for _, line := range before {
		if !strings.HasSuffix(line, ": missing") {
			t.Fatalf("expected missing table before migrate, got %q", line)
		}
	}

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for _, line := range tableStatus(db) {
		if !strings.HasSuffix(line, ": present") {
			t.Fatalf("expected present table after migrate, got %q", line)
		}
	}
}

func TestTableNameUsesGormNaming(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:migrate_names?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	got := tableName(db, database.Models()[len(database.Models())-1])
	if got != "products" {
		t.Fatalf("expected products table, got %q", got)
	}
}
