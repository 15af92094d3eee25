package services

import (
	"context"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ultraintel/counselor-api/model"
	"github.com/ultraintel/counselor-api/taxonomy"
)

// newTestDB opens an isolated in-memory database with the full schema
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&model.Subject{},
		&model.MilestoneGoal{},
		&model.IntermediateMilestone{},
		&model.Skill{},
		&model.Sector{},
		&model.FreeformItem{},
		&model.InterviewSession{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test schema: %v", err)
	}
	return db
}

func TestUpsertAssignmentIdempotent(t *testing.T) {
	svc := NewAssignmentService(newTestDB(t))
	ctx := context.Background()

	first := model.Assignment{Dimension: taxonomy.DimensionSkill, CategoryName: "programming_languages", Rank: 3}
	second := model.Assignment{Dimension: taxonomy.DimensionSkill, CategoryName: "programming_languages", Rank: 1}

	if err := svc.UpsertAssignment(ctx, 7, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := svc.UpsertAssignment(ctx, 7, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	rows, err := svc.GetAssignments(ctx, 7, taxonomy.DimensionSkill)
	if err != nil {
		t.Fatalf("get assignments: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected exactly 1 row after repeat upsert, got %d", len(rows))
	}
	// Last writer wins
	if rows[0].Rank != 1 {
		t.Fatalf("expected latest rank 1, got %d", rows[0].Rank)
	}
}

func TestUpsertAssignmentRejectsUnknownCategory(t *testing.T) {
	svc := NewAssignmentService(newTestDB(t))

	err := svc.UpsertAssignment(context.Background(), 1, model.Assignment{
		Dimension:    taxonomy.DimensionSkill,
		CategoryName: "juggling",
		Rank:         1,
	})
	if err == nil {
		t.Fatal("expected error for unknown category")
	}
}

func TestUpsertAssignmentRejectsNonPositiveRank(t *testing.T) {
	svc := NewAssignmentService(newTestDB(t))

	err := svc.UpsertAssignment(context.Background(), 1, model.Assignment{
		Dimension:    taxonomy.DimensionSector,
		CategoryName: "consulting",
		Rank:         0,
	})
	if err == nil {
		t.Fatal("expected error for non-positive rank")
	}
}

func TestGetAssignmentsOrderedByRank(t *testing.T) {
	svc := NewAssignmentService(newTestDB(t))
	ctx := context.Background()

	seed := []model.Assignment{
		{Dimension: taxonomy.DimensionMilestoneGoal, CategoryName: "medical_school_path", Rank: 2},
		{Dimension: taxonomy.DimensionMilestoneGoal, CategoryName: "startup_founding", Rank: 1},
		{Dimension: taxonomy.DimensionMilestoneGoal, CategoryName: "full_scholarship", Rank: 3},
	}
	for _, a := range seed {
		if err := svc.UpsertAssignment(ctx, 5, a); err != nil {
			t.Fatalf("seed upsert: %v", err)
		}
	}

	rows, err := svc.GetAssignments(ctx, 5, taxonomy.DimensionMilestoneGoal)
	if err != nil {
		t.Fatalf("get assignments: %v", err)
	}
	want := []string{"startup_founding", "medical_school_path", "full_scholarship"}
	if len(rows) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(rows))
	}
	for i, name := range want {
		if rows[i].CategoryName != name {
			t.Fatalf("row %d: got %s, want %s", i, rows[i].CategoryName, name)
		}
	}
}

func TestGetAssignmentsEmptyDimension(t *testing.T) {
	svc := NewAssignmentService(newTestDB(t))

	rows, err := svc.GetAssignments(context.Background(), 99, taxonomy.DimensionSector)
	if err != nil {
		t.Fatalf("empty dimension should not error: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected empty slice, got %d rows", len(rows))
	}
}

// Taxonomy containment: everything SaveExtraction persists must belong
// to its dimension's taxonomy, regardless of what the validator let in.
func TestSaveExtractionTaxonomyContainment(t *testing.T) {
	svc := NewAssignmentService(newTestDB(t))
	ctx := context.Background()

	raw := `{
		"milestone_goals":[{"category_name":"startup_founding","ranking":1},{"category_name":"fake_goal","ranking":2}],
		"skills":[{"category_name":"programming_languages","ranking":1}],
		"sectors":[{"category_name":"software_technology","ranking":1},{"category_name":"SOFTWARE_TECHNOLOGY","ranking":2}]
	}`
	result := ValidateExtraction(raw)

	saved, err := svc.SaveExtraction(ctx, 3, result)
	if err != nil {
		t.Fatalf("save extraction: %v", err)
	}
	if saved != 3 {
		t.Fatalf("expected 3 saved rows, got %d", saved)
	}

	all, err := svc.GetAllAssignments(ctx, 3)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	for dim, rows := range all {
		for _, row := range rows {
			if !taxonomy.IsValid(dim, row.CategoryName) {
				t.Fatalf("dimension %s contains out-of-taxonomy category %q", dim, row.CategoryName)
			}
		}
	}
}

func TestGetAllAssignmentsCoversEveryDimension(t *testing.T) {
	svc := NewAssignmentService(newTestDB(t))

	all, err := svc.GetAllAssignments(context.Background(), 42)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 dimensions, got %d", len(all))
	}
	for _, dim := range taxonomy.Dimensions() {
		if _, ok := all[dim]; !ok {
			t.Fatalf("dimension %s missing from result", dim)
		}
	}
}
