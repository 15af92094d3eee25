package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ultraintel/counselor-api/model"
	"github.com/ultraintel/counselor-api/taxonomy"
)

// AssignmentService persists ranked category assignments, one table per
// dimension.
type AssignmentService struct {
	db *gorm.DB
}

// NewAssignmentService creates a new assignment service
func NewAssignmentService(db *gorm.DB) *AssignmentService {
	return &AssignmentService{db: db}
}

// UpsertAssignment writes one (subject, category) assignment. Replays
// and re-runs are safe: the row is keyed on (subject_id, category_name)
// and a conflict only refreshes the rank. Under concurrent writers the
// last writer wins.
func (s *AssignmentService) UpsertAssignment(ctx context.Context, subjectID uint, a model.Assignment) error {
	if !taxonomy.IsValid(a.Dimension, a.CategoryName) {
		return fmt.Errorf("unknown category %q for dimension %s", a.CategoryName, a.Dimension)
	}
	if a.Rank <= 0 {
		return fmt.Errorf("rank must be positive, got %d", a.Rank)
	}

	row := model.AssignmentRow{
		SubjectID:    subjectID,
		CategoryName: a.CategoryName,
		Rank:         a.Rank,
		UpdatedAt:    time.Now().UTC(),
	}

	err := s.db.WithContext(ctx).
		Table(string(a.Dimension)).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "subject_id"}, {Name: "category_name"}},
			DoUpdates: clause.AssignmentColumns([]string{"rank", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert %s/%s: %w", a.Dimension, a.CategoryName, err)
	}
	return nil
}

// SaveExtraction persists every assignment of a validated extraction.
// Each row is upserted independently so one bad write does not discard
// the rest; the first error is returned after the full pass.
func (s *AssignmentService) SaveExtraction(ctx context.Context, subjectID uint, result ExtractionResult) (int, error) {
	var saved int
	var firstErr error
	for _, a := range result.Assignments {
		if err := s.UpsertAssignment(ctx, subjectID, a); err != nil {
			log.Printf("[ASSIGNMENT] save failed for subject %d: %v", subjectID, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		saved++
	}
	return saved, firstErr
}

// GetAssignments returns one dimension's rows for a subject, best rank
// first. A subject with no rows yields an empty slice.
func (s *AssignmentService) GetAssignments(ctx context.Context, subjectID uint, dim taxonomy.Dimension) ([]model.AssignmentRow, error) {
	if !taxonomy.IsDimension(string(dim)) {
		return nil, fmt.Errorf("unknown dimension %q", dim)
	}

	rows := []model.AssignmentRow{}
	err := s.db.WithContext(ctx).
		Table(string(dim)).
		Where("subject_id = ?", subjectID).
		Order("rank ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load %s assignments: %w", dim, err)
	}
	return rows, nil
}

// GetAllAssignments returns every dimension's rows for a subject, keyed
// by dimension.
func (s *AssignmentService) GetAllAssignments(ctx context.Context, subjectID uint) (map[taxonomy.Dimension][]model.AssignmentRow, error) {
	out := make(map[taxonomy.Dimension][]model.AssignmentRow, 4)
	for _, dim := range taxonomy.Dimensions() {
		rows, err := s.GetAssignments(ctx, subjectID, dim)
		if err != nil {
			return nil, err
		}
		out[dim] = rows
	}
	return out, nil
}
