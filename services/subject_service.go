package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/ultraintel/counselor-api/model"
)

// SubjectService manages student records and their freeform items
type SubjectService struct {
	db *gorm.DB
}

// NewSubjectService creates a new subject service
func NewSubjectService(db *gorm.DB) *SubjectService {
	return &SubjectService{db: db}
}

// CreateSubjectRequest is the intake form submitted before an interview
type CreateSubjectRequest struct {
	Name       string   `json:"name" validate:"required,min=1,max=255"`
	Email      string   `json:"email" validate:"omitempty,email"`
	Age        int      `json:"age" validate:"required,min=10,max=100"`
	Location   string   `json:"location" validate:"required,min=1,max=255"`
	Highschool string   `json:"highschool" validate:"omitempty,max=255"`
	GPA        *float64 `json:"gpa" validate:"omitempty,min=0,max=10"`
	SATACT     string   `json:"sat_act" validate:"omitempty,max=50"`
}

// CreateSubject creates a student record from the intake form. Students
// who skip the email field get a synthetic placeholder address.
func (s *SubjectService) CreateSubject(ctx context.Context, req CreateSubjectRequest) (*model.Subject, error) {
	email := req.Email
	if email == "" {
		email = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(req.Name), " ", ".")) + "@student.temp"
	}

	subject := model.Subject{
		Name:                req.Name,
		Email:               email,
		Age:                 req.Age,
		Location:            req.Location,
		Highschool:          req.Highschool,
		GPA:                 req.GPA,
		SATACTScore:         req.SATACT,
		ExplorationOpenness: "medium",
	}

	if err := s.db.WithContext(ctx).Create(&subject).Error; err != nil {
		return nil, fmt.Errorf("failed to create student: %w", err)
	}
	return &subject, nil
}

// GetSubject loads one student by ID
func (s *SubjectService) GetSubject(ctx context.Context, id uint) (*model.Subject, error) {
	var subject model.Subject
	if err := s.db.WithContext(ctx).First(&subject, id).Error; err != nil {
		return nil, fmt.Errorf("failed to load student %d: %w", id, err)
	}
	return &subject, nil
}

// SaveFreeformItem persists one collected item row
func (s *SubjectService) SaveFreeformItem(ctx context.Context, subjectID uint, category model.ItemCategory, title, description string) (*model.FreeformItem, error) {
	item := model.FreeformItem{
		SubjectID:   subjectID,
		CategoryTag: category,
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
	}

	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, fmt.Errorf("failed to save item: %w", err)
	}
	return &item, nil
}

// ListFreeformItems returns a student's items in submission order
func (s *SubjectService) ListFreeformItems(ctx context.Context, subjectID uint) ([]model.FreeformItem, error) {
	items := []model.FreeformItem{}
	err := s.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load items: %w", err)
	}
	return items, nil
}
