package model

import "time"

// ItemCategory tags a freeform item with the collection sub-phase that
// produced it.
type ItemCategory string

const (
	ItemCategoryExtracurricular ItemCategory = "extracurricular"
	ItemCategoryAcademicStat    ItemCategory = "academic_stat"
	ItemCategoryAward           ItemCategory = "award"
)

// FreeformItem is one (title, description) pair collected during an
// extracurricular / academic stats / awards sub-phase.
type FreeformItem struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	SubjectID   uint         `gorm:"not null;index" json:"subject_id"`
	CategoryTag ItemCategory `gorm:"type:varchar(30);not null" json:"category_tag"`
	Title       string       `gorm:"type:varchar(255);not null" json:"title"`
	Description string       `gorm:"type:text;not null" json:"description"`
	CreatedAt   time.Time    `json:"created_at"`
}

// TableName specifies the table name for FreeformItem
func (FreeformItem) TableName() string {
	return "freeform_items"
}
