package model

import (
	"time"

	"github.com/ultraintel/counselor-api/taxonomy"
)

// Assignment is the dimension-agnostic view of one ranked classification
// fact. Rank 1 is the most important; ties within a dimension are
// permitted and preserved as-is.
type Assignment struct {
	Dimension    taxonomy.Dimension `json:"dimension"`
	CategoryName string             `json:"category_name"`
	Rank         int                `json:"rank"`
}

// AssignmentRow is the storage shape shared by the four dimension tables.
// It has no TableName on purpose: the persistence layer selects the table
// per dimension with db.Table().
type AssignmentRow struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubjectID    uint      `gorm:"not null" json:"subject_id"`
	CategoryName string    `gorm:"type:varchar(100);not null" json:"category_name"`
	Rank         int       `gorm:"not null" json:"rank"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// The four migration models below exist so AutoMigrate creates one table
// per dimension with its own unique constraint on (subject_id,
// category_name). Upserts rely on those constraints, not on locking.

type MilestoneGoal struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubjectID    uint      `gorm:"not null;uniqueIndex:uniq_milestone_goals_subject_category" json:"subject_id"`
	CategoryName string    `gorm:"type:varchar(100);not null;uniqueIndex:uniq_milestone_goals_subject_category" json:"category_name"`
	Rank         int       `gorm:"not null" json:"rank"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (MilestoneGoal) TableName() string { return string(taxonomy.DimensionMilestoneGoal) }

type IntermediateMilestone struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubjectID    uint      `gorm:"not null;uniqueIndex:uniq_intermediate_milestones_subject_category" json:"subject_id"`
	CategoryName string    `gorm:"type:varchar(100);not null;uniqueIndex:uniq_intermediate_milestones_subject_category" json:"category_name"`
	Rank         int       `gorm:"not null" json:"rank"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (IntermediateMilestone) TableName() string {
	return string(taxonomy.DimensionIntermediateMilestone)
}

type Skill struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubjectID    uint      `gorm:"not null;uniqueIndex:uniq_skills_subject_category" json:"subject_id"`
	CategoryName string    `gorm:"type:varchar(100);not null;uniqueIndex:uniq_skills_subject_category" json:"category_name"`
	Rank         int       `gorm:"not null" json:"rank"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Skill) TableName() string { return string(taxonomy.DimensionSkill) }

type Sector struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubjectID    uint      `gorm:"not null;uniqueIndex:uniq_sectors_subject_category" json:"subject_id"`
	CategoryName string    `gorm:"type:varchar(100);not null;uniqueIndex:uniq_sectors_subject_category" json:"category_name"`
	Rank         int       `gorm:"not null" json:"rank"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Sector) TableName() string { return string(taxonomy.DimensionSector) }
