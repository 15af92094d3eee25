package model

import "time"

// Subject is the student being interviewed. The row is created once when
// the interview starts and treated as read-only afterwards, apart from
// the optional academic fields which may be filled in later.
type Subject struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	Name                string    `gorm:"type:varchar(100);not null" json:"name"`
	Email               string    `gorm:"type:varchar(255)" json:"email"`
	Age                 int       `gorm:"not null" json:"age"`
	Location            string    `gorm:"type:varchar(255);not null" json:"location"`
	Highschool          string    `gorm:"type:varchar(255)" json:"highschool,omitempty"`
	GPA                 *float64  `json:"gpa,omitempty"`
	SATACTScore         string    `gorm:"type:varchar(50)" json:"sat_act,omitempty"`
	ExplorationOpenness string    `gorm:"type:varchar(20);default:'medium'" json:"exploration_openness"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// TableName keeps the original relational layout.
func (Subject) TableName() string {
	return "students"
}
