package model

import (
	"time"

	"gorm.io/datatypes"
)

// Phase is one named state in the interview state machine.
type Phase string

const (
	PhaseGreeting                  Phase = "greeting"
	PhaseMilestoneIdentification   Phase = "milestone_identification"
	PhaseExtracurricularQuestion   Phase = "extracurricular_question"
	PhaseExtracurricularCollection Phase = "extracurricular_collection"
	PhaseAcademicStatsQuestion     Phase = "academic_stats_question"
	PhaseAcademicStatsCollection   Phase = "academic_stats_collection"
	PhaseAwardsQuestion            Phase = "awards_question"
	PhaseAwardsCollection          Phase = "awards_collection"
	PhaseIntermediateGoals         Phase = "intermediate_goals"
	PhaseExtraction                Phase = "extraction"
	PhaseCompleted                 Phase = "completed"
)

// TurnRole is the speaker of one conversation turn.
type TurnRole string

const (
	TurnRoleUser      TurnRole = "user"
	TurnRoleAssistant TurnRole = "assistant"
)

// ConversationTurn is one utterance in a session's history. History is
// append-only and insertion order is significant.
type ConversationTurn struct {
	Role    TurnRole `json:"role"`
	Content string   `json:"content"`
}

// CollectedItem is a freeform item as held in session state before (and
// in addition to) its persisted FreeformItem row.
type CollectedItem struct {
	Category    ItemCategory `json:"category"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	AddedAt     time.Time    `json:"added_at"`
}

// InterviewSession is one interview instance. The same struct serves as
// the in-memory session state and as its audit snapshot in the
// interview_sessions table (history and items land in JSONB columns).
type InterviewSession struct {
	ID                   string                                `gorm:"type:varchar(64);primaryKey" json:"id"`
	SubjectID            uint                                  `gorm:"not null;index" json:"subject_id"`
	Phase                Phase                                 `gorm:"type:varchar(40);not null" json:"phase"`
	History              datatypes.JSONSlice[ConversationTurn] `gorm:"type:jsonb" json:"history"`
	CollectedItems       datatypes.JSONSlice[CollectedItem]    `gorm:"type:jsonb" json:"collected_items"`
	IdentifiedMilestones datatypes.JSONSlice[string]           `gorm:"type:jsonb" json:"identified_milestones"`
	MilestoneRetries     int                                   `gorm:"default:0" json:"milestone_retries"`
	IntermediateTurns    int                                   `gorm:"default:0" json:"intermediate_turns"`
	SummaryGenerated     bool                                  `gorm:"default:false" json:"summary_generated"`
	LastActivityAt       time.Time                             `json:"last_activity_at"`
	CreatedAt            time.Time                             `json:"created_at"`
	UpdatedAt            time.Time                             `json:"updated_at"`
}

// TableName specifies the table name for InterviewSession
func (InterviewSession) TableName() string {
	return "interview_sessions"
}

// AppendTurn records one utterance at the end of the history.
func (s *InterviewSession) AppendTurn(role TurnRole, content string) {
	s.History = append(s.History, ConversationTurn{Role: role, Content: content})
}

// RecentHistory returns at most n of the most recent turns, oldest first.
func (s *InterviewSession) RecentHistory(n int) []ConversationTurn {
	if n <= 0 || len(s.History) <= n {
		return []ConversationTurn(s.History)
	}
	return []ConversationTurn(s.History[len(s.History)-n:])
}

// AddItem appends a collected freeform item tagged with its category.
func (s *InterviewSession) AddItem(category ItemCategory, title, description string) CollectedItem {
	item := CollectedItem{
		Category:    category,
		Title:       title,
		Description: description,
		AddedAt:     time.Now().UTC(),
	}
	s.CollectedItems = append(s.CollectedItems, item)
	return item
}

// ItemsFor returns the collected items matching one category tag, in
// submission order.
func (s *InterviewSession) ItemsFor(category ItemCategory) []CollectedItem {
	var out []CollectedItem
	for _, item := range s.CollectedItems {
		if item.Category == category {
			out = append(out, item)
		}
	}
	return out
}

// IsTerminal reports whether the session accepts further phase changes.
func (s *InterviewSession) IsTerminal() bool {
	return s.Phase == PhaseCompleted
}
