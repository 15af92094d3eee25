package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ultraintel/counselor-api/model"
	"github.com/ultraintel/counselor-api/services/spaces"
	"github.com/ultraintel/counselor-api/taxonomy"
)

// ExportService writes a completed interview to a JSON file and, when an
// archive bucket is configured, uploads a copy.
type ExportService struct {
	dir         string
	subjects    *SubjectService
	assignments *AssignmentService
	archive     *spaces.SpacesClient
}

// NewExportService creates an export service. archive may be nil to keep
// exports local only.
func NewExportService(dir string, subjects *SubjectService, assignments *AssignmentService, archive *spaces.SpacesClient) *ExportService {
	return &ExportService{
		dir:         dir,
		subjects:    subjects,
		assignments: assignments,
		archive:     archive,
	}
}

// sessionExport is the on-disk shape of one exported interview
type sessionExport struct {
	SubjectInfo          *model.Subject                               `json:"subject_info"`
	SessionID            string                                       `json:"session_id"`
	SessionDate          time.Time                                    `json:"session_date"`
	IdentifiedMilestones []string                                     `json:"identified_milestone_goals"`
	CollectedItems       []model.CollectedItem                        `json:"collected_items"`
	ConversationHistory  []model.ConversationTurn                     `json:"conversation_history"`
	Assignments          map[taxonomy.Dimension][]model.AssignmentRow `json:"assignments"`
	Summary              exportSummary                                `json:"summary"`
}

type exportSummary struct {
	TotalGoalsIdentified   int         `json:"total_goals_identified"`
	TotalSkillsIdentified  int         `json:"total_skills_identified"`
	TotalSectorsIdentified int         `json:"total_sectors_identified"`
	ConversationLength     int         `json:"conversation_length"`
	PhaseCompleted         model.Phase `json:"phase_completed"`
}

// archiveLinkTTL bounds how long a presigned export download stays valid
const archiveLinkTTL = 24 * time.Hour

// ExportSession assembles the full interview record and writes it under
// the export directory. Upload failures only log; the local file is the
// export of record. When the archive upload succeeds the returned URL
// is a presigned download link.
func (e *ExportService) ExportSession(ctx context.Context, session *model.InterviewSession) (path, url string, err error) {
	subject, err := e.subjects.GetSubject(ctx, session.SubjectID)
	if err != nil {
		return "", "", err
	}
	assignments, err := e.assignments.GetAllAssignments(ctx, session.SubjectID)
	if err != nil {
		return "", "", err
	}

	export := sessionExport{
		SubjectInfo:          subject,
		SessionID:            session.ID,
		SessionDate:          time.Now().UTC(),
		IdentifiedMilestones: session.IdentifiedMilestones,
		CollectedItems:       session.CollectedItems,
		ConversationHistory:  session.History,
		Assignments:          assignments,
		Summary: exportSummary{
			TotalGoalsIdentified: len(assignments[taxonomy.DimensionMilestoneGoal]) +
				len(assignments[taxonomy.DimensionIntermediateMilestone]),
			TotalSkillsIdentified:  len(assignments[taxonomy.DimensionSkill]),
			TotalSectorsIdentified: len(assignments[taxonomy.DimensionSector]),
			ConversationLength:     len(session.History),
			PhaseCompleted:         session.Phase,
		},
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("failed to encode export: %w", err)
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create export directory: %w", err)
	}

	filename := fmt.Sprintf("student_%d_%s_%s.json",
		subject.ID,
		strings.ReplaceAll(subject.Name, " ", "_"),
		time.Now().UTC().Format("2006-01-02T15-04-05"))
	path = filepath.Join(e.dir, filename)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write export: %w", err)
	}
	log.Printf("[EXPORT] session %s exported to %s", session.ID, path)

	if e.archive != nil {
		key := spaces.ExportKey(session.ID)
		if _, err := e.archive.UploadJSON(ctx, key, data); err != nil {
			log.Printf("[EXPORT] session %s: archive upload failed: %v", session.ID, err)
		} else if url, err = e.archive.GetPresignedURL(key, archiveLinkTTL); err != nil {
			log.Printf("[EXPORT] session %s: presign failed: %v", session.ID, err)
			url = ""
		} else {
			log.Printf("[EXPORT] session %s archived under %s", session.ID, key)
		}
	}

	return path, url, nil
}

// ArchiveLink locates the most recent archived export for a session and
// returns a presigned download link. Empty when no archive is configured
// or nothing has been uploaded for the session yet.
func (e *ExportService) ArchiveLink(ctx context.Context, sessionID string) string {
	if e.archive == nil {
		return ""
	}

	keys, err := e.archive.ListExports(ctx, "exports/")
	if err != nil {
		log.Printf("[EXPORT] session %s: archive listing failed: %v", sessionID, err)
		return ""
	}

	// Keys embed the date and a unix timestamp, so the lexicographic
	// maximum among a session's keys is its newest export.
	var latest string
	for _, key := range keys {
		if strings.Contains(key, sessionID) && key > latest {
			latest = key
		}
	}
	if latest == "" {
		return ""
	}

	url, err := e.archive.GetPresignedURL(latest, archiveLinkTTL)
	if err != nil {
		log.Printf("[EXPORT] session %s: presign failed: %v", sessionID, err)
		return ""
	}
	return url
}
