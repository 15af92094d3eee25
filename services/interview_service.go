package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ultraintel/counselor-api/model"
	"github.com/ultraintel/counselor-api/services/openai"
	"github.com/ultraintel/counselor-api/taxonomy"
)

const (
	// historyWindow bounds how many recent turns accompany a
	// conversational completion call.
	historyWindow = 8
	// maxMilestoneRetries caps re-prompting when goal classification
	// keeps coming back empty. Past the cap the interview advances with
	// no identified milestones rather than looping forever.
	maxMilestoneRetries = 3
	// maxIntermediateTurns is the automatic exit for the strategic
	// counseling phase: after this many counselor turns the summary runs
	// on its own. An explicit summary request can end the phase earlier.
	maxIntermediateTurns = 6
)

var (
	// ErrNotAwaitingAnswer is returned when a yes/no answer arrives
	// outside a gate question phase.
	ErrNotAwaitingAnswer = errors.New("session is not awaiting a yes/no answer")
	// ErrNotCollecting is returned when an item arrives outside a
	// collection phase.
	ErrNotCollecting = errors.New("session is not collecting items")
	// ErrSummaryNotReady is returned when a summary is requested before
	// the interview reaches the strategic counseling phase.
	ErrSummaryNotReady = errors.New("interview has not reached the summary stage yet")
)

// InterviewService orchestrates the interview flow: phase transitions,
// completion calls, extraction and persistence.
type InterviewService struct {
	db          *gorm.DB
	store       SessionStore
	gateway     CompletionGateway
	subjects    *SubjectService
	assignments *AssignmentService
	export      *ExportService

	// Messages for one session are serialized: phase transitions are
	// not safe under interleaving.
	locks sync.Map
}

// NewInterviewService creates the interview orchestrator. export may be
// nil when archival is disabled.
func NewInterviewService(db *gorm.DB, store SessionStore, gateway CompletionGateway, subjects *SubjectService, assignments *AssignmentService, export *ExportService) *InterviewService {
	return &InterviewService{
		db:          db,
		store:       store,
		gateway:     gateway,
		subjects:    subjects,
		assignments: assignments,
		export:      export,
	}
}

func (s *InterviewService) lockSession(id string) func() {
	mu, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mutex := mu.(*sync.Mutex)
	mutex.Lock()
	return mutex.Unlock
}

// StartResult is the response to a new interview request
type StartResult struct {
	SessionID string      `json:"session_id"`
	SubjectID uint        `json:"subject_id"`
	Message   string      `json:"message"`
	Phase     model.Phase `json:"phase"`
}

// MessageResult is the response to one processed message or answer
type MessageResult struct {
	Message              string      `json:"message"`
	Phase                model.Phase `json:"phase"`
	IdentifiedMilestones []string    `json:"identified_milestones"`
}

// ItemResult is the response to one submitted freeform item
type ItemResult struct {
	Message    string      `json:"message"`
	Phase      model.Phase `json:"phase"`
	TotalItems int         `json:"total_items"`
}

// StatusResult is a read-only view of one session
type StatusResult struct {
	SessionID            string      `json:"session_id"`
	SubjectID            uint        `json:"subject_id"`
	Phase                model.Phase `json:"phase"`
	ConversationLength   int         `json:"conversation_length"`
	IdentifiedMilestones []string    `json:"identified_milestones"`
	CollectedItems       int         `json:"collected_items"`
	SummaryGenerated     bool        `json:"summary_generated"`
}

// SummaryResult is the response to a summary request
type SummaryResult struct {
	SubjectID   uint                                         `json:"subject_id"`
	Subject     *model.Subject                               `json:"subject"`
	Assignments map[taxonomy.Dimension][]model.AssignmentRow `json:"assignments"`
	Saved       int                                          `json:"saved"`
	Dropped     int                                          `json:"dropped"`
	Phase       model.Phase                                  `json:"phase"`
	ExportPath  string                                       `json:"export_path,omitempty"`
	ExportURL   string                                       `json:"export_url,omitempty"`
}

// StartInterview creates the subject record and a fresh session. The
// first outbound message is always the fixed greeting.
func (s *InterviewService) StartInterview(ctx context.Context, req CreateSubjectRequest) (*StartResult, error) {
	subject, err := s.subjects.CreateSubject(ctx, req)
	if err != nil {
		return nil, err
	}

	session := &model.InterviewSession{
		ID:             uuid.NewString(),
		SubjectID:      subject.ID,
		Phase:          model.PhaseGreeting,
		LastActivityAt: time.Now().UTC(),
	}
	session.AppendTurn(model.TurnRoleAssistant, GreetingMessage)

	// The greeting is delivered with this response; the next inbound
	// message lands in milestone identification.
	next, err := NextPhase(session.Phase, TriggerAdvance)
	if err != nil {
		return nil, err
	}
	session.Phase = next

	if err := s.persistSession(ctx, session); err != nil {
		return nil, err
	}

	return &StartResult{
		SessionID: session.ID,
		SubjectID: subject.ID,
		Message:   GreetingMessage,
		Phase:     session.Phase,
	}, nil
}

// HandleMessage processes one inbound chat message. When onChunk is
// non-nil the reply is streamed through it as it arrives; the full text
// is always buffered before any phase evaluation happens. Completed
// sessions log the message but never change phase.
func (s *InterviewService) HandleMessage(ctx context.Context, sessionID, message string, onChunk func(string) error) (*MessageResult, error) {
	unlock := s.lockSession(sessionID)
	defer unlock()

	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.IsTerminal() {
		session.AppendTurn(model.TurnRoleUser, message)
		if err := s.persistSession(ctx, session); err != nil {
			return nil, err
		}
		return s.result(session, completedMessage), nil
	}

	var reply string
	switch session.Phase {
	case model.PhaseMilestoneIdentification:
		reply, err = s.handleMilestoneMessage(ctx, session, message, onChunk)
	case model.PhaseIntermediateGoals:
		reply, err = s.handleIntermediateMessage(ctx, session, message, onChunk)
	default:
		reply = s.handleOffScriptMessage(session, message, onChunk)
	}
	if err != nil {
		return nil, err
	}

	if err := s.persistSession(ctx, session); err != nil {
		return nil, err
	}
	return s.result(session, reply), nil
}

// handleMilestoneMessage classifies the student's goal statement. Zero
// confident categories re-prompts up to the retry cap; past the cap the
// interview moves on with no identified milestones.
func (s *InterviewService) handleMilestoneMessage(ctx context.Context, session *model.InterviewSession, message string, onChunk func(string) error) (string, error) {
	session.AppendTurn(model.TurnRoleUser, message)

	milestones := s.classifyMilestones(ctx, message)
	if len(milestones) > 0 {
		session.IdentifiedMilestones = milestones
		reply := buildGateTransitionMessage(milestones)
		s.deliver(reply, onChunk)
		session.AppendTurn(model.TurnRoleAssistant, reply)
		return reply, s.advance(session, TriggerAdvance)
	}

	session.MilestoneRetries++
	if session.MilestoneRetries >= maxMilestoneRetries {
		log.Printf("[INTERVIEW] session %s: milestone classification exhausted after %d attempts", session.ID, session.MilestoneRetries)
		reply := buildGateTransitionMessage(nil)
		s.deliver(reply, onChunk)
		session.AppendTurn(model.TurnRoleAssistant, reply)
		return reply, s.advance(session, TriggerAdvance)
	}

	reply := s.converse(ctx, session,
		milestoneIdentificationSystemPrompt,
		buildMilestoneFollowupPrompt(message),
		milestoneFallbackQuestion,
		onChunk)
	session.AppendTurn(model.TurnRoleAssistant, reply)
	return reply, nil
}

// handleIntermediateMessage runs one strategic counseling turn. After
// the turn cap the summary runs automatically.
func (s *InterviewService) handleIntermediateMessage(ctx context.Context, session *model.InterviewSession, message string, onChunk func(string) error) (string, error) {
	session.AppendTurn(model.TurnRoleUser, message)

	prompt := buildIntermediateTurnPrompt(
		session.IdentifiedMilestones,
		session.CollectedItems,
		session.RecentHistory(historyWindow),
		message)

	reply := s.converse(ctx, session, intermediateGoalsSystemPrompt, prompt, intermediateFallbackQuestion, onChunk)
	session.AppendTurn(model.TurnRoleAssistant, reply)
	session.IntermediateTurns++

	if session.IntermediateTurns >= maxIntermediateTurns {
		if _, err := s.runSummary(ctx, session); err != nil {
			log.Printf("[INTERVIEW] session %s: automatic summary failed: %v", session.ID, err)
		}
	}
	return reply, nil
}

// handleOffScriptMessage answers chat messages sent during phases that
// expect a dedicated endpoint instead (gate answers, item submissions).
// The reply restates what the phase is waiting for; nothing mutates.
func (s *InterviewService) handleOffScriptMessage(session *model.InterviewSession, message string, onChunk func(string) error) string {
	session.AppendTurn(model.TurnRoleUser, message)

	var reply string
	switch session.Phase {
	case model.PhaseExtracurricularQuestion:
		reply = buildGateTransitionMessage(session.IdentifiedMilestones)
	case model.PhaseAcademicStatsQuestion:
		reply = academicStatsGateQuestion
	case model.PhaseAwardsQuestion:
		reply = awardsGateQuestion
	case model.PhaseExtracurricularCollection:
		reply = extracurricularCollectMessage
	case model.PhaseAcademicStatsCollection:
		reply = academicStatsCollectMessage
	case model.PhaseAwardsCollection:
		reply = awardsCollectMessage
	default:
		reply = intermediateFallbackQuestion
	}

	s.deliver(reply, onChunk)
	session.AppendTurn(model.TurnRoleAssistant, reply)
	return reply
}

// HandleBinaryAnswer resolves a gate question. Answers other than a
// clear yes or no re-ask the question without changing phase.
func (s *InterviewService) HandleBinaryAnswer(ctx context.Context, sessionID, answer string) (*MessageResult, error) {
	unlock := s.lockSession(sessionID)
	defer unlock()

	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !IsGatePhase(session.Phase) {
		return nil, ErrNotAwaitingAnswer
	}

	trigger, ok := parseBinaryAnswer(answer)
	if !ok {
		reply := s.handleOffScriptMessage(session, answer, nil)
		if err := s.persistSession(ctx, session); err != nil {
			return nil, err
		}
		return s.result(session, reply), nil
	}

	session.AppendTurn(model.TurnRoleUser, answer)
	if err := s.advance(session, trigger); err != nil {
		return nil, err
	}

	reply := s.phaseEntryMessage(ctx, session)
	session.AppendTurn(model.TurnRoleAssistant, reply)

	if err := s.persistSession(ctx, session); err != nil {
		return nil, err
	}
	return s.result(session, reply), nil
}

// AddItem records one (title, description) pair during a collection
// phase. The row is persisted before session state changes so a failed
// write can be retried without duplicating items.
func (s *InterviewService) AddItem(ctx context.Context, sessionID, title, description string) (*ItemResult, error) {
	unlock := s.lockSession(sessionID)
	defer unlock()

	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	category, ok := CollectionCategory(session.Phase)
	if !ok {
		return nil, ErrNotCollecting
	}

	if _, err := s.subjects.SaveFreeformItem(ctx, session.SubjectID, category, title, description); err != nil {
		return nil, err
	}

	session.AddItem(category, title, description)
	if err := s.persistSession(ctx, session); err != nil {
		return nil, err
	}

	return &ItemResult{
		Message:    "Added! Feel free to add another, or finish when you're done.",
		Phase:      session.Phase,
		TotalItems: len(session.CollectedItems),
	}, nil
}

// FinishItems closes the current collection phase and moves to the next
// gate question, or into strategic counseling after awards.
func (s *InterviewService) FinishItems(ctx context.Context, sessionID string) (*MessageResult, error) {
	unlock := s.lockSession(sessionID)
	defer unlock()

	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !IsCollectionPhase(session.Phase) {
		return nil, ErrNotCollecting
	}

	if err := s.advance(session, TriggerFinish); err != nil {
		return nil, err
	}

	reply := collectionThanksMessage + "\n\n" + s.phaseEntryMessage(ctx, session)
	session.AppendTurn(model.TurnRoleAssistant, reply)

	if err := s.persistSession(ctx, session); err != nil {
		return nil, err
	}
	return s.result(session, reply), nil
}

// GenerateSummary runs the extraction pass over the full conversation
// and persists the surviving assignments. Calling it again on a
// completed session re-reads the stored assignments instead of
// re-running extraction.
func (s *InterviewService) GenerateSummary(ctx context.Context, sessionID string) (*SummaryResult, error) {
	unlock := s.lockSession(sessionID)
	defer unlock()

	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Phase == model.PhaseCompleted && session.SummaryGenerated {
		result, err := s.loadSummary(ctx, session, 0, 0)
		if err != nil {
			return nil, err
		}
		if s.export != nil {
			result.ExportURL = s.export.ArchiveLink(ctx, session.ID)
		}
		return result, nil
	}
	if session.Phase != model.PhaseIntermediateGoals && session.Phase != model.PhaseCompleted {
		return nil, ErrSummaryNotReady
	}

	result, err := s.runSummary(ctx, session)
	if perr := s.persistSession(ctx, session); perr != nil && err == nil {
		err = perr
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// runSummary drives intermediate_goals -> extraction -> completed. The
// session always reaches completed: a failed or empty extraction is
// retried once with a corrective nudge, then whatever survived is kept.
// Caller holds the session lock and persists afterwards.
func (s *InterviewService) runSummary(ctx context.Context, session *model.InterviewSession) (*SummaryResult, error) {
	if session.Phase == model.PhaseIntermediateGoals {
		if err := s.advance(session, TriggerSummarize); err != nil {
			return nil, err
		}
	}

	extraction := s.runExtraction(ctx, session, "")
	if extraction.Empty() {
		extraction = s.runExtraction(ctx, session,
			"Your previous answer was not valid JSON or contained no known categories. Respond with ONLY the JSON object described in the system prompt.")
	}

	if session.Phase == model.PhaseExtraction {
		if err := s.advance(session, TriggerComplete); err != nil {
			return nil, err
		}
	}

	saved, saveErr := s.assignments.SaveExtraction(ctx, session.SubjectID, extraction)
	if saveErr != nil {
		// Phase stays completed; the caller can retry persistence by
		// asking for the summary again.
		return nil, saveErr
	}
	session.SummaryGenerated = true

	if s.export != nil {
		if path, url, err := s.export.ExportSession(ctx, session); err != nil {
			log.Printf("[INTERVIEW] session %s: export failed: %v", session.ID, err)
		} else {
			result, err := s.loadSummary(ctx, session, saved, extraction.Dropped)
			if err != nil {
				return nil, err
			}
			result.ExportPath = path
			result.ExportURL = url
			return result, nil
		}
	}

	return s.loadSummary(ctx, session, saved, extraction.Dropped)
}

// runExtraction performs one extraction call and validates the output.
// Gateway failures degrade to an empty result.
func (s *InterviewService) runExtraction(ctx context.Context, session *model.InterviewSession, corrective string) ExtractionResult {
	messages := []openai.Message{
		{Role: "system", Content: buildExtractionSystemPrompt()},
		{Role: "user", Content: buildExtractionUserPrompt(session.History)},
	}
	if corrective != "" {
		messages = append(messages, openai.Message{Role: "user", Content: corrective})
	}

	raw, err := s.gateway.Complete(ctx, messages,
		openai.WithTemperature(0.1),
		openai.WithMaxTokens(600),
		openai.WithJSONResponse())
	if err != nil {
		log.Printf("[INTERVIEW] session %s: extraction call failed: %v", session.ID, err)
		return ExtractionResult{}
	}
	return ValidateExtraction(raw)
}

// Status returns a read-only view of one session
func (s *InterviewService) Status(ctx context.Context, sessionID string) (*StatusResult, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &StatusResult{
		SessionID:            session.ID,
		SubjectID:            session.SubjectID,
		Phase:                session.Phase,
		ConversationLength:   len(session.History),
		IdentifiedMilestones: session.IdentifiedMilestones,
		CollectedItems:       len(session.CollectedItems),
		SummaryGenerated:     session.SummaryGenerated,
	}, nil
}

// GetAssignments returns the persisted ranked assignments for a session's
// subject, grouped by dimension.
func (s *InterviewService) GetAssignments(ctx context.Context, sessionID string) (*SummaryResult, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.loadSummary(ctx, session, 0, 0)
}

// ExpireStale finalizes sessions idle past the cutoff. Interviews that
// reached strategic counseling get a best-effort summary; earlier ones
// are closed as-is. Finalized sessions leave the live store, their
// snapshot stays in the database.
func (s *InterviewService) ExpireStale(ctx context.Context, idleFor time.Duration) int {
	cutoff := time.Now().UTC().Add(-idleFor)
	stale, err := s.store.Stale(ctx, cutoff)
	if err != nil {
		log.Printf("[INTERVIEW] stale session scan failed: %v", err)
		return 0
	}

	var expired int
	for _, session := range stale {
		unlock := s.lockSession(session.ID)

		current, err := s.store.Get(ctx, session.ID)
		if err != nil {
			unlock()
			continue
		}
		if current.LastActivityAt.After(cutoff) {
			unlock()
			continue
		}

		if current.Phase == model.PhaseIntermediateGoals && !current.SummaryGenerated {
			if _, err := s.runSummary(ctx, current); err != nil {
				log.Printf("[INTERVIEW] session %s: expiry summary failed: %v", current.ID, err)
			}
		}
		current.Phase = model.PhaseCompleted

		if err := s.snapshotSession(ctx, current); err != nil {
			log.Printf("[INTERVIEW] session %s: expiry snapshot failed: %v", current.ID, err)
		}
		if err := s.store.Delete(ctx, current.ID); err != nil {
			log.Printf("[INTERVIEW] session %s: expiry delete failed: %v", current.ID, err)
		}
		s.locks.Delete(current.ID)
		expired++
		unlock()
	}
	return expired
}

// phaseEntryMessage is the fixed text announcing the phase just entered.
// Only the intermediate opener involves the completion service.
func (s *InterviewService) phaseEntryMessage(ctx context.Context, session *model.InterviewSession) string {
	switch session.Phase {
	case model.PhaseExtracurricularCollection:
		return extracurricularCollectMessage
	case model.PhaseAcademicStatsCollection:
		return academicStatsCollectMessage
	case model.PhaseAwardsCollection:
		return awardsCollectMessage
	case model.PhaseAcademicStatsQuestion:
		return academicStatsGateQuestion
	case model.PhaseAwardsQuestion:
		return awardsGateQuestion
	case model.PhaseIntermediateGoals:
		session.IntermediateTurns++
		return s.converse(ctx, session,
			intermediateGoalsSystemPrompt,
			buildIntermediateOpenerPrompt(session.IdentifiedMilestones, session.CollectedItems, session.RecentHistory(historyWindow)),
			intermediateFallbackQuestion,
			nil)
	}
	return completedMessage
}

// converse runs one conversational completion, streaming when onChunk is
// set. Failures fall back to a fixed question; text accumulated before a
// mid-stream failure is kept.
func (s *InterviewService) converse(ctx context.Context, session *model.InterviewSession, systemPrompt, userPrompt, fallback string, onChunk func(string) error) string {
	messages := []openai.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	}
	opts := []openai.Option{
		openai.WithTemperature(0.3),
		openai.WithMaxTokens(200),
	}

	var reply string
	var err error
	if onChunk != nil {
		reply, err = s.gateway.StreamComplete(ctx, messages, onChunk, opts...)
		if err != nil && reply != "" {
			// Partial text was already relayed; keep it as the turn
			log.Printf("[INTERVIEW] session %s: stream interrupted: %v", session.ID, err)
			return reply
		}
	} else {
		reply, err = s.gateway.Complete(ctx, messages, opts...)
	}

	if err != nil || strings.TrimSpace(reply) == "" {
		if openai.IsGatewayError(err) {
			log.Printf("[INTERVIEW] session %s: completion service unavailable: %v", session.ID, err)
		} else if err != nil {
			log.Printf("[INTERVIEW] session %s: completion failed: %v", session.ID, err)
		}
		s.deliver(fallback, onChunk)
		return fallback
	}
	return reply
}

// classifyMilestones maps a goal statement onto milestone categories.
// Failures and unparseable output yield an empty list.
func (s *InterviewService) classifyMilestones(ctx context.Context, message string) []string {
	raw, err := s.gateway.Complete(ctx,
		[]openai.Message{
			{Role: "system", Content: milestoneExtractionSystemPrompt},
			{Role: "user", Content: buildMilestoneExtractionPrompt(message)},
		},
		openai.WithTemperature(0.1),
		openai.WithMaxTokens(150))
	if err != nil {
		log.Printf("[INTERVIEW] milestone classification failed: %v", err)
		return nil
	}
	return ValidateMilestoneList(raw)
}

// deliver pushes fixed text through the stream callback when streaming
func (s *InterviewService) deliver(text string, onChunk func(string) error) {
	if onChunk == nil {
		return
	}
	if err := onChunk(text); err != nil {
		log.Printf("[INTERVIEW] stream delivery failed: %v", err)
	}
}

func (s *InterviewService) advance(session *model.InterviewSession, trigger Trigger) error {
	next, err := NextPhase(session.Phase, trigger)
	if err != nil {
		return err
	}
	session.Phase = next
	return nil
}

func (s *InterviewService) result(session *model.InterviewSession, reply string) *MessageResult {
	return &MessageResult{
		Message:              reply,
		Phase:                session.Phase,
		IdentifiedMilestones: session.IdentifiedMilestones,
	}
}

func (s *InterviewService) loadSummary(ctx context.Context, session *model.InterviewSession, saved, dropped int) (*SummaryResult, error) {
	subject, err := s.subjects.GetSubject(ctx, session.SubjectID)
	if err != nil {
		return nil, err
	}
	assignments, err := s.assignments.GetAllAssignments(ctx, session.SubjectID)
	if err != nil {
		return nil, err
	}
	return &SummaryResult{
		SubjectID:   session.SubjectID,
		Subject:     subject,
		Assignments: assignments,
		Saved:       saved,
		Dropped:     dropped,
		Phase:       session.Phase,
	}, nil
}

// persistSession refreshes activity time, writes the live store and
// snapshots to the database.
func (s *InterviewService) persistSession(ctx context.Context, session *model.InterviewSession) error {
	session.LastActivityAt = time.Now().UTC()
	if err := s.store.Put(ctx, session); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	if err := s.snapshotSession(ctx, session); err != nil {
		// The live store is authoritative; a failed snapshot is logged,
		// not surfaced.
		log.Printf("[INTERVIEW] session %s: snapshot failed: %v", session.ID, err)
	}
	return nil
}

func (s *InterviewService) snapshotSession(ctx context.Context, session *model.InterviewSession) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(session).Error
}

// parseBinaryAnswer normalizes a yes/no reply. Unrecognized text leaves
// the gate question standing.
func parseBinaryAnswer(answer string) (Trigger, bool) {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "yes", "y", "yeah", "yep", "sure":
		return TriggerYes, true
	case "no", "n", "nope", "skip":
		return TriggerNo, true
	}
	return "", false
}
