package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ultraintel/counselor-api/model"
	"github.com/ultraintel/counselor-api/services/openai"
	"github.com/ultraintel/counselor-api/taxonomy"
)

// fakeGateway scripts completion replies per call. Streaming delivers
// the whole reply as a single chunk.
type fakeGateway struct {
	reply func(messages []openai.Message) (string, error)
	calls int
}

func (f *fakeGateway) Complete(ctx context.Context, messages []openai.Message, options ...openai.Option) (string, error) {
	f.calls++
	return f.reply(messages)
}

func (f *fakeGateway) StreamComplete(ctx context.Context, messages []openai.Message, onChunk func(string) error, options ...openai.Option) (string, error) {
	f.calls++
	text, err := f.reply(messages)
	if err != nil {
		return "", err
	}
	if onChunk != nil {
		if err := onChunk(text); err != nil {
			return text, err
		}
	}
	return text, nil
}

// scriptedReply routes on the system prompt: classification calls get a
// milestone list, extraction calls get a ranked JSON object, everything
// else gets counseling text.
func scriptedReply(messages []openai.Message) (string, error) {
	system := messages[0].Content
	switch {
	case system == milestoneExtractionSystemPrompt:
		return `["startup_founding", "top_10_university_acceptance"]`, nil
	case strings.Contains(system, "BINARY + STACK RANKING"):
		return `{
			"milestone_goals":[{"category_name":"startup_founding","ranking":1}],
			"skills":[{"category_name":"programming_languages","ranking":1},{"category_name":"business_fundamentals","ranking":2}]
		}`, nil
	default:
		return "Would you be interested in exploring independent research opportunities?", nil
	}
}

func newTestInterview(t *testing.T, gateway CompletionGateway) *InterviewService {
	t.Helper()

	db := newTestDB(t)
	subjects := NewSubjectService(db)
	assignments := NewAssignmentService(db)
	return NewInterviewService(db, NewMemorySessionStore(), gateway, subjects, assignments, nil)
}

func startInterview(t *testing.T, svc *InterviewService) *StartResult {
	t.Helper()

	result, err := svc.StartInterview(context.Background(), CreateSubjectRequest{
		Name:     "Ada Lovelace",
		Age:      17,
		Location: "London",
	})
	if err != nil {
		t.Fatalf("start interview: %v", err)
	}
	return result
}

func TestStartInterviewGreetingContract(t *testing.T) {
	svc := newTestInterview(t, &fakeGateway{reply: scriptedReply})
	result := startInterview(t, svc)

	if result.Message != GreetingMessage {
		t.Fatalf("greeting not byte-identical:\ngot  %q\nwant %q", result.Message, GreetingMessage)
	}
	if result.Phase != model.PhaseMilestoneIdentification {
		t.Fatalf("expected milestone_identification after greeting, got %s", result.Phase)
	}
	if result.SessionID == "" || result.SubjectID == 0 {
		t.Fatalf("missing identifiers: %+v", result)
	}
}

func TestMilestoneIdentificationAdvances(t *testing.T) {
	svc := newTestInterview(t, &fakeGateway{reply: scriptedReply})
	start := startInterview(t, svc)
	ctx := context.Background()

	result, err := svc.HandleMessage(ctx, start.SessionID, "I want to start a tech company and get into MIT", nil)
	if err != nil {
		t.Fatalf("handle message: %v", err)
	}
	if result.Phase != model.PhaseExtracurricularQuestion {
		t.Fatalf("expected extracurricular_question, got %s", result.Phase)
	}
	if len(result.IdentifiedMilestones) != 2 {
		t.Fatalf("expected 2 identified milestones, got %v", result.IdentifiedMilestones)
	}
	if !strings.Contains(result.Message, "startup founding") {
		t.Fatalf("gate message should name the goals: %q", result.Message)
	}
}

func TestCollectItemsInOrder(t *testing.T) {
	svc := newTestInterview(t, &fakeGateway{reply: scriptedReply})
	start := startInterview(t, svc)
	ctx := context.Background()

	if _, err := svc.HandleMessage(ctx, start.SessionID, "startup and MIT", nil); err != nil {
		t.Fatalf("milestone message: %v", err)
	}
	answer, err := svc.HandleBinaryAnswer(ctx, start.SessionID, "yes")
	if err != nil {
		t.Fatalf("gate answer: %v", err)
	}
	if answer.Phase != model.PhaseExtracurricularCollection {
		t.Fatalf("expected extracurricular_collection, got %s", answer.Phase)
	}
	if answer.Message != extracurricularCollectMessage {
		t.Fatalf("unexpected collection prompt: %q", answer.Message)
	}

	first, err := svc.AddItem(ctx, start.SessionID, "Robotics Club", "Built competition robots")
	if err != nil {
		t.Fatalf("first item: %v", err)
	}
	if first.TotalItems != 1 {
		t.Fatalf("expected 1 item, got %d", first.TotalItems)
	}
	second, err := svc.AddItem(ctx, start.SessionID, "Math Tutoring", "Tutored younger students")
	if err != nil {
		t.Fatalf("second item: %v", err)
	}
	if second.TotalItems != 2 {
		t.Fatalf("expected 2 items, got %d", second.TotalItems)
	}

	done, err := svc.FinishItems(ctx, start.SessionID)
	if err != nil {
		t.Fatalf("finish items: %v", err)
	}
	if done.Phase != model.PhaseAcademicStatsQuestion {
		t.Fatalf("expected academic_stats_question after finish, got %s", done.Phase)
	}

	status, err := svc.Status(ctx, start.SessionID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.CollectedItems != 2 {
		t.Fatalf("expected 2 collected items, got %d", status.CollectedItems)
	}

	session, err := svc.store.Get(ctx, start.SessionID)
	if err != nil {
		t.Fatalf("session lookup: %v", err)
	}
	items := session.ItemsFor(model.ItemCategoryExtracurricular)
	if len(items) != 2 || items[0].Title != "Robotics Club" || items[1].Title != "Math Tutoring" {
		t.Fatalf("items out of order: %+v", items)
	}
}

func TestFullFlowToSummary(t *testing.T) {
	gw := &fakeGateway{reply: scriptedReply}
	svc := newTestInterview(t, gw)
	start := startInterview(t, svc)
	ctx := context.Background()

	if _, err := svc.HandleMessage(ctx, start.SessionID, "startup and MIT", nil); err != nil {
		t.Fatalf("milestone message: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := svc.HandleBinaryAnswer(ctx, start.SessionID, "no"); err != nil {
			t.Fatalf("gate answer: %v", err)
		}
	}

	status, _ := svc.Status(ctx, start.SessionID)
	if status.Phase != model.PhaseIntermediateGoals {
		t.Fatalf("expected intermediate_goals after three no answers, got %s", status.Phase)
	}

	if _, err := svc.HandleMessage(ctx, start.SessionID, "I want to work on my applications", nil); err != nil {
		t.Fatalf("intermediate message: %v", err)
	}

	summary, err := svc.GenerateSummary(ctx, start.SessionID)
	if err != nil {
		t.Fatalf("generate summary: %v", err)
	}
	if summary.Phase != model.PhaseCompleted {
		t.Fatalf("expected completed, got %s", summary.Phase)
	}
	if summary.Saved != 3 {
		t.Fatalf("expected 3 saved assignments, got %d", summary.Saved)
	}
	skills := summary.Assignments[taxonomy.DimensionSkill]
	if len(skills) != 2 || skills[0].CategoryName != "programming_languages" {
		t.Fatalf("unexpected skills: %+v", skills)
	}

	// A second summary call reads stored data instead of re-extracting
	callsBefore := gw.calls
	again, err := svc.GenerateSummary(ctx, start.SessionID)
	if err != nil {
		t.Fatalf("repeat summary: %v", err)
	}
	if gw.calls != callsBefore {
		t.Fatal("repeat summary re-ran extraction")
	}
	if len(again.Assignments[taxonomy.DimensionSkill]) != 2 {
		t.Fatalf("repeat summary lost assignments: %+v", again.Assignments)
	}
}

// A session whose completion calls always fail must still reach
// completed within a bounded number of calls.
func TestLivenessUnderGatewayFailure(t *testing.T) {
	gw := &fakeGateway{reply: func([]openai.Message) (string, error) {
		return "", errors.New("gateway down")
	}}
	svc := newTestInterview(t, gw)
	start := startInterview(t, svc)
	ctx := context.Background()

	// Classification keeps failing; past the retry cap the interview
	// moves on without identified milestones.
	var phase model.Phase
	for i := 0; i < maxMilestoneRetries; i++ {
		result, err := svc.HandleMessage(ctx, start.SessionID, "my goals", nil)
		if err != nil {
			t.Fatalf("milestone message %d: %v", i, err)
		}
		phase = result.Phase
	}
	if phase != model.PhaseExtracurricularQuestion {
		t.Fatalf("expected advance past milestone identification, got %s", phase)
	}

	for i := 0; i < 3; i++ {
		if _, err := svc.HandleBinaryAnswer(ctx, start.SessionID, "no"); err != nil {
			t.Fatalf("gate answer: %v", err)
		}
	}

	// Counseling turns fall back to the fixed question until the turn
	// cap triggers the summary on its own.
	var last *MessageResult
	for i := 0; i < maxIntermediateTurns; i++ {
		result, err := svc.HandleMessage(ctx, start.SessionID, "still here", nil)
		if err != nil {
			t.Fatalf("intermediate message %d: %v", i, err)
		}
		last = result
		if result.Phase == model.PhaseCompleted {
			break
		}
		if result.Message != intermediateFallbackQuestion {
			t.Fatalf("expected fallback question, got %q", result.Message)
		}
	}
	if last.Phase != model.PhaseCompleted {
		t.Fatalf("interview never completed under gateway failure, phase %s", last.Phase)
	}

	status, _ := svc.Status(ctx, start.SessionID)
	if !status.SummaryGenerated {
		t.Fatal("summary flag not set after forced completion")
	}
}

func TestCompletedSessionIsReadOnly(t *testing.T) {
	svc := newTestInterview(t, &fakeGateway{reply: scriptedReply})
	start := startInterview(t, svc)
	ctx := context.Background()

	if _, err := svc.HandleMessage(ctx, start.SessionID, "startup and MIT", nil); err != nil {
		t.Fatalf("milestone message: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := svc.HandleBinaryAnswer(ctx, start.SessionID, "no"); err != nil {
			t.Fatalf("gate answer: %v", err)
		}
	}
	if _, err := svc.GenerateSummary(ctx, start.SessionID); err != nil {
		t.Fatalf("summary: %v", err)
	}

	result, err := svc.HandleMessage(ctx, start.SessionID, "one more thing", nil)
	if err != nil {
		t.Fatalf("post-completion message: %v", err)
	}
	if result.Phase != model.PhaseCompleted {
		t.Fatalf("completed session changed phase to %s", result.Phase)
	}
	if result.Message != completedMessage {
		t.Fatalf("unexpected post-completion reply: %q", result.Message)
	}

	if _, err := svc.HandleBinaryAnswer(ctx, start.SessionID, "yes"); !errors.Is(err, ErrNotAwaitingAnswer) {
		t.Fatalf("expected ErrNotAwaitingAnswer after completion, got %v", err)
	}
}

func TestAddItemOutsideCollection(t *testing.T) {
	svc := newTestInterview(t, &fakeGateway{reply: scriptedReply})
	start := startInterview(t, svc)

	_, err := svc.AddItem(context.Background(), start.SessionID, "Chess Club", "Played chess")
	if !errors.Is(err, ErrNotCollecting) {
		t.Fatalf("expected ErrNotCollecting, got %v", err)
	}
}

func TestSummaryBeforeCounselingPhase(t *testing.T) {
	svc := newTestInterview(t, &fakeGateway{reply: scriptedReply})
	start := startInterview(t, svc)

	_, err := svc.GenerateSummary(context.Background(), start.SessionID)
	if !errors.Is(err, ErrSummaryNotReady) {
		t.Fatalf("expected ErrSummaryNotReady, got %v", err)
	}
}

func TestUnclearBinaryAnswerKeepsGate(t *testing.T) {
	svc := newTestInterview(t, &fakeGateway{reply: scriptedReply})
	start := startInterview(t, svc)
	ctx := context.Background()

	if _, err := svc.HandleMessage(ctx, start.SessionID, "startup and MIT", nil); err != nil {
		t.Fatalf("milestone message: %v", err)
	}

	result, err := svc.HandleBinaryAnswer(ctx, start.SessionID, "maybe later")
	if err != nil {
		t.Fatalf("unclear answer: %v", err)
	}
	if result.Phase != model.PhaseExtracurricularQuestion {
		t.Fatalf("unclear answer moved phase to %s", result.Phase)
	}
}

func TestUnknownSessionID(t *testing.T) {
	svc := newTestInterview(t, &fakeGateway{reply: scriptedReply})

	_, err := svc.HandleMessage(context.Background(), "nope", "hello", nil)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestStreamingBuffersFullReply(t *testing.T) {
	svc := newTestInterview(t, &fakeGateway{reply: scriptedReply})
	start := startInterview(t, svc)
	ctx := context.Background()

	if _, err := svc.HandleMessage(ctx, start.SessionID, "startup and MIT", nil); err != nil {
		t.Fatalf("milestone message: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := svc.HandleBinaryAnswer(ctx, start.SessionID, "no"); err != nil {
			t.Fatalf("gate answer: %v", err)
		}
	}

	var chunks []string
	result, err := svc.HandleMessage(ctx, start.SessionID, "tell me more", func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("streamed message: %v", err)
	}
	if strings.Join(chunks, "") != result.Message {
		t.Fatalf("streamed chunks %q do not reassemble reply %q", strings.Join(chunks, ""), result.Message)
	}
}
