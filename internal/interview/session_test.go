package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/Riter/itmo-megaschool/internal/models"
	"github.com/Riter/itmo-megaschool/internal/observer"
)

type fakeAnalyzer struct {
	directives []models.Directive
	call       int
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, state *models.SessionState, message string) models.Directive {
	d := f.directives[f.call]
	if f.call < len(f.directives)-1 {
		f.call++
	}
	return d
}

type fakeResponder struct{ reply string }

func (f *fakeResponder) Respond(ctx context.Context, state *models.SessionState, d models.Directive) string {
	return f.reply
}

type fakeReporter struct{ report string }

func (f *fakeReporter) Report(ctx context.Context, state *models.SessionState) string {
	return f.report
}

func juniorProfile() models.CandidateProfile {
	return models.CandidateProfile{
		Name:        "Алекс",
		Role:        "Backend Developer",
		GradeTarget: "Junior",
		Experience:  "1 год Python",
	}
}

func newFakeSession(t *testing.T, directives ...models.Directive) *Session {
	t.Helper()
	s, err := NewSession(juniorProfile(), &fakeAnalyzer{directives: directives}, &fakeResponder{reply: "ок"}, &fakeReporter{report: "отчёт"})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	return s
}

func TestNewSessionRejectsInvalidProfile(t *testing.T) {
	_, err := NewSession(models.CandidateProfile{Name: "", Role: "Backend Developer", GradeTarget: "Junior"}, nil, nil, nil)
	if !errors.Is(err, models.ErrEmptyName) {
		t.Errorf("got %v, want ErrEmptyName", err)
	}
}

func TestProcessMessageRejectsEmptyInput(t *testing.T) {
	s := newFakeSession(t, models.Directive{InputType: models.InputTypeAnswer, NextAction: models.ActionAsk})
	if _, err := s.ProcessMessage(context.Background(), "   "); !errors.Is(err, models.ErrEmptyMessage) {
		t.Errorf("got %v, want ErrEmptyMessage", err)
	}
}

func TestProcessMessageAppliesAnswerDirective(t *testing.T) {
	s := newFakeSession(t, models.Directive{
		InputType:         models.InputTypeAnswer,
		NextAction:        models.ActionAsk,
		NextTopic:         "sql_basics",
		QuestionBlueprint: "Спроси про JOIN",
		AnswerScore:       0.8,
		SoftSignals:       models.SoftSignals{Clarity: 0.7, Honesty: 0.9, Engagement: 0.6},
		DetectedEntities:  []string{"PostgreSQL"},
	})

	if _, err := s.ProcessMessage(context.Background(), "индексы ускоряют выборки"); err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}
	state := s.State()
	if state.Flags.QuestionsAskedCount != 1 {
		t.Errorf("questions asked = %d", state.Flags.QuestionsAskedCount)
	}
	if state.CurrentTopic != "sql_basics" {
		t.Errorf("current topic = %q", state.CurrentTopic)
	}
	if len(state.LastQuestions) != 1 || state.LastQuestions[0] != "Спроси про JOIN" {
		t.Errorf("last questions = %v", state.LastQuestions)
	}
	if len(state.SoftScores) != 1 {
		t.Errorf("soft scores = %v", state.SoftScores)
	}
	if len(state.Facts) != 1 || !strings.Contains(state.Facts[0], "PostgreSQL") {
		t.Errorf("facts = %v", state.Facts)
	}
	if len(state.Turns) != 1 || state.Turns[0].Score == nil || *state.Turns[0].Score != 0.8 {
		t.Errorf("turn log wrong: %+v", state.Turns)
	}
	if s.Phase() != PhaseAwaitingInput {
		t.Errorf("phase = %s", s.Phase())
	}
}

func TestProcessMessageCountsFlags(t *testing.T) {
	s := newFakeSession(t,
		models.Directive{InputType: models.InputTypeOffTopic, NextAction: models.ActionRedirectToInterview},
		models.Directive{InputType: models.InputTypeAnswer, NextAction: models.ActionCorrectHallucination, IsHallucination: true, HallucinationCorrection: "поправка", AnswerScore: 0.1},
	)
	ctx := context.Background()
	if _, err := s.ProcessMessage(ctx, "какая сегодня погода?"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ProcessMessage(ctx, "в Python 4.0 удалят циклы"); err != nil {
		t.Fatal(err)
	}

	flags := s.State().Flags
	if flags.OffTopicCount != 1 {
		t.Errorf("off topic count = %d", flags.OffTopicCount)
	}
	if flags.HallucinationClaims != 1 {
		t.Errorf("hallucination claims = %d", flags.HallucinationClaims)
	}
	if flags.Evasiveness != 1 {
		t.Errorf("evasiveness = %d", flags.Evasiveness)
	}
	if flags.QuestionsAskedCount != 0 {
		t.Errorf("questions asked = %d", flags.QuestionsAskedCount)
	}
}

func TestProcessMessageAfterDone(t *testing.T) {
	s := newFakeSession(t, models.Directive{InputType: models.InputTypeStop, NextAction: models.ActionWrapUp})
	ctx := context.Background()
	if _, err := s.ProcessMessage(ctx, "стоп"); err != nil {
		t.Fatal(err)
	}
	if !s.IsFinished() {
		t.Fatal("session must finish after WRAP_UP")
	}
	if _, err := s.ProcessMessage(ctx, "ещё вопрос"); !errors.Is(err, models.ErrSessionFinished) {
		t.Errorf("got %v, want ErrSessionFinished", err)
	}
	report, ok := s.FinalReport()
	if !ok || report == "" {
		t.Error("final report must be available after finish")
	}
}

func TestFinalReportUnavailableWhileRunning(t *testing.T) {
	s := newFakeSession(t, models.Directive{InputType: models.InputTypeAnswer, NextAction: models.ActionAsk, AnswerScore: 0.5})
	if _, ok := s.FinalReport(); ok {
		t.Error("report must not be available before finish")
	}
}

func TestPersistWritesArtifact(t *testing.T) {
	s := newFakeSession(t, models.Directive{InputType: models.InputTypeStop, NextAction: models.ActionWrapUp})
	if _, err := s.ProcessMessage(context.Background(), "стоп"); err != nil {
		t.Fatal(err)
	}
	path, err := s.Persist(t.TempDir())
	if err != nil {
		t.Fatalf("persist failed: %v", err)
	}
	if !strings.HasSuffix(path, "interview_log_1.json") {
		t.Errorf("artifact path = %s", path)
	}
}

// scriptedClient drives the real pipeline end to end. Calls are routed by
// distinctive fragments of each stage's system prompt; grader scores are
// consumed from a queue, one per turn.
type scriptedClient struct {
	scores []float64
	call   int
	fail   bool
}

func (c *scriptedClient) GeneratePrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.GenerateWithModel(ctx, systemPrompt, userPrompt, "", false)
}

func (c *scriptedClient) GenerateWithModel(ctx context.Context, systemPrompt, userPrompt, model string, structured bool) (string, error) {
	if c.fail {
		return "", errors.New("service unavailable")
	}
	switch {
	case strings.Contains(systemPrompt, "input classifier"):
		switch {
		case strings.Contains(userPrompt, "Привет"):
			return `{"input_type": "GREETING", "confidence": 0.9, "reasoning": "introduction"}`, nil
		case strings.Contains(userPrompt, "стоп"):
			return `{"input_type": "STOP", "confidence": 0.95, "reasoning": "stop request"}`, nil
		default:
			return `{"input_type": "ANSWER", "detected_entities": ["Python"], "confidence": 0.9, "reasoning": "answer"}`, nil
		}
	case strings.Contains(systemPrompt, "fact-checker"):
		return `{"is_hallucination": false, "confidence": 0.9, "reasoning": "clean"}`, nil
	case strings.Contains(systemPrompt, "scoring and planning"):
		score := 0.0
		if c.call < len(c.scores) {
			score = c.scores[c.call]
		}
		c.call++
		return fmt.Sprintf(`{"next_action": "ASK", "next_topic": "python_basics", "question_blueprint": "Вопрос номер %d", "answer_score": %.2f, "soft_signals": {"clarity": 0.7, "honesty": 0.8, "engagement": 0.7}, "internal_thoughts": "scripted"}`, c.call, score), nil
	case strings.Contains(systemPrompt, "интервьюер"):
		return "Хорошо! Следующий вопрос: расскажи про списки.", nil
	case strings.Contains(systemPrompt, "нанимающий менеджер"):
		return "# Обратная связь\nСильный кандидат.", nil
	default:
		return "", errors.New("unexpected system prompt")
	}
}

func newPipelineSession(t *testing.T, client *scriptedClient) *Session {
	t.Helper()
	s, err := NewSession(juniorProfile(),
		observer.New(client, observer.Config{}),
		NewInterviewer(client, ""),
		NewHiringManager(client, ""))
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	return s
}

func TestFullInterviewScenario(t *testing.T) {
	client := &scriptedClient{scores: []float64{0, 0.85, 0.9, 0}}
	s := newPipelineSession(t, client)
	ctx := context.Background()

	reply, err := s.ProcessMessage(ctx, "Привет, я Алекс, хочу на Junior Backend")
	if err != nil {
		t.Fatalf("greeting turn failed: %v", err)
	}
	if reply == "" {
		t.Fatal("greeting reply must not be empty")
	}
	if got := s.State().Flags.QuestionsAskedCount; got != 1 {
		t.Errorf("questions asked after greeting = %d", got)
	}
	if got := s.State().Difficulty; got != models.DifficultyDefault {
		t.Errorf("difficulty after greeting = %d", got)
	}

	if _, err := s.ProcessMessage(ctx, "Списки изменяемые, кортежи нет, работают быстрее при чтении"); err != nil {
		t.Fatal(err)
	}
	if got := s.State().Difficulty; got != models.DifficultyDefault {
		t.Errorf("difficulty after first strong answer = %d, want unchanged", got)
	}

	if _, err := s.ProcessMessage(ctx, "Словари построены на хеш-таблицах, доступ за O(1)"); err != nil {
		t.Fatal(err)
	}
	if got := s.State().Difficulty; got != models.DifficultyDefault+1 {
		t.Errorf("difficulty after second strong answer = %d, want %d", got, models.DifficultyDefault+1)
	}

	if _, err := s.ProcessMessage(ctx, "Всё, стоп, давай фидбэк"); err != nil {
		t.Fatal(err)
	}
	if !s.IsFinished() {
		t.Fatal("session must finish on stop request")
	}
	report, ok := s.FinalReport()
	if !ok || report == "" {
		t.Fatal("final report must be available and non-empty")
	}
	if len(s.State().Turns) != 4 {
		t.Errorf("logged turns = %d, want 4", len(s.State().Turns))
	}
}

func TestTerminationSurvivesTotalServiceOutage(t *testing.T) {
	client := &scriptedClient{fail: true}
	s := newPipelineSession(t, client)
	ctx := context.Background()

	reply, err := s.ProcessMessage(ctx, "расскажу про декораторы")
	if err != nil {
		t.Fatalf("turn with all services down failed: %v", err)
	}
	if reply == "" {
		t.Fatal("canned reply must not be empty")
	}

	if _, err := s.ProcessMessage(ctx, "стоп"); err != nil {
		t.Fatal(err)
	}
	if !s.IsFinished() {
		t.Fatal("stop keyword must terminate even with every service down")
	}
	report, ok := s.FinalReport()
	if !ok || report == "" {
		t.Fatal("aggregate report must be produced without the service")
	}
	if !strings.Contains(report, "Алекс") {
		t.Errorf("aggregate report must name the candidate:\n%s", report)
	}
}
