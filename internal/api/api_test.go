package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/Riter/itmo-megaschool/internal/interview"
	"github.com/Riter/itmo-megaschool/internal/models"
	"github.com/Riter/itmo-megaschool/internal/store"
)

type stubAnalyzer struct{}

func (stubAnalyzer) Analyze(ctx context.Context, state *models.SessionState, message string) models.Directive {
	if strings.Contains(strings.ToLower(message), "стоп") {
		return models.Directive{InputType: models.InputTypeStop, NextAction: models.ActionWrapUp}
	}
	return models.Directive{
		InputType:         models.InputTypeAnswer,
		NextAction:        models.ActionAsk,
		NextTopic:         "python_basics",
		QuestionBlueprint: "Спроси про списки",
		AnswerScore:       0.7,
		SoftSignals:       models.DefaultSoftSignals(),
	}
}

type stubResponder struct{}

func (stubResponder) Respond(ctx context.Context, state *models.SessionState, d models.Directive) string {
	if d.NextAction == models.ActionWrapUp {
		return "Спасибо за интервью!"
	}
	return "Расскажи про списки."
}

type stubReporter struct{}

func (stubReporter) Report(ctx context.Context, state *models.SessionState) string {
	return "# Отчёт\nНеплохо."
}

func testServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	factory := func(profile models.CandidateProfile) (*interview.Session, error) {
		return interview.NewSession(profile, stubAnalyzer{}, stubResponder{}, stubReporter{})
	}
	srv := NewServer(factory, store.NewInMemoryStore(), t.TempDir())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func postJSON(t *testing.T, url string, body interface{}) (*http.Response, models.APIResponse) {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var decoded models.APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp, decoded
}

func getJSON(t *testing.T, url string) (*http.Response, models.APIResponse) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var decoded models.APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp, decoded
}

func createSession(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	resp, body := postJSON(t, ts.URL+"/sessions", map[string]string{
		"name": "Алекс", "role": "Backend Developer", "grade_target": "Junior", "experience": "1 год",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create session status = %d", resp.StatusCode)
	}
	result := body.Result.(map[string]interface{})
	id, _ := result["session_id"].(string)
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("session id %q is not a UUID: %v", id, err)
	}
	return id
}

func TestCreateSessionRejectsInvalidProfile(t *testing.T) {
	_, ts := testServer(t)
	resp, body := postJSON(t, ts.URL+"/sessions", map[string]string{"name": "", "role": "x", "grade_target": "Junior"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if body.Status != string(models.APIStatusError) {
		t.Errorf("body = %+v", body)
	}
}

func TestMessageUnknownSession(t *testing.T) {
	_, ts := testServer(t)
	resp, _ := postJSON(t, ts.URL+"/sessions/"+uuid.NewString()+"/messages", map[string]string{"message": "привет"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestMessageRoundTripAndFinish(t *testing.T) {
	_, ts := testServer(t)
	id := createSession(t, ts)

	resp, body := postJSON(t, ts.URL+"/sessions/"+id+"/messages", map[string]string{"message": "списки изменяемые"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	result := body.Result.(map[string]interface{})
	if result["reply"] != "Расскажи про списки." || result["finished"] != false {
		t.Errorf("result = %v", result)
	}

	resp, body = postJSON(t, ts.URL+"/sessions/"+id+"/messages", map[string]string{"message": "стоп"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	result = body.Result.(map[string]interface{})
	if result["finished"] != true {
		t.Errorf("expected finished result, got %v", result)
	}
	if feedback, _ := result["final_feedback"].(string); feedback == "" {
		t.Error("finished turn must include the final feedback")
	}

	resp, _ = postJSON(t, ts.URL+"/sessions/"+id+"/messages", map[string]string{"message": "ещё"})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("message after finish status = %d", resp.StatusCode)
	}
}

func TestMessageRejectsEmptyBody(t *testing.T) {
	_, ts := testServer(t)
	id := createSession(t, ts)
	resp, _ := postJSON(t, ts.URL+"/sessions/"+id+"/messages", map[string]string{"message": "  "})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestGetSessionSnapshot(t *testing.T) {
	_, ts := testServer(t)
	id := createSession(t, ts)
	postJSON(t, ts.URL+"/sessions/"+id+"/messages", map[string]string{"message": "ответ"})

	resp, body := getJSON(t, ts.URL+"/sessions/"+id)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	result := body.Result.(map[string]interface{})
	if result["participant_name"] != "Алекс" {
		t.Errorf("result = %v", result)
	}
	if result["turns"].(float64) != 1 {
		t.Errorf("turns = %v", result["turns"])
	}
	if result["phase"] != string(interview.PhaseAwaitingInput) {
		t.Errorf("phase = %v", result["phase"])
	}
}

func TestReportNotReadyThenReady(t *testing.T) {
	_, ts := testServer(t)
	id := createSession(t, ts)

	resp, _ := getJSON(t, ts.URL+"/sessions/"+id+"/report")
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("report before finish status = %d", resp.StatusCode)
	}

	postJSON(t, ts.URL+"/sessions/"+id+"/messages", map[string]string{"message": "стоп"})
	resp, body := getJSON(t, ts.URL+"/sessions/"+id+"/report")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("report after finish status = %d", resp.StatusCode)
	}
	result := body.Result.(map[string]interface{})
	if feedback, _ := result["final_feedback"].(string); feedback == "" {
		t.Error("report must not be empty")
	}
}

func TestSaveWritesArtifactAndArchives(t *testing.T) {
	srv, ts := testServer(t)
	id := createSession(t, ts)
	postJSON(t, ts.URL+"/sessions/"+id+"/messages", map[string]string{"message": "ответ"})
	postJSON(t, ts.URL+"/sessions/"+id+"/messages", map[string]string{"message": "стоп"})

	resp, body := postJSON(t, ts.URL+"/sessions/"+id+"/save", map[string]string{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save status = %d", resp.StatusCode)
	}
	result := body.Result.(map[string]interface{})
	path, _ := result["path"].(string)
	if _, err := os.Stat(path); err != nil {
		t.Errorf("artifact not written at %q: %v", path, err)
	}

	records, err := srv.archive.GetSessionRecords()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].ID != id || records[0].TurnCount != 2 {
		t.Errorf("archive records = %+v", records)
	}

	resp, body = getJSON(t, ts.URL+"/sessions")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	listed, ok := body.Result.([]interface{})
	if !ok || len(listed) != 1 {
		t.Errorf("listed sessions = %v", body.Result)
	}
}
