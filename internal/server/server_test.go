package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ashutoshrp06/reasonchain/internal/agent"
	"github.com/ashutoshrp06/reasonchain/internal/types"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// scriptedBackend answers every intermediate call with the same steps in
// order and every final call with a fixed answer.
type scriptedBackend struct {
	mu      sync.Mutex
	steps   []types.StepRecord
	prompts []string
}

func (b *scriptedBackend) Name() string { return "scripted" }

func (b *scriptedBackend) Call(_ context.Context, msgs []types.Message, _ int, isFinal bool) types.StepRecord {
	b.mu.Lock()
	defer b.mu.Unlock()

	if isFinal {
		return types.StepRecord{Title: types.TitleFinalAnswer, Content: "done", NextAction: types.ActionFinalAnswer}
	}
	b.prompts = append(b.prompts, msgs[1].Content)

	// Steps already taken show up as assistant messages after the seed.
	taken := 0
	for _, m := range msgs[3:] {
		if m.Role == types.RoleAssistant {
			taken++
		}
	}
	if taken >= len(b.steps) {
		taken = len(b.steps) - 1
	}
	return b.steps[taken]
}

// wireEmission mirrors the JSON shape of types.Emission.
type wireEmission struct {
	RunID     string           `json:"run_id"`
	Steps     []types.StepView `json:"steps"`
	TotalTime *float64         `json:"total_time"`
	Error     string           `json:"error"`
}

func newTestServer(t *testing.T) (*httptest.Server, *scriptedBackend) {
	t.Helper()
	b := &scriptedBackend{steps: []types.StepRecord{
		{Title: "Restate", Content: "The question asks for a sum.", NextAction: types.ActionContinue},
		{Title: "Answer", Content: "It is 4.", NextAction: types.ActionFinalAnswer},
	}}
	controller, err := agent.New(agent.Config{Backend: b})
	if err != nil {
		t.Fatalf("agent.New() error: %v", err)
	}
	srv := httptest.NewServer(New(controller, nil).Handler())
	t.Cleanup(srv.Close)
	return srv, b
}

func TestServer_ReasonNDJSON(t *testing.T) {
	srv, b := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/reason", "application/json",
		strings.NewReader(`{"prompt":"what is 2+2?","file_content":"notes"}`))
	if err != nil {
		t.Fatalf("POST error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/x-ndjson" {
		t.Errorf("unexpected content type %q", ct)
	}
	runID := resp.Header.Get("X-Run-ID")
	if runID == "" {
		t.Error("expected a run id header")
	}

	var emissions []wireEmission
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		var e wireEmission
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("decode line %q: %v", scanner.Text(), err)
		}
		emissions = append(emissions, e)
	}

	if len(emissions) != 3 {
		t.Fatalf("expected 3 emissions, got %d", len(emissions))
	}
	for i, e := range emissions[:2] {
		if e.TotalTime != nil {
			t.Errorf("emission %d should not carry a total", i)
		}
		if len(e.Steps) != i+1 {
			t.Errorf("emission %d: expected %d steps, got %d", i, i+1, len(e.Steps))
		}
	}
	last := emissions[2]
	if last.TotalTime == nil {
		t.Fatal("last emission should carry the total")
	}
	if got := last.Steps[len(last.Steps)-1]; got.Label != types.TitleFinalAnswer || got.Content != "done" {
		t.Errorf("unexpected final view %+v", got)
	}
	if last.RunID != runID {
		t.Errorf("emission run id %q does not match header %q", last.RunID, runID)
	}

	if len(b.prompts) == 0 || !strings.HasSuffix(b.prompts[0], "File content:\nnotes") {
		t.Errorf("file content not attached to prompt: %q", b.prompts)
	}
}

func TestServer_ReasonSSE(t *testing.T) {
	srv, _ := newTestServer(t)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/reason", strings.NewReader(`{"prompt":"2+2?"}`))
	req.Header.Set("Accept", "text/event-stream")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST error: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("unexpected content type %q", ct)
	}

	events := 0
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if scanner.Text() == "event: message" {
			events++
		}
	}
	if events != 3 {
		t.Errorf("expected 3 message events, got %d", events)
	}
}

func TestServer_ReasonBadRequest(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"invalid json", `{"prompt":`, "invalid request body"},
		{"missing prompt", `{}`, "prompt is required"},
		{"blank prompt", `{"prompt":"   "}`, "prompt is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/api/reason", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("POST error: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", resp.StatusCode)
			}
			var body map[string]string
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !strings.Contains(body["error"], tt.want) {
				t.Errorf("expected error containing %q, got %q", tt.want, body["error"])
			}
		})
	}
}

func TestServer_HealthAndInfo(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected healthy, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/api/info")
	if err != nil {
		t.Fatalf("GET /api/info error: %v", err)
	}
	defer resp.Body.Close()

	var info Info
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Backend != "scripted" || info.ToolsEnabled || len(info.Tools) != 0 {
		t.Errorf("unexpected info %+v", info)
	}
}

func TestServer_WebSocket(t *testing.T) {
	srv, _ := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/reason"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer conn.CloseNow()

	if err := wsjson.Write(ctx, conn, ReasonRequest{Prompt: "what is 2+2?"}); err != nil {
		t.Fatalf("write request: %v", err)
	}

	var emissions []wireEmission
	for {
		var e wireEmission
		err := wsjson.Read(ctx, conn, &e)
		if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
			break
		}
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		emissions = append(emissions, e)
	}

	if len(emissions) != 3 {
		t.Fatalf("expected 3 emissions, got %d", len(emissions))
	}
	if emissions[2].TotalTime == nil {
		t.Error("last emission should carry the total")
	}
}

func TestServer_WebSocketRejectsEmptyPrompt(t *testing.T) {
	srv, _ := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/reason"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer conn.CloseNow()

	if err := wsjson.Write(ctx, conn, ReasonRequest{}); err != nil {
		t.Fatalf("write request: %v", err)
	}

	var e wireEmission
	if err := wsjson.Read(ctx, conn, &e); err != nil {
		t.Fatalf("read: %v", err)
	}
	if e.Error != "prompt is required" {
		t.Errorf("unexpected error %q", e.Error)
	}

	err = wsjson.Read(ctx, conn, &e)
	if websocket.CloseStatus(err) != websocket.StatusPolicyViolation {
		t.Errorf("expected policy violation close, got %v", err)
	}
}
