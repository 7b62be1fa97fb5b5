package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lumopack/lumobot/internal/flow"
	"github.com/lumopack/lumobot/internal/models"
	"github.com/lumopack/lumobot/internal/pricing"
	"github.com/lumopack/lumobot/internal/store"
)

func newTestSessions(t *testing.T) *flow.SessionManager {
	t.Helper()
	calc, err := pricing.NewCalculator()
	if err != nil {
		t.Fatalf("NewCalculator: %v", err)
	}
	st := store.NewInMemoryStore()
	return flow.NewSessionManager(st, flow.NewOrchestrator(calc, flow.WithOrderSaver(st)))
}

func TestRunChatInterview(t *testing.T) {
	sessions := newTestSessions(t)
	in := strings.NewReader("สวัสดีค่ะ\n\nเครื่องสำอาง\n/quit\nignored\n")
	var out bytes.Buffer

	if err := runChat(context.Background(), in, &out, sessions, "cli_test"); err != nil {
		t.Fatalf("runChat: %v", err)
	}

	transcript := out.String()
	for _, want := range []string{"LumoPack", "cli_test", "RSC"} {
		if !strings.Contains(transcript, want) {
			t.Errorf("transcript missing %q:\n%s", want, transcript)
		}
	}

	state, err := sessions.Get(context.Background(), "cli_test")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if state.CurrentStep != models.StepBoxType {
		t.Errorf("expected step %s, got %s", models.StepBoxType, state.CurrentStep)
	}
	if state.UserID != cliUserID {
		t.Errorf("expected user %q, got %q", cliUserID, state.UserID)
	}
}

func TestRunChatReset(t *testing.T) {
	sessions := newTestSessions(t)
	in := strings.NewReader("สวัสดี\nเครื่องสำอาง\n/reset\n")
	var out bytes.Buffer

	if err := runChat(context.Background(), in, &out, sessions, "cli_reset"); err != nil {
		t.Fatalf("runChat: %v", err)
	}
	if !strings.Contains(out.String(), "เริ่มต้นใหม่แล้วค่ะ") {
		t.Errorf("expected reset notice, got:\n%s", out.String())
	}
	state, err := sessions.Get(context.Background(), "cli_reset")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if state.CurrentStep != models.StepGreeting {
		t.Errorf("expected reset to greeting, got %s", state.CurrentStep)
	}
}

func TestRunChatResetBeforeFirstTurn(t *testing.T) {
	var out bytes.Buffer
	if err := runChat(context.Background(), strings.NewReader("/reset\n"), &out, newTestSessions(t), "fresh"); err != nil {
		t.Fatalf("runChat: %v", err)
	}
	if strings.Contains(out.String(), "reset failed") {
		t.Errorf("missing session should reset quietly, got:\n%s", out.String())
	}
}

type failingSessions struct{}

func (failingSessions) Handle(ctx context.Context, sessionID, userID, text string) (flow.Reply, error) {
	return flow.Reply{}, errors.New("store offline")
}

func (failingSessions) Reset(ctx context.Context, sessionID string) (*models.ConversationState, error) {
	return nil, errors.New("store offline")
}

func TestRunChatReportsErrorsAndContinues(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader("hello\n/reset\n")
	if err := runChat(context.Background(), in, &out, failingSessions{}, "s"); err != nil {
		t.Fatalf("runChat: %v", err)
	}
	if !strings.Contains(out.String(), "store offline") {
		t.Errorf("expected handler error in transcript, got:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "reset failed") {
		t.Errorf("expected reset failure in transcript, got:\n%s", out.String())
	}
}

func TestRunChatStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := runChat(ctx, strings.NewReader("hello\n"), &bytes.Buffer{}, newTestSessions(t), "s")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRenderReply(t *testing.T) {
	var out bytes.Buffer
	renderReply(&out, flow.Reply{
		Text:         "เลือกรูปแบบกล่องค่ะ",
		Step:         models.StepBoxType,
		QuickReplies: []string{"RSC", "Die-cut"},
		Complete:     true,
	})
	got := out.String()
	for _, want := range []string{"เลือกรูปแบบกล่องค่ะ", "RSC / Die-cut", models.StepBoxType.String(), "order complete"} {
		if !strings.Contains(got, want) {
			t.Errorf("renderReply output missing %q:\n%s", want, got)
		}
	}
}
