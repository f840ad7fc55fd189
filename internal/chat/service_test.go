package chat

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/compact"
	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/memory"
	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/provider"
	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/provider/providertest"
	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/store"
	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/timegap"
)

type nopSummarizer struct{}

func (nopSummarizer) Summarize(context.Context, []store.Message, string, string) (string, error) {
	return "", nil
}

type nopCapturer struct{}

func (nopCapturer) Capture(context.Context, string, string, string, []store.Message) error {
	return nil
}

type serviceFixture struct {
	svc   *Service
	store *store.Store
	mock  *providertest.MockProvider
	conv  store.Conversation
	char  store.Character
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	char, err := st.CreateCharacter(ctx, "Aria", "Warm and curious.")
	if err != nil {
		t.Fatalf("create character: %v", err)
	}
	conv, err := st.CreateConversation(ctx, "user-1", char.ID)
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}

	mock := &providertest.MockProvider{
		CompleteFunc: func(context.Context, provider.CompletionRequest) (provider.CompletionResponse, error) {
			return provider.CompletionResponse{Content: "hey you!"}, nil
		},
	}

	mems := memory.NewStore(st, nil)
	detector := timegap.NewDetector(st, 30*time.Minute, nil)
	compactor := compact.NewOrchestrator(
		st, nopSummarizer{}, nopCapturer{},
		compact.NewCharEstimator(4), nil,
		30*time.Minute, nil,
	)
	svc := NewService(st, mock, mems, detector, compactor, nil)

	return &serviceFixture{svc: svc, store: st, mock: mock, conv: conv, char: char}
}

func TestSendMessage_PersistsTurn(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)

	reply, err := f.svc.SendMessage(context.Background(), f.conv.ID, "user-1", "hi there")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if reply.Content != "hey you!" {
		t.Errorf("reply = %q", reply.Content)
	}
	if reply.Role != store.RoleAssistant {
		t.Errorf("reply role = %q", reply.Role)
	}

	msgs, err := f.store.Messages(context.Background(), f.conv.ID)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want user turn and reply", len(msgs))
	}
	if msgs[0].Role != store.RoleUser || msgs[0].Content != "hi there" {
		t.Errorf("user row = %+v", msgs[0])
	}
	if msgs[1].ID != reply.ID {
		t.Errorf("reply id = %d, stored %d", reply.ID, msgs[1].ID)
	}
}

func TestSendMessage_InsertsGapMarkerAfterLongSilence(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	ctx := context.Background()

	past := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if _, err := f.store.AppendMessage(ctx, store.Message{
		ConversationID: f.conv.ID, Role: store.RoleUser, Content: "old message", CreatedAt: past,
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	f.svc.now = func() time.Time { return past.Add(3 * time.Hour) }
	if _, err := f.svc.SendMessage(ctx, f.conv.ID, "user-1", "back again"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	msgs, _ := f.store.Messages(ctx, f.conv.ID)
	if len(msgs) != 4 {
		t.Fatalf("len = %d, want old + marker + user + reply", len(msgs))
	}
	marker := msgs[1]
	if marker.Type != store.TypeTimeGap {
		t.Fatalf("second row type = %q, want time_gap", marker.Type)
	}
	if marker.GapHours != 3 {
		t.Errorf("gap hours = %v, want 3", marker.GapHours)
	}

	// The marker also reaches the model as a system message.
	req, ok := f.mock.LastRequest()
	if !ok {
		t.Fatal("no completion request recorded")
	}
	found := false
	for _, m := range req.Messages {
		if m.Role == provider.MessageRoleSystem && strings.Contains(m.Content, "have passed") {
			found = true
		}
	}
	if !found {
		t.Error("gap marker missing from the prompt")
	}
}

func TestSendMessage_NoMarkerForQuickReply(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	ctx := context.Background()

	past := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if _, err := f.store.AppendMessage(ctx, store.Message{
		ConversationID: f.conv.ID, Role: store.RoleUser, Content: "old", CreatedAt: past,
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	f.svc.now = func() time.Time { return past.Add(5 * time.Minute) }
	if _, err := f.svc.SendMessage(ctx, f.conv.ID, "user-1", "quick follow-up"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	msgs, _ := f.store.Messages(ctx, f.conv.ID)
	for _, m := range msgs {
		if m.Type == store.TypeTimeGap {
			t.Fatal("no marker expected within the session")
		}
	}
}

func TestSendMessage_PromptIncludesMemories(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	ctx := context.Background()

	blob := `[{"importance":90,"text":"Sam is allergic to peanuts"}]`
	if err := f.store.SetMemoryBlob(ctx, f.char.ID, []byte(blob)); err != nil {
		t.Fatalf("set blob: %v", err)
	}

	if _, err := f.svc.SendMessage(ctx, f.conv.ID, "user-1", "dinner plans?"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	req, ok := f.mock.LastRequest()
	if !ok {
		t.Fatal("no completion request recorded")
	}
	if !strings.Contains(req.Messages[0].Content, "Sam is allergic to peanuts") {
		t.Error("memory missing from the system prompt")
	}
}

func TestSendMessage_ProviderFailureKeepsUserMessage(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	f.mock.CompleteFunc = func(context.Context, provider.CompletionRequest) (provider.CompletionResponse, error) {
		return provider.CompletionResponse{}, errors.New("model overloaded")
	}

	_, err := f.svc.SendMessage(context.Background(), f.conv.ID, "user-1", "hello?")
	if err == nil {
		t.Fatal("expected an error")
	}

	msgs, _ := f.store.Messages(context.Background(), f.conv.ID)
	if len(msgs) != 1 {
		t.Fatalf("len = %d, want the user message alone", len(msgs))
	}
	if msgs[0].Role != store.RoleUser {
		t.Errorf("surviving row = %+v", msgs[0])
	}
}

func TestSendMessage_UnknownConversation(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	_, err := f.svc.SendMessage(context.Background(), "nope", "user-1", "hi")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
