package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/config"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestOpen_MigrationIsIdempotent(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "test.db")

	st, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	st, err = Open(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	_ = st.Close()
}

func TestMessages_OrderedByTimeThenID(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	char, err := st.CreateCharacter(ctx, "Aria", "persona")
	if err != nil {
		t.Fatalf("create character: %v", err)
	}
	conv, err := st.CreateConversation(ctx, "user-1", char.ID)
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	// Two rows share a timestamp; insertion order must break the tie.
	for _, m := range []Message{
		{ConversationID: conv.ID, Role: RoleUser, Content: "first", CreatedAt: ts},
		{ConversationID: conv.ID, Role: RoleAssistant, Content: "second", CreatedAt: ts},
		{ConversationID: conv.ID, Role: RoleUser, Content: "third", CreatedAt: ts.Add(time.Minute)},
	} {
		if _, err := st.AppendMessage(ctx, m); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	msgs, err := st.Messages(ctx, conv.ID)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	want := []string{"first", "second", "third"}
	if len(msgs) != len(want) {
		t.Fatalf("len = %d, want %d", len(msgs), len(want))
	}
	for i, w := range want {
		if msgs[i].Content != w {
			t.Errorf("position %d: %q, want %q", i, msgs[i].Content, w)
		}
	}
}

func TestAppendMessage_RoundTripsAllFields(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	char, _ := st.CreateCharacter(ctx, "Aria", "persona")
	conv, _ := st.CreateConversation(ctx, "user-1", char.ID)

	ts := time.Date(2026, 3, 1, 12, 0, 0, 123_000_000, time.UTC)
	in := Message{
		ConversationID: conv.ID,
		Role:           RoleSystem,
		Type:           TypeTimeGap,
		Content:        "[2.5 hours have passed. A new session begins.]",
		GapHours:       2.5,
		CreatedAt:      ts,
	}
	id, err := st.AppendMessage(ctx, in)
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	msgs, err := st.Messages(ctx, conv.ID)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("len = %d, want 1", len(msgs))
	}
	got := msgs[0]
	if got.ID != id || got.Role != in.Role || got.Type != in.Type || got.Content != in.Content || got.GapHours != in.GapHours {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if !got.CreatedAt.Equal(ts) {
		t.Errorf("created at = %v, want %v (millisecond precision)", got.CreatedAt, ts)
	}
}

func TestAppendMessage_DefaultsTypeToNormal(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	char, _ := st.CreateCharacter(ctx, "Aria", "persona")
	conv, _ := st.CreateConversation(ctx, "user-1", char.ID)

	if _, err := st.AppendMessage(ctx, Message{
		ConversationID: conv.ID,
		Role:           RoleUser,
		Content:        "hi",
		CreatedAt:      time.Now(),
	}); err != nil {
		t.Fatalf("append: %v", err)
	}
	msgs, _ := st.Messages(ctx, conv.ID)
	if msgs[0].Type != TypeNormal {
		t.Errorf("type = %q, want normal", msgs[0].Type)
	}
}

func TestDeleteMessages(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	char, _ := st.CreateCharacter(ctx, "Aria", "persona")
	conv, _ := st.CreateConversation(ctx, "user-1", char.ID)

	ts := time.Now().UTC()
	var ids []int64
	for i := 0; i < 4; i++ {
		id, err := st.AppendMessage(ctx, Message{
			ConversationID: conv.ID, Role: RoleUser, Content: "m", CreatedAt: ts.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		ids = append(ids, id)
	}

	if err := st.DeleteMessages(ctx, ids[0], ids[2]); err != nil {
		t.Fatalf("delete: %v", err)
	}
	msgs, _ := st.Messages(ctx, conv.ID)
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2", len(msgs))
	}

	// Re-deleting already gone rows is harmless.
	if err := st.DeleteMessages(ctx, ids[0]); err != nil {
		t.Errorf("re-delete: %v", err)
	}
	// And so is an empty call.
	if err := st.DeleteMessages(ctx); err != nil {
		t.Errorf("empty delete: %v", err)
	}
}

func TestSummaryQueries(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	char, _ := st.CreateCharacter(ctx, "Aria", "persona")
	conv, _ := st.CreateConversation(ctx, "user-1", char.ID)

	count, err := st.CountSummaries(ctx, conv.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
	if _, ok, err := st.OldestSummary(ctx, conv.ID); err != nil || ok {
		t.Errorf("oldest on empty: ok=%v err=%v", ok, err)
	}

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var first int64
	for i := 0; i < 3; i++ {
		id, err := st.AppendMessage(ctx, Message{
			ConversationID: conv.ID, Role: RoleSystem, Type: TypeSummary,
			Content: "s", CreatedAt: ts.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		if i == 0 {
			first = id
		}
	}
	// A normal row must not count.
	if _, err := st.AppendMessage(ctx, Message{
		ConversationID: conv.ID, Role: RoleUser, Content: "hi", CreatedAt: ts,
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	count, err = st.CountSummaries(ctx, conv.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
	id, ok, err := st.OldestSummary(ctx, conv.ID)
	if err != nil || !ok {
		t.Fatalf("oldest: ok=%v err=%v", ok, err)
	}
	if id != first {
		t.Errorf("oldest = %d, want %d", id, first)
	}
}

func TestCharacter_NotFound(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	_, err := st.Character(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryBlob_RoundTrip(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	char, _ := st.CreateCharacter(ctx, "Aria", "persona")

	blob, err := st.MemoryBlob(ctx, char.ID)
	if err != nil {
		t.Fatalf("blob: %v", err)
	}
	if string(blob) != "[]" {
		t.Errorf("fresh blob = %q, want []", blob)
	}

	want := `[{"importance":80,"text":"likes hiking"}]`
	if err := st.SetMemoryBlob(ctx, char.ID, []byte(want)); err != nil {
		t.Fatalf("set blob: %v", err)
	}
	blob, err = st.MemoryBlob(ctx, char.ID)
	if err != nil {
		t.Fatalf("blob: %v", err)
	}
	if string(blob) != want {
		t.Errorf("blob = %q, want %q", blob, want)
	}

	if err := st.SetMemoryBlob(ctx, "nope", []byte("[]")); !errors.Is(err, ErrNotFound) {
		t.Errorf("set on missing character: %v, want ErrNotFound", err)
	}
}

func TestUserSettings_DefaultsWhenUnsaved(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)

	got, err := st.UserSettings(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if got != config.DefaultChatSettings() {
		t.Errorf("settings = %+v, want defaults", got)
	}
}

func TestSaveUserSettings_RoundTripAndUpdate(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	s := config.DefaultChatSettings()
	s.DisplayName = "Sam"
	s.CompactThresholdPercent = 80
	s.CompactTargetPercent = 60
	s.ContextWindow = 64000

	if err := st.SaveUserSettings(ctx, "user-1", s); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := st.UserSettings(ctx, "user-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != s {
		t.Errorf("round trip = %+v, want %+v", got, s)
	}

	// Saving again replaces the row.
	s.ContextWindow = 128000
	if err := st.SaveUserSettings(ctx, "user-1", s); err != nil {
		t.Fatalf("re-save: %v", err)
	}
	got, _ = st.UserSettings(ctx, "user-1")
	if got.ContextWindow != 128000 {
		t.Errorf("context window = %d after update", got.ContextWindow)
	}
}

func TestSaveUserSettings_RejectsInvalid(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)

	s := config.DefaultChatSettings()
	s.CompactTargetPercent = 95
	if err := st.SaveUserSettings(context.Background(), "user-1", s); err == nil {
		t.Fatal("expected validation to reject out-of-range settings")
	}

	// The invalid save left nothing behind.
	got, err := st.UserSettings(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != config.DefaultChatSettings() {
		t.Errorf("settings = %+v, want untouched defaults", got)
	}
}
