package chat_test

import (
	"context"
	"errors"
	"testing"
	"time"

	model "github.com/lumohealth/companion/backend/internal/model/chat"
	chat "github.com/lumohealth/companion/backend/internal/service/chat"
)

func TestServiceCreateAndGetSession(t *testing.T) {
	svc := chat.NewService(30 * time.Minute)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "user-1", "en")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	got, err := svc.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}
	if got.ID != session.ID {
		t.Fatalf("unexpected session ID: got %s want %s", got.ID, session.ID)
	}
	if got.Language != "en" {
		t.Fatalf("unexpected language: got %s", got.Language)
	}
	if !got.ExpiresAt.After(got.CreatedAt) {
		t.Fatal("expected expiry after creation")
	}
}

func TestServiceGetSessionNotFound(t *testing.T) {
	svc := chat.NewService(30 * time.Minute)
	if _, err := svc.GetSession(context.Background(), "missing"); !errors.Is(err, chat.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestServiceAppendOnlyOrdering(t *testing.T) {
	svc := chat.NewService(30 * time.Minute)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "", "en")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	contents := []string{"first", "second", "third"}
	for _, content := range contents {
		if _, err := svc.AppendMessage(ctx, model.Message{
			SessionID: session.ID,
			Role:      model.RoleUser,
			Content:   content,
		}); err != nil {
			t.Fatalf("AppendMessage err: %v", err)
		}
	}

	messages, err := svc.Messages(ctx, session.ID)
	if err != nil {
		t.Fatalf("Messages err: %v", err)
	}
	if len(messages) != len(contents) {
		t.Fatalf("expected %d messages, got %d", len(contents), len(messages))
	}
	for i, content := range contents {
		if messages[i].Content != content {
			t.Fatalf("message %d out of order: got %q want %q", i, messages[i].Content, content)
		}
	}
}

func TestServiceTurnSerialization(t *testing.T) {
	svc := chat.NewService(30 * time.Minute)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "", "en")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	if _, _, err := svc.BeginTurn(ctx, session.ID); err != nil {
		t.Fatalf("first BeginTurn err: %v", err)
	}
	if _, _, err := svc.BeginTurn(ctx, session.ID); !errors.Is(err, chat.ErrTurnInFlight) {
		t.Fatalf("expected ErrTurnInFlight, got %v", err)
	}

	svc.EndTurn(ctx, session.ID)
	if _, _, err := svc.BeginTurn(ctx, session.ID); err != nil {
		t.Fatalf("BeginTurn after EndTurn err: %v", err)
	}
}

func TestServiceSessionExpiry(t *testing.T) {
	svc := chat.NewService(10 * time.Minute)
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return now })

	session, err := svc.CreateSession(ctx, "", "en")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}
	if _, err := svc.AppendMessage(ctx, model.Message{SessionID: session.ID, Role: model.RoleUser, Content: "hi"}); err != nil {
		t.Fatalf("AppendMessage err: %v", err)
	}

	now = now.Add(11 * time.Minute)
	if _, _, err := svc.BeginTurn(ctx, session.ID); !errors.Is(err, chat.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}

	fresh, err := svc.RecreateSession(ctx, session.ID, "en")
	if err != nil {
		t.Fatalf("RecreateSession err: %v", err)
	}
	if fresh.ID != session.ID {
		t.Fatalf("recreated session should keep id: got %s", fresh.ID)
	}
	if fresh.Acknowledged {
		t.Fatal("recreated session must not carry acknowledgment")
	}

	messages, err := svc.Messages(ctx, session.ID)
	if err != nil {
		t.Fatalf("Messages err: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("recreated session must have zero prior messages, got %d", len(messages))
	}
}

func TestServiceBeginTurnExtendsWindow(t *testing.T) {
	svc := chat.NewService(10 * time.Minute)
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return now })

	session, err := svc.CreateSession(ctx, "", "en")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	// Activity within the window keeps the session alive past its original
	// expiry.
	now = now.Add(8 * time.Minute)
	if _, _, err := svc.BeginTurn(ctx, session.ID); err != nil {
		t.Fatalf("BeginTurn err: %v", err)
	}
	svc.EndTurn(ctx, session.ID)

	now = now.Add(8 * time.Minute)
	if _, _, err := svc.BeginTurn(ctx, session.ID); err != nil {
		t.Fatalf("BeginTurn after activity err: %v", err)
	}
}
