package services

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/vamshi726/food-scan-ai/config"
	"github.com/vamshi726/food-scan-ai/models"
	"gorm.io/gorm"
)

func setupCoachDB(t *testing.T) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Conversation{}, &models.ChatMessage{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	prev := config.DB
	config.DB = db
	t.Cleanup(func() { config.DB = prev })
}

func conversationMessages(t *testing.T, conversationID string) []models.ChatMessage {
	t.Helper()
	var rows []models.ChatMessage
	if err := config.DB.Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		t.Fatalf("load messages: %v", err)
	}
	return rows
}

func TestOpenConversationSeedsWelcome(t *testing.T) {
	setupCoachDB(t)
	svc := NewCoachService(nil)

	conv, err := svc.OpenConversation(7)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	msgs := conversationMessages(t, conv.ID)
	if len(msgs) != 1 || msgs[0].Role != "assistant" || msgs[0].Content != coachWelcomeMessage {
		t.Fatalf("new conversation must start with the welcome message, got %+v", msgs)
	}

	// A second open returns the same conversation, no second seed.
	again, err := svc.OpenConversation(7)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if again.ID != conv.ID {
		t.Fatalf("expected the existing conversation, got %s vs %s", again.ID, conv.ID)
	}
}

func TestStreamReplyPersistsBothTurns(t *testing.T) {
	setupCoachDB(t)
	ai := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Try\"}}]}\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\" oats\"}}]}\n")
		fmt.Fprint(w, "data: [DONE]\n")
	})
	svc := NewCoachService(ai)

	conv, err := svc.OpenConversation(7)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	reply, err := svc.StreamReply(context.Background(), conv, nil, "what should I eat?", nil)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if reply != "Try oats" {
		t.Fatalf("reply: %q", reply)
	}

	msgs := conversationMessages(t, conv.ID)
	if len(msgs) != 3 {
		t.Fatalf("expected welcome + user + assistant, got %d: %+v", len(msgs), msgs)
	}
	if msgs[1].Role != "user" || msgs[1].Content != "what should I eat?" {
		t.Fatalf("user turn: %+v", msgs[1])
	}
	if msgs[2].Role != "assistant" || msgs[2].Content != "Try oats" {
		t.Fatalf("assistant turn: %+v", msgs[2])
	}
}

func TestStreamReplyKeepsUserTurnOnMidStreamFailure(t *testing.T) {
	setupCoachDB(t)
	// Declare more bytes than are sent so the client hits a read error
	// mid-stream instead of a clean EOF.
	ai := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Content-Length", "4096")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"par\"}}]}\n")
	})
	svc := NewCoachService(ai)

	conv, err := svc.OpenConversation(7)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if _, err := svc.StreamReply(context.Background(), conv, nil, "hello?", nil); err == nil {
		t.Fatal("truncated stream must surface an error")
	}

	msgs := conversationMessages(t, conv.ID)
	if len(msgs) != 2 {
		t.Fatalf("expected welcome + user turn, got %d: %+v", len(msgs), msgs)
	}
	if msgs[1].Role != "user" || msgs[1].Content != "hello?" {
		t.Fatalf("the user turn must survive a dead stream, got %+v", msgs[1])
	}
}

func TestStreamReplyPreStreamErrorPersistsNothing(t *testing.T) {
	setupCoachDB(t)
	ai := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	svc := NewCoachService(ai)

	conv, err := svc.OpenConversation(7)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if _, err := svc.StreamReply(context.Background(), conv, nil, "hello?", nil); err == nil {
		t.Fatal("expected the rate-limit error")
	}

	// The request never got through, so a retry must not duplicate turns.
	if msgs := conversationMessages(t, conv.ID); len(msgs) != 1 {
		t.Fatalf("rejected request must leave only the welcome message, got %+v", msgs)
	}
}
