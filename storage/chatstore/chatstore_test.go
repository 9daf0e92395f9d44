package chatstore

import (
	"context"
	"os"
	"testing"

	"github.com/aqua777/docquery/llm"
)

func TestSimpleChatStoreSetAndGetMessages(t *testing.T) {
	ctx := context.Background()
	store := NewSimpleChatStore()

	messages := []llm.ChatMessage{
		llm.NewUserMessage("Hello"),
		llm.NewAssistantMessage("Hi there!"),
	}

	// Set messages
	err := store.SetMessages(ctx, "docs", messages)
	if err != nil {
		t.Fatalf("SetMessages failed: %v", err)
	}

	// Get messages
	retrieved, err := store.GetMessages(ctx, "docs")
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}

	if len(retrieved) != 2 {
		t.Errorf("Expected 2 messages, got %d", len(retrieved))
	}

	if retrieved[0].Content != "Hello" {
		t.Errorf("Expected 'Hello', got '%s'", retrieved[0].Content)
	}
}

func TestSimpleChatStoreGetMessagesEmpty(t *testing.T) {
	ctx := context.Background()
	store := NewSimpleChatStore()

	messages, err := store.GetMessages(ctx, "nonexistent")
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}

	if len(messages) != 0 {
		t.Errorf("Expected empty slice, got %d messages", len(messages))
	}
}

func TestSimpleChatStoreAddMessages(t *testing.T) {
	ctx := context.Background()
	store := NewSimpleChatStore()

	if err := store.AddMessages(ctx, "docs", llm.NewUserMessage("Hello")); err != nil {
		t.Fatalf("AddMessages failed: %v", err)
	}
	if err := store.AddMessages(ctx, "docs", llm.NewAssistantMessage("Hi!"), llm.NewUserMessage("Bye")); err != nil {
		t.Fatalf("AddMessages failed: %v", err)
	}

	messages, err := store.GetMessages(ctx, "docs")
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}

	if len(messages) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(messages))
	}
	if messages[2].Content != "Bye" {
		t.Errorf("Expected last message 'Bye', got '%s'", messages[2].Content)
	}
}

func TestSimpleChatStoreDeleteMessages(t *testing.T) {
	ctx := context.Background()
	store := NewSimpleChatStore()

	store.AddMessages(ctx, "docs", llm.NewUserMessage("Hello"))

	deleted, err := store.DeleteMessages(ctx, "docs")
	if err != nil {
		t.Fatalf("DeleteMessages failed: %v", err)
	}
	if len(deleted) != 1 {
		t.Errorf("Expected 1 deleted message, got %d", len(deleted))
	}

	messages, _ := store.GetMessages(ctx, "docs")
	if len(messages) != 0 {
		t.Errorf("Expected no messages after delete, got %d", len(messages))
	}

	deleted, err = store.DeleteMessages(ctx, "docs")
	if err != nil {
		t.Fatalf("DeleteMessages failed: %v", err)
	}
	if deleted != nil {
		t.Errorf("Expected nil for nonexistent key, got %v", deleted)
	}
}

func TestSimpleChatStoreGetKeys(t *testing.T) {
	ctx := context.Background()
	store := NewSimpleChatStore()

	store.AddMessages(ctx, "reports", llm.NewUserMessage("a"))
	store.AddMessages(ctx, "contracts", llm.NewUserMessage("b"))

	keys, err := store.GetKeys(ctx)
	if err != nil {
		t.Fatalf("GetKeys failed: %v", err)
	}
	if len(keys) != 2 || keys[0] != "contracts" || keys[1] != "reports" {
		t.Errorf("Expected [contracts reports], got %v", keys)
	}
}

func TestSimpleChatStoreIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewSimpleChatStore()

	messages := []llm.ChatMessage{llm.NewUserMessage("original")}
	store.SetMessages(ctx, "docs", messages)

	// Mutating the caller's slice must not leak into the store
	messages[0].Content = "mutated"

	retrieved, _ := store.GetMessages(ctx, "docs")
	if retrieved[0].Content != "original" {
		t.Errorf("Store was mutated through the input slice")
	}

	retrieved[0].Content = "mutated again"
	again, _ := store.GetMessages(ctx, "docs")
	if again[0].Content != "original" {
		t.Errorf("Store was mutated through the returned slice")
	}
}

func TestEncodeDecodeMessages(t *testing.T) {
	values, err := encodeMessages([]llm.ChatMessage{llm.NewUserMessage("q"), llm.NewAssistantMessage("a")})
	if err != nil {
		t.Fatalf("encodeMessages failed: %v", err)
	}
	if values[0] != `{"role":"user","content":"q"}` {
		t.Errorf("Unexpected encoding %v", values[0])
	}

	raw := make([]string, len(values))
	for i, v := range values {
		raw[i] = v.(string)
	}
	messages, err := decodeMessages(raw)
	if err != nil {
		t.Fatalf("decodeMessages failed: %v", err)
	}
	if messages[1].Role != llm.MessageRoleAssistant || messages[1].Content != "a" {
		t.Errorf("Unexpected decoded message %+v", messages[1])
	}

	if _, err := decodeMessages([]string{"{broken"}); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

// TestRedisChatStore runs against a live server when REDIS_TEST_ADDR is set.
func TestRedisChatStore(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	ctx := context.Background()
	store, err := NewRedisChatStore(ctx, addr, "", 0, WithKeyPrefix("docquery:test:"))
	if err != nil {
		t.Fatalf("NewRedisChatStore failed: %v", err)
	}
	defer store.Close()
	defer store.DeleteMessages(ctx, "docs")

	if err := store.SetMessages(ctx, "docs", []llm.ChatMessage{llm.NewUserMessage("one")}); err != nil {
		t.Fatalf("SetMessages failed: %v", err)
	}
	if err := store.AddMessages(ctx, "docs", llm.NewAssistantMessage("two")); err != nil {
		t.Fatalf("AddMessages failed: %v", err)
	}

	messages, err := store.GetMessages(ctx, "docs")
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(messages) != 2 || messages[1].Content != "two" {
		t.Errorf("Unexpected messages %+v", messages)
	}

	keys, err := store.GetKeys(ctx)
	if err != nil {
		t.Fatalf("GetKeys failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != "docs" {
		t.Errorf("Expected [docs], got %v", keys)
	}

	deleted, err := store.DeleteMessages(ctx, "docs")
	if err != nil {
		t.Fatalf("DeleteMessages failed: %v", err)
	}
	if len(deleted) != 2 {
		t.Errorf("Expected 2 deleted messages, got %d", len(deleted))
	}
}
