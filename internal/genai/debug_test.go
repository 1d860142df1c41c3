package genai

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func readDebugEntries(t *testing.T, dir string) []map[string]interface{} {
	t.Helper()
	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read debug directory: %v", err)
	}
	var entries []map[string]interface{}
	for _, f := range files {
		content, err := os.ReadFile(filepath.Join(dir, f.Name()))
		if err != nil {
			t.Fatalf("failed to read debug file: %v", err)
		}
		var entry map[string]interface{}
		if err := json.Unmarshal(content, &entry); err != nil {
			t.Fatalf("failed to unmarshal debug log: %v", err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestDebugLogging(t *testing.T) {
	stateDir := t.TempDir()
	client := &Client{
		chat:        &mockChatService{resp: completion("Test response")},
		model:       "test-model",
		temperature: 0.7,
		maxTokens:   100,
		debugMode:   true,
		stateDir:    stateDir,
	}

	if _, err := client.Generate(context.Background(), Request{SystemPrompt: "System prompt", UserPrompt: "User prompt"}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	entries := readDebugEntries(t, filepath.Join(stateDir, "debug"))
	if len(entries) != 1 {
		t.Fatalf("expected 1 debug entry, got %d", len(entries))
	}
	entry := entries[0]
	for _, field := range []string{"timestamp", "method", "model", "params", "response"} {
		if _, exists := entry[field]; !exists {
			t.Errorf("required field %q missing from debug log", field)
		}
	}
	if entry["method"] != "Generate" {
		t.Errorf("expected method Generate, got %v", entry["method"])
	}
	if entry["model"] != "test-model" {
		t.Errorf("expected model test-model, got %v", entry["model"])
	}
}

func TestDebugLoggingRecordsFailures(t *testing.T) {
	stateDir := t.TempDir()
	client := &Client{
		chat:      &mockChatService{err: errors.New("upstream down")},
		model:     "test-model",
		debugMode: true,
		stateDir:  stateDir,
	}
	if _, err := client.Generate(context.Background(), Request{SystemPrompt: "s", UserPrompt: "u"}); err == nil {
		t.Fatal("expected error")
	}
	entries := readDebugEntries(t, filepath.Join(stateDir, "debug"))
	if len(entries) != 1 || entries[0]["error"] != "upstream down" {
		t.Errorf("expected failure to be recorded, got %+v", entries)
	}
}

func TestDebugLoggingDisabled(t *testing.T) {
	stateDir := t.TempDir()
	client := &Client{
		chat:      &mockChatService{resp: completion("Test response")},
		model:     "test-model",
		debugMode: false,
		stateDir:  stateDir,
	}
	if _, err := client.Generate(context.Background(), Request{SystemPrompt: "System prompt", UserPrompt: "User prompt"}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(stateDir, "debug")); !os.IsNotExist(err) {
		t.Errorf("debug directory should not be created when debug mode is disabled")
	}
}
