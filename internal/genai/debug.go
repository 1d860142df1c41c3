package genai

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/openai/openai-go"
)

// debugEntry is one generation call as written to the debug directory.
type debugEntry struct {
	Timestamp time.Time                      `json:"timestamp"`
	Method    string                         `json:"method"`
	Model     string                         `json:"model"`
	Params    openai.ChatCompletionNewParams `json:"params"`
	Response  debugResponse                  `json:"response"`
	Error     string                         `json:"error,omitempty"`
}

type debugResponse struct {
	Choices []string `json:"choices"`
	Raw     string   `json:"raw,omitempty"`
}

// writeDebugLog records a call under <stateDir>/debug. Failures are only logged.
func (c *Client) writeDebugLog(method string, params openai.ChatCompletionNewParams, resp openai.ChatCompletion, callErr error) {
	dir := filepath.Join(c.stateDir, "debug")
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Warn("genai.Client.writeDebugLog: cannot create debug dir", "dir", dir, "error", err)
		return
	}
	now := time.Now()
	entry := debugEntry{
		Timestamp: now,
		Method:    method,
		Model:     c.model,
		Params:    params,
		Response:  debugResponse{Choices: make([]string, 0, len(resp.Choices)), Raw: resp.RawJSON()},
	}
	for _, choice := range resp.Choices {
		entry.Response.Choices = append(entry.Response.Choices, choice.Message.Content)
	}
	if callErr != nil {
		entry.Error = callErr.Error()
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		slog.Warn("genai.Client.writeDebugLog: marshal failed", "error", err)
		return
	}
	name := fmt.Sprintf("%s_%s.json", now.Format("20060102T150405.000000000"), method)
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		slog.Warn("genai.Client.writeDebugLog: write failed", "file", name, "error", err)
	}
}
