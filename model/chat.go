package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Message is one entry of the chat transcript sent to the reasoning
// collaborator. Tool results go back with role "tool".
type Message struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolName  string     `json:"tool_name,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall is a structured tool invocation requested by the model.
type ToolCall struct {
	Function ToolCallFunction `json:"function"`
}

type ToolCallFunction struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Property describes one tool argument for the model.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Parameters is the argument schema of a tool.
type Parameters struct {
	Type       string              `json:"type"`
	Required   []string            `json:"required"`
	Properties map[string]Property `json:"properties"`
}

// Tool describes one callable operation offered to the model.
type Tool struct {
	Name        string
	Description string
	Parameters  Parameters
}

// Completion is the model's reply: either tool calls to dispatch or a
// final answer in Content.
type Completion struct {
	Content   string
	ToolCalls []ToolCall
}

// ChatModel is the reasoning collaborator boundary. Implementations are
// opaque request/response services.
type ChatModel interface {
	Chat(ctx context.Context, messages []Message, tools []Tool) (Completion, error)
}

// OllamaChat implements ChatModel against the ollama chat API with
// function tools enabled and streaming disabled.
type OllamaChat struct {
	apiURL      string
	model       string
	temperature float64
	client      *http.Client
	logger      *slog.Logger
}

func NewOllamaChat(apiURL, model string, temperature float64, timeout time.Duration) *OllamaChat {
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	return &OllamaChat{
		apiURL:      apiURL,
		model:       model,
		temperature: temperature,
		client:      &http.Client{Timeout: timeout},
		logger:      slog.Default().With("component", "chat"),
	}
}

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Tools    []wireTool     `json:"tools,omitempty"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type wireTool struct {
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  Parameters `json:"parameters"`
}

type ollamaChatResponse struct {
	Message struct {
		Role      string     `json:"role"`
		Content   string     `json:"content"`
		ToolCalls []ToolCall `json:"tool_calls"`
	} `json:"message"`
	Done bool `json:"done"`
}

func (c *OllamaChat) Chat(ctx context.Context, messages []Message, tools []Tool) (Completion, error) {
	start := time.Now()

	req := ollamaChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
		Options:  map[string]any{"temperature": c.temperature},
	}
	for _, t := range tools {
		params := t.Parameters
		if params.Type == "" {
			params.Type = "object"
		}
		if params.Properties == nil {
			params.Properties = map[string]Property{}
		}
		if params.Required == nil {
			params.Required = []string{}
		}
		req.Tools = append(req.Tools, wireTool{
			Type:     "function",
			Function: wireFunction{Name: t.Name, Description: t.Description, Parameters: params},
		})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Completion{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return Completion{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Completion{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return Completion{}, fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, respBody)
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return Completion{}, fmt.Errorf("failed to parse chat response: %w", err)
	}

	c.logger.Debug("chat completion",
		"duration", time.Since(start),
		"tool_calls", len(chatResp.Message.ToolCalls))

	return Completion{
		Content:   chatResp.Message.Content,
		ToolCalls: chatResp.Message.ToolCalls,
	}, nil
}
