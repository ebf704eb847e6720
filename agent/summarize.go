package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"docqa/model"
)

const noSummaryInput = "Nothing to summarize."

const defaultMaxPoints = 5

// Summarizer condenses text into bullet points. With a chat model it
// asks for factual bullets; without one it degrades to a deterministic
// excerpt so the tool still works offline. Blank input short-circuits
// before any model call.
type Summarizer struct {
	chat   model.ChatModel
	logger *slog.Logger
}

func NewSummarizer(chat model.ChatModel) *Summarizer {
	return &Summarizer{
		chat:   chat,
		logger: slog.Default().With("component", "summarizer"),
	}
}

func (s *Summarizer) Summarize(ctx context.Context, text string, maxPoints int) (string, error) {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return noSummaryInput, nil
	}
	if maxPoints <= 0 {
		maxPoints = defaultMaxPoints
	}
	if s.chat == nil {
		return fallbackSummary(cleaned, maxPoints), nil
	}

	completion, err := s.chat.Chat(ctx, []model.Message{
		{Role: "system", Content: "Return concise bullet points only (each starting with •). Keep it factual."},
		{Role: "user", Content: fmt.Sprintf("Limit to %d bullet points. Text:\n%s", maxPoints, cleaned)},
	}, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(completion.Content), nil
}

// fallbackSummary bullets the first lines of a 500-character excerpt.
func fallbackSummary(text string, maxPoints int) string {
	snippet := text
	if len(snippet) > 500 {
		snippet = snippet[:500] + "..."
	}
	var bullets []string
	for _, line := range strings.Split(snippet, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		bullets = append(bullets, "• "+line)
		if len(bullets) == maxPoints {
			break
		}
	}
	if len(bullets) == 0 {
		bullets = []string{"• " + snippet}
	}
	return strings.Join(bullets, "\n")
}
