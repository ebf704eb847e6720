package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"docqa/model"
	"docqa/retrieval"
	"docqa/store"
)

const (
	toolSearchDocuments     = "search_documents"
	toolListDocuments       = "list_documents"
	toolSummarizeText       = "summarize_text"
	toolSummarizeLastAnswer = "summarize_last_answer"

	noPreviousAnswer = "No previous answer to summarize."
	noDocuments      = "No documents available."
)

// Toolset dispatches the closed set of operations the reasoning model
// may call during one question. It remembers the latest retrieval so
// the orchestrator can resolve [rank] citation markers afterwards.
type Toolset struct {
	engine     *retrieval.Engine
	registry   store.DocumentRegistry
	summarizer *Summarizer
	memory     *Memory
	userID     string

	lastRetrieved []retrieval.RankedChunk
	searched      bool
}

func NewToolset(engine *retrieval.Engine, registry store.DocumentRegistry, summarizer *Summarizer, memory *Memory, userID string) *Toolset {
	return &Toolset{
		engine:     engine,
		registry:   registry,
		summarizer: summarizer,
		memory:     memory,
		userID:     userID,
	}
}

// LastRetrieved reports the chunks of the most recent search and
// whether any search ran at all.
func (t *Toolset) LastRetrieved() ([]retrieval.RankedChunk, bool) {
	return t.lastRetrieved, t.searched
}

// Definitions describes the tools in the wire schema the model expects.
func (t *Toolset) Definitions() []model.Tool {
	return []model.Tool{
		{
			Name:        toolSearchDocuments,
			Description: "Search the user's documents for passages relevant to a query. Optional: specify a document filename. Returns formatted chunks with sources.",
			Parameters: model.Parameters{
				Type:     "object",
				Required: []string{"query"},
				Properties: map[string]model.Property{
					"query":    {Type: "string", Description: "What to look for in the documents."},
					"document": {Type: "string", Description: "Restrict the search to this filename."},
					"limit":    {Type: "integer", Description: "Maximum number of passages to return."},
				},
			},
		},
		{
			Name:        toolListDocuments,
			Description: "List available documents for the current user.",
			Parameters: model.Parameters{
				Type:       "object",
				Required:   []string{},
				Properties: map[string]model.Property{},
			},
		},
		{
			Name:        toolSummarizeText,
			Description: "Summarize provided text into concise bullet points (use after searching documents).",
			Parameters: model.Parameters{
				Type:     "object",
				Required: []string{"text"},
				Properties: map[string]model.Property{
					"text":       {Type: "string", Description: "The text to summarize."},
					"max_points": {Type: "integer", Description: "Maximum number of bullet points."},
				},
			},
		},
		{
			Name:        toolSummarizeLastAnswer,
			Description: "Summarize the assistant's most recent answer into concise bullet points.",
			Parameters: model.Parameters{
				Type:     "object",
				Required: []string{},
				Properties: map[string]model.Property{
					"max_points": {Type: "integer", Description: "Maximum number of bullet points."},
				},
			},
		},
	}
}

// Dispatch executes one tool call. Unknown tool names are errors; the
// known tools prefer returning an explanatory observation over failing.
func (t *Toolset) Dispatch(ctx context.Context, call model.ToolCall) (string, error) {
	args := call.Function.Arguments
	switch call.Function.Name {
	case toolSearchDocuments:
		return t.searchDocuments(ctx, args)
	case toolListDocuments:
		return t.listDocuments(ctx)
	case toolSummarizeText:
		return t.summarizer.Summarize(ctx, stringArg(args, "text"), intArg(args, "max_points"))
	case toolSummarizeLastAnswer:
		return t.summarizeLastAnswer(ctx, args)
	default:
		return "", fmt.Errorf("unknown tool %q", call.Function.Name)
	}
}

func (t *Toolset) searchDocuments(ctx context.Context, args map[string]any) (string, error) {
	query := strings.TrimSpace(stringArg(args, "query"))
	if query == "" {
		return "Query is required.", nil
	}

	chunks, err := t.engine.RetrieveFrom(ctx, t.userID, query, stringArg(args, "document"), intArg(args, "limit"))
	if err != nil {
		return "", err
	}
	t.lastRetrieved = chunks
	t.searched = true
	return retrieval.FormatContext(chunks), nil
}

func (t *Toolset) listDocuments(ctx context.Context) (string, error) {
	docs, err := t.registry.ListDocuments(ctx, t.userID)
	if err != nil {
		return "", err
	}
	if len(docs) == 0 {
		return noDocuments, nil
	}
	lines := make([]string, len(docs))
	for i, d := range docs {
		lines[i] = fmt.Sprintf("- %s (uploaded: %s)", d.Filename, d.UploadedAt.Format(time.RFC3339))
	}
	return strings.Join(lines, "\n"), nil
}

func (t *Toolset) summarizeLastAnswer(ctx context.Context, args map[string]any) (string, error) {
	if t.memory == nil {
		return noPreviousAnswer, nil
	}
	last, ok := t.memory.LastAssistant()
	if !ok || strings.TrimSpace(last) == "" {
		return noPreviousAnswer, nil
	}
	return t.summarizer.Summarize(ctx, last, intArg(args, "max_points"))
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// intArg tolerates the json number types the model sends.
func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		var n int
		fmt.Sscanf(v, "%d", &n)
		return n
	}
	return 0
}
