package agent

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"

	"docqa/config"
	"docqa/model"
	"docqa/retrieval"
	"docqa/store"
	"docqa/types"
)

const systemPrompt = "You are an educational assistant that must ground answers in the user's documents. " +
	"Always call tools to retrieve context before answering. " +
	"For summary requests (summarize, summary, bullet points), first call search_documents; " +
	"if no relevant context is found, say so rather than summarizing unrelated content. " +
	"When summarizing, call summarize_text on the retrieved passages or summarize_last_answer when the user asks to summarize your previous reply. " +
	"For follow-up questions that reference earlier answers (e.g., 'explain that bullet'), use summarize_last_answer to recall what you said and build on it before searching. " +
	"When responding, cite chunk indices and filenames from tool output like [1] (filename). " +
	"If no context is available, state that clearly."

const budgetExhaustedAnswer = "I could not finish answering within the step limit. Please try a narrower question."

var citationMarker = regexp.MustCompile(`\[(\d+)\]`)

// Answer is the orchestrator's reply to one question.
type Answer struct {
	Text      string
	Citations []types.Citation
	Trace     []types.ToolTrace
}

// Orchestrator runs the bounded tool-calling loop: ask the model, run
// the tools it requests, feed the observations back, repeat until it
// produces a plain answer or the step budget runs out. Tool failures
// are returned to the model as observations rather than aborting the
// question.
type Orchestrator struct {
	chat       model.ChatModel
	engine     *retrieval.Engine
	registry   store.DocumentRegistry
	summarizer *Summarizer
	cfg        config.AgentConfig
	logger     *slog.Logger
}

func NewOrchestrator(chat model.ChatModel, engine *retrieval.Engine, registry store.DocumentRegistry, summarizer *Summarizer, cfg config.AgentConfig) *Orchestrator {
	return &Orchestrator{
		chat:       chat,
		engine:     engine,
		registry:   registry,
		summarizer: summarizer,
		cfg:        cfg,
		logger:     slog.Default().With("component", "agent"),
	}
}

func (o *Orchestrator) Answer(ctx context.Context, userID, question string, memory *Memory) (Answer, error) {
	tools := NewToolset(o.engine, o.registry, o.summarizer, memory, userID)

	messages := []model.Message{{Role: "system", Content: systemPrompt}}
	for _, turn := range memory.Turns() {
		messages = append(messages, model.Message{Role: string(turn.Role), Content: turn.Content})
	}
	messages = append(messages, model.Message{Role: "user", Content: question})

	var trace []types.ToolTrace
	final := ""
	answered := false

	for round := 0; round < o.cfg.LoopBudget; round++ {
		if err := ctx.Err(); err != nil {
			return Answer{}, err
		}

		completion, err := o.chat.Chat(ctx, messages, tools.Definitions())
		if err != nil {
			return Answer{}, err
		}

		if len(completion.ToolCalls) == 0 {
			final = completion.Content
			answered = true
			break
		}

		messages = append(messages, model.Message{
			Role:      "assistant",
			Content:   completion.Content,
			ToolCalls: completion.ToolCalls,
		})

		for _, call := range completion.ToolCalls {
			name := call.Function.Name
			result, err := tools.Dispatch(ctx, call)
			failed := err != nil
			if failed {
				if ctx.Err() != nil {
					return Answer{}, ctx.Err()
				}
				result = fmt.Sprintf("Tool %s failed: %v. Try a different approach.", name, err)
				o.logger.Warn("tool call failed", "user", userID, "tool", name, "error", err)
			}
			trace = append(trace, types.ToolTrace{
				Tool:   name,
				Args:   call.Function.Arguments,
				Result: result,
				Failed: failed,
			})
			messages = append(messages, model.Message{Role: "tool", Content: result, ToolName: name})
		}
	}

	if !answered {
		o.logger.Warn("step budget exhausted", "user", userID, "budget", o.cfg.LoopBudget)
		final = budgetExhaustedAnswer
	}

	citations := o.resolveCitations(userID, final, tools, memory)

	memory.Append(types.ConversationTurn{Role: types.RoleUser, Content: question})
	memory.Append(types.ConversationTurn{Role: types.RoleAssistant, Content: final, Trace: trace})

	tokens, _ := model.CountTokens(final)
	o.logger.Info("answered question",
		"user", userID,
		"rounds", len(trace),
		"citations", len(citations),
		"answer_tokens", tokens)

	return Answer{Text: final, Citations: citations, Trace: trace}, nil
}

// resolveCitations maps [rank] markers in the answer to the chunks of
// the last search. Markers with no retrieval behind them, in this turn
// or a remembered one, are dropped and logged; they indicate the model
// cited sources it never looked at.
func (o *Orchestrator) resolveCitations(userID, answer string, tools *Toolset, memory *Memory) []types.Citation {
	markers := citationMarker.FindAllStringSubmatch(answer, -1)
	if len(markers) == 0 {
		return nil
	}

	retrieved, searched := tools.LastRetrieved()
	if !searched {
		if !searchedEarlier(memory) {
			o.logger.Warn("answer cites sources without any retrieval", "user", userID)
		}
		return nil
	}

	byRank := make(map[int]retrieval.RankedChunk, len(retrieved))
	for _, c := range retrieved {
		byRank[c.Rank] = c
	}

	seen := make(map[int]bool)
	var citations []types.Citation
	for _, m := range markers {
		rank, err := strconv.Atoi(m[1])
		if err != nil || seen[rank] {
			continue
		}
		chunk, ok := byRank[rank]
		if !ok {
			o.logger.Warn("answer cites unknown rank", "user", userID, "rank", rank)
			continue
		}
		seen[rank] = true
		citations = append(citations, types.Citation{Rank: rank, Filename: chunk.Filename})
	}
	sort.Slice(citations, func(i, j int) bool { return citations[i].Rank < citations[j].Rank })
	return citations
}

// searchedEarlier reports whether a remembered turn carries a
// successful document search.
func searchedEarlier(memory *Memory) bool {
	for _, turn := range memory.Turns() {
		for _, trace := range turn.Trace {
			if trace.Tool == toolSearchDocuments && !trace.Failed {
				return true
			}
		}
	}
	return false
}
