// Package workflow turns a free-text question about outlets into validated
// SQL and a natural-language answer. The run is a bounded loop over a
// conversation trace: list tables, fetch schema, generate a candidate query,
// check it, execute it, and feed diagnostics back to the generator until an
// answer is submitted.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/outletmesh/outletmesh/internal/llm"
	"github.com/outletmesh/outletmesh/internal/observability"
	"github.com/outletmesh/outletmesh/internal/schema"
)

type Config struct {
	MaxGenerations int
}

type Dependencies struct {
	Chat      llm.Chat
	Inspector schema.Inspector
	Runner    QueryRunner
	Logger    *slog.Logger
}

type Controller struct {
	chat           llm.Chat
	inspector      schema.Inspector
	runner         QueryRunner
	logger         *slog.Logger
	maxGenerations int
}

func NewController(cfg Config, deps Dependencies) (*Controller, error) {
	if deps.Chat == nil {
		return nil, fmt.Errorf("chat dependency is required")
	}
	if deps.Inspector == nil {
		return nil, fmt.Errorf("inspector dependency is required")
	}
	if deps.Runner == nil {
		return nil, fmt.Errorf("runner dependency is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	maxGenerations := cfg.MaxGenerations
	if maxGenerations <= 0 {
		maxGenerations = 10
	}
	return &Controller{
		chat:           deps.Chat,
		inspector:      deps.Inspector,
		runner:         deps.Runner,
		logger:         logger,
		maxGenerations: maxGenerations,
	}, nil
}

// RunResult carries the answer plus the run stats the audit archive records.
type RunResult struct {
	Answer      string
	Generations int
	Duration    time.Duration
	StartedAt   time.Time
}

// Execute runs one question to completion and returns the submitted answer.
func (c *Controller) Execute(ctx context.Context, question string) (string, error) {
	result, err := c.ExecuteRun(ctx, question)
	return result.Answer, err
}

// ExecuteRun is Execute with run stats attached.
func (c *Controller) ExecuteRun(ctx context.Context, question string) (RunResult, error) {
	start := time.Now()
	answer, generations, err := c.run(ctx, question)
	elapsed := time.Since(start)

	outcome := "answered"
	switch {
	case errors.Is(err, ErrWorkflowExhausted):
		outcome = "exhausted"
	case err != nil:
		outcome = "failed"
	}
	observability.ObserveWorkflowRun(outcome, generations, elapsed)
	c.logger.InfoContext(ctx, "workflow run finished",
		slog.String("outcome", outcome),
		slog.Int("generations", generations),
		slog.String("duration", elapsed.String()),
	)
	return RunResult{
		Answer:      answer,
		Generations: generations,
		Duration:    elapsed,
		StartedAt:   start,
	}, err
}

func (c *Controller) run(ctx context.Context, question string) (string, int, error) {
	if strings.TrimSpace(question) == "" {
		return "", 0, fmt.Errorf("question is required")
	}

	conv := []llm.Message{
		{Role: llm.RoleUser, Content: question},
		{
			Role: llm.RoleAssistant,
			ToolCalls: []llm.ToolCall{{
				ID:        seedListTablesCallID,
				Name:      toolListTables,
				Arguments: json.RawMessage(`{}`),
			}},
		},
	}

	tables, err := c.inspector.ListTables(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("list tables: %w", err)
	}
	conv = append(conv, llm.Message{
		Role:       llm.RoleTool,
		ToolCallID: seedListTablesCallID,
		Content:    strings.Join(tables, ", "),
	})
	c.logger.DebugContext(ctx, "workflow tables listed", slog.Int("tables", len(tables)))

	message, err := c.chat.Complete(ctx, llm.Request{
		Messages: conv,
		Tools:    []llm.Tool{getSchemaTool},
	})
	if err != nil {
		return "", 0, fmt.Errorf("request schema: %w", err)
	}
	conv = append(conv, message)
	conv = append(conv, c.resolveSchemaCalls(ctx, message.ToolCalls)...)

	generations := 0
	for {
		if err := ctx.Err(); err != nil {
			return "", generations, err
		}
		generations++
		if generations > c.maxGenerations {
			return "", generations - 1, ErrWorkflowExhausted
		}
		c.logger.DebugContext(ctx, "workflow generating query", slog.Int("generation", generations))

		message, err := c.chat.Complete(ctx, llm.Request{
			System:   queryGenSystem,
			Messages: conv,
			Tools:    []llm.Tool{submitFinalAnswerTool},
		})
		if err != nil {
			return "", generations, fmt.Errorf("generate query: %w", err)
		}
		conv = append(conv, message)
		for _, call := range message.ToolCalls {
			if call.Name == toolSubmitFinalAnswer {
				continue
			}
			observability.IncrementWorkflowProtocolViolation()
			conv = append(conv, llm.Message{
				Role:       llm.RoleTool,
				ToolCallID: call.ID,
				Content:    wrongToolMessage(call.Name),
			})
		}

		// Branch on the last message of the trace: a pending tool call
		// terminates the run, a diagnostic loops straight back to
		// generation, anything else is a candidate query.
		last := conv[len(conv)-1]
		if len(last.ToolCalls) > 0 {
			answer, err := extractFinalAnswer(last)
			return answer, generations, err
		}
		if isDiagnostic(last.Content) {
			continue
		}

		// The checker sees only the candidate query and must call the
		// executor.
		checked, err := c.chat.Complete(ctx, llm.Request{
			System:     queryCheckSystem,
			Messages:   []llm.Message{last},
			Tools:      []llm.Tool{runQueryTool},
			ToolChoice: llm.ToolChoiceRequired,
		})
		if err != nil {
			return "", generations, fmt.Errorf("check query: %w", err)
		}
		conv = append(conv, checked)
		conv = append(conv, c.resolveRunQueryCalls(ctx, checked.ToolCalls)...)
	}
}

func (c *Controller) resolveSchemaCalls(ctx context.Context, calls []llm.ToolCall) []llm.Message {
	results := make([]llm.Message, 0, len(calls))
	for _, call := range calls {
		results = append(results, llm.Message{
			Role:       llm.RoleTool,
			ToolCallID: call.ID,
			Content:    c.schemaCallContent(ctx, call),
		})
	}
	return results
}

func (c *Controller) schemaCallContent(ctx context.Context, call llm.ToolCall) string {
	if call.Name != toolGetSchema {
		observability.IncrementWorkflowProtocolViolation()
		return toolErrorMessage(fmt.Errorf("%s is not a valid tool, try %s", call.Name, toolGetSchema))
	}
	var args schemaArgs
	if err := json.Unmarshal(call.Arguments, &args); err != nil {
		return toolErrorMessage(fmt.Errorf("invalid arguments for %s: %s", toolGetSchema, err))
	}
	blob, err := c.inspector.DescribeTables(ctx, splitTableNames(args.TableNames))
	if err != nil {
		return toolErrorMessage(err)
	}
	return blob
}

func (c *Controller) resolveRunQueryCalls(ctx context.Context, calls []llm.ToolCall) []llm.Message {
	results := make([]llm.Message, 0, len(calls))
	for _, call := range calls {
		results = append(results, llm.Message{
			Role:       llm.RoleTool,
			ToolCallID: call.ID,
			Content:    c.runQueryCallContent(ctx, call),
		})
	}
	return results
}

func (c *Controller) runQueryCallContent(ctx context.Context, call llm.ToolCall) string {
	if call.Name != toolRunQuery {
		observability.IncrementWorkflowProtocolViolation()
		return toolErrorMessage(fmt.Errorf("%s is not a valid tool, try %s", call.Name, toolRunQuery))
	}
	var args runQueryArgs
	if err := json.Unmarshal(call.Arguments, &args); err != nil {
		return toolErrorMessage(fmt.Errorf("invalid arguments for %s: %s", toolRunQuery, err))
	}
	output := c.runner.Run(ctx, args.Query)
	if isDiagnostic(output) {
		c.logger.DebugContext(ctx, "workflow query failed", slog.String("sql", args.Query))
	}
	return output
}

func extractFinalAnswer(message llm.Message) (string, error) {
	var args finalAnswerArgs
	if err := json.Unmarshal(message.ToolCalls[0].Arguments, &args); err != nil {
		return "", fmt.Errorf("%w: %s", ErrMissingFinalAnswer, err)
	}
	if strings.TrimSpace(args.FinalAnswer) == "" {
		return "", ErrMissingFinalAnswer
	}
	return args.FinalAnswer, nil
}

func splitTableNames(raw string) []string {
	parts := strings.Split(raw, ",")
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		names = append(names, part)
	}
	return names
}
