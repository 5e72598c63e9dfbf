package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/factory/pkg/memory"
)

var (
	memoryRememberToolName    = "memory_remember"
	memoryRememberDescription = "Store a durable memory (preference, fact, decision, artifact or note) for a user and optionally a project. Text that looks like a credential or personal identifier is refused."

	memoryRecallToolName    = "memory_recall"
	memoryRecallDescription = "Recall the memories most similar to a query for a user, optionally limited to one project. Returns at most k items with similarity scores."

	memoryForgetToolName    = "memory_forget"
	memoryForgetDescription = "Forget a memory by id. The memory stops appearing in recall immediately; its vector is removed by the next reconcile."

	memoryReconcileToolName    = "memory_reconcile"
	memoryReconcileDescription = "Remove the vectors of forgotten memories from the index in batches and report how many were removed."
)

// MemoryRememberInput represents the input arguments for the memory_remember tool.
type MemoryRememberInput struct {
	UserID    string   `json:"user_id,omitempty" jsonschema:"owner of the memory, defaults to the server owner"`
	ProjectID string   `json:"project_id,omitempty" jsonschema:"project the memory belongs to"`
	Kind      string   `json:"kind" jsonschema:"one of preference, fact, decision, artifact, note"`
	Text      string   `json:"text" jsonschema:"the memory text"`
	Tags      []string `json:"tags,omitempty" jsonschema:"free-form tags"`
	Salience  *float64 `json:"salience,omitempty" jsonschema:"importance between 0 and 1"`
	Source    string   `json:"source,omitempty" jsonschema:"one of user, agent, system; defaults to agent"`
}

// MemoryRememberOutput carries the id of the stored memory.
type MemoryRememberOutput struct {
	ID string `json:"id"`
}

// MemoryRecallInput represents the input arguments for the memory_recall tool.
type MemoryRecallInput struct {
	UserID    string `json:"user_id,omitempty" jsonschema:"owner whose memories are searched, defaults to the server owner"`
	ProjectID string `json:"project_id,omitempty" jsonschema:"restrict recall to this project"`
	Query     string `json:"query" jsonschema:"natural language query"`
	K         int    `json:"k,omitempty" jsonschema:"maximum number of memories to return"`
}

// RecalledMemory is one recall hit as returned to MCP clients.
type RecalledMemory struct {
	ID        string   `json:"id"`
	ProjectID string   `json:"project_id,omitempty"`
	Kind      string   `json:"kind"`
	Text      string   `json:"text"`
	Tags      []string `json:"tags"`
	Salience  float64  `json:"salience"`
	Source    string   `json:"source"`
	Score     float32  `json:"score"`
	CreatedAt string   `json:"created_at"`
}

// MemoryRecallOutput represents the structured output of a memory recall.
type MemoryRecallOutput struct {
	Items []RecalledMemory `json:"items"`
}

// MemoryForgetInput represents the input arguments for the memory_forget tool.
type MemoryForgetInput struct {
	MemoryID string `json:"memory_id" jsonschema:"id of the memory to forget"`
}

// MemoryForgetOutput confirms a forget.
type MemoryForgetOutput struct {
	Forgotten bool `json:"forgotten"`
}

// MemoryReconcileInput represents the input arguments for the memory_reconcile tool.
type MemoryReconcileInput struct {
	BatchSize int `json:"batch_size,omitempty" jsonschema:"vector ids deleted per batch"`
}

func toolError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}

// toolResult serializes output as the text content of a successful result.
func toolResult(output any) *mcp.CallToolResult {
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return toolError(fmt.Sprintf("Failed to serialize results: %v", err))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}
}

func (s *Server) handleRemember(ctx context.Context, _ *mcp.CallToolRequest, input MemoryRememberInput) (*mcp.CallToolResult, MemoryRememberOutput, error) {
	if strings.TrimSpace(input.Text) == "" {
		return toolError("text is required"), MemoryRememberOutput{}, nil
	}
	kind, err := memory.ParseKind(input.Kind)
	if err != nil {
		return toolError(err.Error()), MemoryRememberOutput{}, nil
	}
	source := memory.SourceAgent
	if input.Source != "" {
		if source, err = memory.ParseSource(input.Source); err != nil {
			return toolError(err.Error()), MemoryRememberOutput{}, nil
		}
	}

	id, err := s.config.Memory.Remember(ctx, memory.NewItem{
		Owner:     s.owner(input.UserID),
		ProjectID: input.ProjectID,
		Kind:      kind,
		Text:      input.Text,
		Tags:      input.Tags,
		Salience:  input.Salience,
		Source:    source,
	})
	if err != nil {
		return toolError(fmt.Sprintf("Memory remember failed: %v", err)), MemoryRememberOutput{}, nil
	}

	output := MemoryRememberOutput{ID: id}
	return toolResult(output), output, nil
}

func (s *Server) handleRecall(ctx context.Context, _ *mcp.CallToolRequest, input MemoryRecallInput) (*mcp.CallToolResult, MemoryRecallOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return toolError("query is required"), MemoryRecallOutput{}, nil
	}

	items, err := s.config.Memory.Recall(ctx, memory.Query{
		Owner:     s.owner(input.UserID),
		ProjectID: input.ProjectID,
		Text:      input.Query,
		K:         input.K,
	})
	if err != nil {
		return toolError(fmt.Sprintf("Memory recall failed: %v", err)), MemoryRecallOutput{}, nil
	}
	output := MemoryRecallOutput{Items: make([]RecalledMemory, 0, len(items))}
	for _, it := range items {
		output.Items = append(output.Items, RecalledMemory{
			ID:        it.ID,
			ProjectID: it.ProjectID,
			Kind:      string(it.Kind),
			Text:      it.Text,
			Tags:      it.Tags,
			Salience:  it.Salience,
			Source:    string(it.Source),
			Score:     it.Score,
			CreatedAt: it.CreatedAt.Format(time.RFC3339),
		})
	}
	return toolResult(output), output, nil
}

func (s *Server) handleForget(ctx context.Context, _ *mcp.CallToolRequest, input MemoryForgetInput) (*mcp.CallToolResult, MemoryForgetOutput, error) {
	if input.MemoryID == "" {
		return toolError("memory_id is required"), MemoryForgetOutput{}, nil
	}

	if err := s.config.Memory.Forget(ctx, input.MemoryID); err != nil {
		return toolError(fmt.Sprintf("Memory forget failed: %v", err)), MemoryForgetOutput{}, nil
	}

	output := MemoryForgetOutput{Forgotten: true}
	return toolResult(output), output, nil
}

func (s *Server) handleReconcile(ctx context.Context, _ *mcp.CallToolRequest, input MemoryReconcileInput) (*mcp.CallToolResult, memory.ReconcileResult, error) {
	if input.BatchSize < 0 {
		return toolError("batch_size must not be negative"), memory.ReconcileResult{}, nil
	}

	res, err := s.config.Memory.Reconcile(ctx, input.BatchSize)
	if err != nil {
		s.config.Logger.Warn("memory reconcile stopped early", "error", err)
		msg := fmt.Sprintf("Memory reconcile failed: %v", err)
		if res != nil {
			msg = fmt.Sprintf("%s (scanned %d, removed %d)", msg, res.Scanned, res.Removed)
		}
		return toolError(msg), memory.ReconcileResult{}, nil
	}

	return toolResult(res), *res, nil
}
