// Package memory turns finished exchanges into durable user facts. Its
// Extractor is the side effect committed by the background queue.
package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"flowchat/backend/internal/llm"
	"flowchat/backend/internal/model"
)

// Store is the part of the repository the extractor writes to.
type Store interface {
	HasMemory(ctx context.Context, userID, sourceKey string) (bool, error)
	SaveMemories(ctx context.Context, memories []model.Memory) error
}

// ModelFunc resolves the model used for extraction at commit time, so a
// settings change applies to tasks that are already queued.
type ModelFunc func(ctx context.Context) (string, error)

const noFacts = "NONE"

const extractionPrompt = `You extract durable facts about the user from a conversation turn.
List each fact on its own line, written in the third person.
Only include facts that would still be useful in a later conversation (name, location, preferences, ongoing projects).
If there is nothing worth remembering, answer with the single word NONE.`

type Extractor struct {
	store    Store
	provider llm.Provider
	model    ModelFunc
	now      func() time.Time
}

func NewExtractor(store Store, provider llm.Provider, model ModelFunc) *Extractor {
	return &Extractor{
		store:    store,
		provider: provider,
		model:    model,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Commit extracts and stores facts from one exchange. A payload that was
// already committed is acknowledged without calling the model again.
func (e *Extractor) Commit(ctx context.Context, payload model.MemoryPayload) error {
	key := SourceKey(payload)

	seen, err := e.store.HasMemory(ctx, payload.UserID, key)
	if err != nil {
		return fmt.Errorf("could not check memory key: %w", err)
	}
	if seen {
		slog.Debug("Memory already extracted, skipping", "chat_id", payload.ChatID, "source_key", key)
		return nil
	}

	modelName, err := e.model(ctx)
	if err != nil {
		return fmt.Errorf("could not resolve extraction model: %w", err)
	}

	resp, err := e.provider.Generate(ctx, &llm.GenerateRequest{
		Model: modelName,
		Messages: []llm.Message{
			{Role: string(model.RoleSystem), Content: extractionPrompt},
			{Role: string(model.RoleUser), Content: formatTurns(payload)},
		},
	})
	if err != nil {
		return fmt.Errorf("memory extraction failed: %w", err)
	}

	facts := ParseFacts(resp.Response)
	if len(facts) == 0 {
		slog.Debug("No memories in exchange", "chat_id", payload.ChatID)
		return nil
	}

	now := e.now()
	memories := make([]model.Memory, len(facts))
	for i, fact := range facts {
		memories[i] = model.Memory{
			ID:        uuid.NewString(),
			UserID:    payload.UserID,
			ChatID:    payload.ChatID,
			SourceKey: key,
			Content:   fact,
			CreatedAt: now,
		}
	}
	if err := e.store.SaveMemories(ctx, memories); err != nil {
		return fmt.Errorf("could not save memories: %w", err)
	}
	slog.Info("Stored memories", "chat_id", payload.ChatID, "count", len(memories))
	return nil
}

// SourceKey identifies an exchange independently of how often it is delivered.
func SourceKey(payload model.MemoryPayload) string {
	h := sha256.New()
	h.Write([]byte(payload.ChatID))
	for _, turn := range payload.Turns {
		h.Write([]byte{0})
		h.Write([]byte(turn.Role))
		h.Write([]byte{0})
		h.Write([]byte(turn.Content))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ParseFacts splits a model answer into facts, dropping list markers,
// blank lines and the NONE sentinel.
func ParseFacts(answer string) []string {
	var facts []string
	seen := make(map[string]struct{})
	for _, line := range strings.Split(answer, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• ")
		line = strings.TrimSpace(line)
		if line == "" || strings.EqualFold(strings.Trim(line, "."), noFacts) {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		facts = append(facts, line)
	}
	return facts
}

func formatTurns(payload model.MemoryPayload) string {
	var b strings.Builder
	for _, turn := range payload.Turns {
		fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
	}
	return b.String()
}
