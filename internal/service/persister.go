package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"flowchat/backend/internal/conversation"
	"flowchat/backend/internal/metrics"
	"flowchat/backend/internal/model"
	"flowchat/backend/internal/repository"
)

// persistTimeout bounds a single durable write. Writes run detached from the
// request that caused them.
const persistTimeout = 10 * time.Second

type writeKind int

const (
	writeCreateChat writeKind = iota
	writeAppend
	writeReplace
	writeTitle
	writeFlush
)

type writeOp struct {
	kind     writeKind
	chat     model.Chat
	message  model.Message
	messages []model.Message
	title    string
	done     chan struct{}
}

// persister applies one chat's durable writes in the order they were issued.
// A failed write marks the engine unsaved; the next write then resyncs the
// whole chat instead of applying its own change.
type persister struct {
	repo   repository.Repository
	engine *conversation.Engine
	userID string

	mu      sync.Mutex
	ops     []writeOp
	discard bool
	wake    chan struct{}
	quit    chan struct{}
	stopped chan struct{}

	// dirty is owned by the run goroutine.
	dirty bool
}

func newPersister(repo repository.Repository, engine *conversation.Engine, userID string) *persister {
	p := &persister{
		repo:    repo,
		engine:  engine,
		userID:  userID,
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *persister) enqueue(op writeOp) {
	p.mu.Lock()
	p.ops = append(p.ops, op)
	p.mu.Unlock()
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// flush waits until every write issued before the call has been attempted.
func (p *persister) flush(ctx context.Context) error {
	done := make(chan struct{})
	p.enqueue(writeOp{kind: writeFlush, done: done})
	select {
	case <-done:
		return nil
	case <-p.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close stops the writer after it has drained, or right away when discard is
// set, dropping pending writes.
func (p *persister) close(discard bool) {
	p.mu.Lock()
	p.discard = discard
	p.mu.Unlock()
	select {
	case <-p.quit:
	default:
		close(p.quit)
	}
	<-p.stopped
}

func (p *persister) run() {
	defer close(p.stopped)
	for {
		select {
		case <-p.wake:
			p.drain()
		case <-p.quit:
			p.drain()
			return
		}
	}
}

func (p *persister) drain() {
	for {
		p.mu.Lock()
		if len(p.ops) == 0 {
			p.mu.Unlock()
			return
		}
		op := p.ops[0]
		p.ops = p.ops[1:]
		discard := p.discard
		p.mu.Unlock()

		if op.kind == writeFlush {
			close(op.done)
			continue
		}
		if discard {
			continue
		}
		p.apply(op)
	}
}

func (p *persister) apply(op writeOp) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	chatID := p.engine.Chat().ID
	if p.dirty {
		if err := p.resync(ctx); err != nil {
			metrics.StoreWriteFailures.Inc()
			slog.Warn("Chat resync failed, chat stays unsaved", "chat_id", chatID, "error", err)
		}
		return
	}

	var (
		err     error
		touched []string
	)
	switch op.kind {
	case writeCreateChat:
		err = p.repo.CreateChat(ctx, &op.chat)
	case writeAppend:
		touched = []string{op.message.ID}
		msg := persistable(op.message)
		err = p.repo.AppendMessage(ctx, chatID, &msg)
	case writeReplace:
		for _, m := range op.messages {
			touched = append(touched, m.ID)
		}
		err = p.repo.ReplaceMessages(ctx, chatID, persistableAll(op.messages))
	case writeTitle:
		err = p.repo.UpdateChatTitle(ctx, chatID, op.title)
	}
	if err == nil {
		return
	}

	metrics.StoreWriteFailures.Inc()
	p.dirty = true
	p.engine.MarkUnsaved(touched...)
	slog.Warn("Durable write failed, chat marked unsaved", "chat_id", chatID, "kind", op.kind, "error", err)
}

// resync writes the chat as the engine currently holds it.
func (p *persister) resync(ctx context.Context) error {
	snap := p.engine.Snapshot()

	if _, err := p.repo.GetChat(ctx, snap.ID, p.userID); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if err := p.repo.CreateChat(ctx, &snap.Chat); err != nil {
			return err
		}
	} else if err := p.repo.UpdateChatTitle(ctx, snap.ID, snap.Title); err != nil {
		return err
	}

	messages := make([]model.Message, 0, len(snap.Messages))
	for _, m := range snap.Messages {
		if m.IsStreaming() {
			continue
		}
		messages = append(messages, m)
	}
	if err := p.repo.ReplaceMessages(ctx, snap.ID, persistableAll(messages)); err != nil {
		return err
	}

	p.dirty = false
	p.engine.MarkSaved()
	slog.Info("Chat resynced to store", "chat_id", snap.ID, "messages", len(messages))
	return nil
}

// persistable drops state that only makes sense in memory.
func persistable(m model.Message) model.Message {
	m = m.Clone()
	if m.Metadata != nil {
		m.Metadata.Unsaved = false
		m.Metadata.IsStreaming = false
		if isEmptyMetadata(m.Metadata) {
			m.Metadata = nil
		}
	}
	return m
}

func isEmptyMetadata(meta *model.MessageMetadata) bool {
	return len(meta.EditHistory) == 0 &&
		!meta.Regenerated &&
		meta.GeneratedArtifact == nil &&
		!meta.GenerationFailed &&
		meta.FailureReason == "" &&
		!meta.Cancelled &&
		len(meta.Stats) == 0
}

func persistableAll(messages []model.Message) []model.Message {
	out := make([]model.Message, len(messages))
	for i, m := range messages {
		out[i] = persistable(m)
	}
	return out
}
