package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"flowchat/backend/internal/conversation"
	app_errors "flowchat/backend/internal/errors"
	"flowchat/backend/internal/generation"
	"flowchat/backend/internal/llm"
	"flowchat/backend/internal/model"
	"flowchat/backend/internal/queue"
	"flowchat/backend/internal/repository"
)

const (
	defaultUserID   = "default-user"
	titleMaxRunes   = 50
	titleTimeout    = 30 * time.Second
	titleSystemText = "You are an expert at creating short, concise titles for conversations. Respond with only the title, and nothing else."
)

// Config tunes the chat service.
type Config struct {
	UserID string
	// GenerationMaxAttempts bounds attempts for a reply that failed before its
	// first chunk was delivered.
	GenerationMaxAttempts int
	GenerationRetryDelay  time.Duration
}

// MemoryQueue accepts finished exchanges for background memory extraction.
type MemoryQueue interface {
	Enqueue(payload model.MemoryPayload) (string, error)
	Status() queue.Status
}

// CreateMessageRequest is the structure for a new message request from the client.
// An empty ChatID starts a new chat.
type CreateMessageRequest struct {
	ChatID      string              `json:"chat_id"`
	Content     string              `json:"content" validate:"required_without=Attachments"`
	Attachments []model.Attachment  `json:"attachments,omitempty" validate:"dive"`
	Model       string              `json:"model"`
	Options     *llm.RequestOptions `json:"options,omitempty"`
}

// EditMessageRequest rewrites a user message. Mode defaults to edit_only.
type EditMessageRequest struct {
	Content string              `json:"content" validate:"required"`
	Mode    string              `json:"mode" validate:"omitempty,oneof=edit_only edit_and_regenerate_immediate edit_and_regenerate_full"`
	Model   string              `json:"model"`
	Options *llm.RequestOptions `json:"options,omitempty"`
}

// ReplyRequest carries the per-request generation overrides.
type ReplyRequest struct {
	Model   string              `json:"model"`
	Options *llm.RequestOptions `json:"options,omitempty"`
}

// ArtifactRequest asks for an image artifact in a new assistant message.
type ArtifactRequest struct {
	Prompt string `json:"prompt" validate:"required"`
}

type session struct {
	engine    *conversation.Engine
	persister *persister
	// needsTitle is set for chats created by this process until their first
	// reply completes.
	needsTitle bool

	mu     sync.Mutex
	cancel context.CancelFunc
}

// claimCancel installs the cancel handle for a generation that is about to
// start. It fails when another generation holds the session.
func (s *session) claimCancel(cancel context.CancelFunc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return false
	}
	s.cancel = cancel
	return true
}

func (s *session) clearCancel() {
	s.mu.Lock()
	s.cancel = nil
	s.mu.Unlock()
}

func (s *session) cancelGeneration() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return false
	}
	s.cancel()
	return true
}

func (s *session) takeTitleFlag() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := s.needsTitle
	s.needsTitle = false
	return pending
}

// ChatService keeps one conversation engine per open chat. The engine is the
// authority for chat state; the repository is written behind it.
type ChatService struct {
	repo       repository.Repository
	provider   llm.Provider
	controller *generation.Controller
	settings   *SettingsService
	queue      MemoryQueue
	cfg        Config

	mu       sync.Mutex
	sessions map[string]*session
	titles   sync.WaitGroup
}

func NewChatService(repo repository.Repository, provider llm.Provider, settings *SettingsService, memQueue MemoryQueue, cfg Config) *ChatService {
	if cfg.UserID == "" {
		cfg.UserID = defaultUserID
	}
	if cfg.GenerationMaxAttempts < 1 {
		cfg.GenerationMaxAttempts = 1
	}
	return &ChatService{
		repo:       repo,
		provider:   provider,
		controller: generation.NewController(provider),
		settings:   settings,
		queue:      memQueue,
		cfg:        cfg,
		sessions:   make(map[string]*session),
	}
}

// --- Sessions ---

// session returns the open session for a chat, loading it from the store on
// first access.
func (s *ChatService) session(ctx context.Context, chatID string) (*session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[chatID]
	s.mu.Unlock()
	if ok {
		return sess, nil
	}

	chat, err := s.repo.GetChat(ctx, chatID, s.cfg.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("chat %s: %w", chatID, err)
		}
		return nil, fmt.Errorf("%w: could not load chat %s: %w", app_errors.ErrUnavailable, chatID, err)
	}
	history, err := s.repo.GetMessages(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("%w: could not load messages of chat %s: %w", app_errors.ErrUnavailable, chatID, err)
	}

	engine := conversation.NewEngine(*chat, history)
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[chatID]; ok {
		return existing, nil
	}
	sess = &session{engine: engine, persister: newPersister(s.repo, engine, s.cfg.UserID)}
	s.sessions[chatID] = sess
	slog.Debug("Chat session opened", "chat_id", chatID, "messages", len(history))
	return sess, nil
}

// openNewChat creates a chat locally and queues its durable creation.
func (s *ChatService) openNewChat(title, modelName string) *session {
	now := time.Now().UTC()
	chat := model.Chat{
		ID:        uuid.NewString(),
		UserID:    s.cfg.UserID,
		Title:     title,
		Model:     modelName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	engine := conversation.NewEngine(chat, nil)
	sess := &session{
		engine:     engine,
		persister:  newPersister(s.repo, engine, s.cfg.UserID),
		needsTitle: true,
	}
	sess.persister.enqueue(writeOp{kind: writeCreateChat, chat: chat})

	s.mu.Lock()
	s.sessions[chat.ID] = sess
	s.mu.Unlock()
	slog.Info("New chat created", "chat_id", chat.ID)
	return sess
}

// --- Chat Operations ---

// ListChats returns the owner's chats, newest first. Open sessions override
// what the store reports.
func (s *ChatService) ListChats(ctx context.Context) ([]*model.Chat, error) {
	stored, err := s.repo.GetChats(ctx, s.cfg.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: could not list chats: %w", app_errors.ErrUnavailable, err)
	}

	byID := make(map[string]*model.Chat, len(stored))
	for _, c := range stored {
		byID[c.ID] = c
	}
	s.mu.Lock()
	for id, sess := range s.sessions {
		chat := sess.engine.Chat()
		byID[id] = &chat
	}
	s.mu.Unlock()

	chats := make([]*model.Chat, 0, len(byID))
	for _, c := range byID {
		chats = append(chats, c)
	}
	sort.Slice(chats, func(i, j int) bool { return chats[i].UpdatedAt.After(chats[j].UpdatedAt) })
	return chats, nil
}

// GetFullChat returns a chat and its messages as the engine holds them.
func (s *ChatService) GetFullChat(ctx context.Context, chatID string) (*model.FullChat, error) {
	sess, err := s.session(ctx, chatID)
	if err != nil {
		return nil, err
	}
	snap := sess.engine.Snapshot()
	return &snap, nil
}

// UpdateChatTitle handles the logic for manually updating a chat's title.
func (s *ChatService) UpdateChatTitle(ctx context.Context, chatID, newTitle string) error {
	newTitle = strings.TrimSpace(newTitle)
	if newTitle == "" {
		return fmt.Errorf("%w: title cannot be empty", app_errors.ErrValidation)
	}
	sess, err := s.session(ctx, chatID)
	if err != nil {
		return err
	}
	sess.engine.SetTitle(newTitle)
	sess.persister.enqueue(writeOp{kind: writeTitle, title: newTitle})
	slog.Info("Chat title updated", "chat_id", chatID)
	return nil
}

// DeleteChat stops any generation for the chat, drops its pending writes and
// removes it from the store.
func (s *ChatService) DeleteChat(ctx context.Context, chatID string) error {
	s.mu.Lock()
	sess, open := s.sessions[chatID]
	delete(s.sessions, chatID)
	s.mu.Unlock()

	if open {
		sess.cancelGeneration()
		sess.persister.close(true)
	}

	deleted, err := s.repo.DeleteChat(ctx, chatID, s.cfg.UserID)
	if err != nil {
		return fmt.Errorf("%w: could not delete chat %s: %w", app_errors.ErrUnavailable, chatID, err)
	}
	if !deleted && !open {
		return fmt.Errorf("chat %s: %w", chatID, repository.ErrNotFound)
	}
	slog.Info("Chat deleted", "chat_id", chatID)
	return nil
}

// --- Message Operations ---

// HandleNewMessage appends a user turn, creating the chat when ChatID is
// empty, and streams the assistant reply into streamChan. streamChan is
// closed on return.
func (s *ChatService) HandleNewMessage(ctx context.Context, req *CreateMessageRequest, streamChan chan<- model.StreamResponse) {
	defer close(streamChan)

	if strings.TrimSpace(req.Content) == "" && len(req.Attachments) == 0 {
		s.sendError(ctx, streamChan, req.ChatID, "", conversation.ErrEmptyContent)
		return
	}

	var sess *session
	if req.ChatID == "" {
		title := strings.TrimSpace(truncate(req.Content, titleMaxRunes))
		if title == "" {
			title = "New chat"
		}
		sess = s.openNewChat(title, req.Model)
	} else {
		var err error
		if sess, err = s.session(ctx, req.ChatID); err != nil {
			s.sendError(ctx, streamChan, req.ChatID, "", err)
			return
		}
	}
	chatID := sess.engine.Chat().ID

	userMsg, err := sess.engine.Append(model.RoleUser, req.Content, conversation.WithAttachments(req.Attachments...))
	if err != nil {
		s.sendError(ctx, streamChan, chatID, "", err)
		return
	}
	sess.persister.enqueue(writeOp{kind: writeAppend, message: userMsg})

	s.streamReply(ctx, sess, &ReplyRequest{Model: req.Model, Options: req.Options}, false, streamChan)
}

// EditMessage rewrites a user message. When the mode regenerates, the chat is
// truncated after the message and the caller streams the replacement with
// GenerateReply.
func (s *ChatService) EditMessage(ctx context.Context, chatID, messageID string, req *EditMessageRequest) (*conversation.EditResult, error) {
	mode, err := conversation.ParseEditMode(req.Mode)
	if err != nil {
		return nil, err
	}
	sess, err := s.session(ctx, chatID)
	if err != nil {
		return nil, err
	}
	result, err := sess.engine.Edit(messageID, req.Content, mode)
	if err != nil {
		return nil, err
	}

	if mode.Regenerates() {
		sess.persister.enqueue(writeOp{kind: writeReplace, messages: result.Context})
	} else {
		sess.persister.enqueue(writeOp{kind: writeAppend, message: result.Message})
	}
	slog.Info("Message edited", "chat_id", chatID, "message_id", messageID, "mode", mode, "removed", len(result.Removed))
	return result, nil
}

// GenerateReply streams a new assistant reply to the chat as it currently
// stands. streamChan is closed on return.
func (s *ChatService) GenerateReply(ctx context.Context, chatID string, req *ReplyRequest, streamChan chan<- model.StreamResponse) {
	defer close(streamChan)

	sess, err := s.session(ctx, chatID)
	if err != nil {
		s.sendError(ctx, streamChan, chatID, "", err)
		return
	}
	s.streamReply(ctx, sess, req, false, streamChan)
}

// RegenerateMessage drops an assistant message and everything after it, then
// streams a replacement reply. streamChan is closed on return.
func (s *ChatService) RegenerateMessage(ctx context.Context, chatID, messageID string, req *ReplyRequest, streamChan chan<- model.StreamResponse) {
	defer close(streamChan)

	sess, err := s.session(ctx, chatID)
	if err != nil {
		s.sendError(ctx, streamChan, chatID, "", err)
		return
	}
	result, err := sess.engine.Regenerate(messageID)
	if err != nil {
		s.sendError(ctx, streamChan, chatID, messageID, err)
		return
	}
	sess.persister.enqueue(writeOp{kind: writeReplace, messages: result.Context})
	slog.Info("Regenerating reply", "chat_id", chatID, "message_id", messageID, "removed", len(result.Removed))

	if req == nil {
		req = &ReplyRequest{}
	}
	if req.Model == "" && result.Target.Model != nil {
		req.Model = *result.Target.Model
	}
	s.streamReply(ctx, sess, req, true, streamChan)
}

// DeleteMessage removes a single message from a chat.
func (s *ChatService) DeleteMessage(ctx context.Context, chatID, messageID string) error {
	sess, err := s.session(ctx, chatID)
	if err != nil {
		return err
	}
	deleted, err := sess.engine.Delete(messageID)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("message %s: %w", messageID, conversation.ErrMessageNotFound)
	}
	sess.persister.enqueue(writeOp{kind: writeReplace, messages: storedMessages(sess.engine.CurrentMessages())})
	slog.Info("Message deleted", "chat_id", chatID, "message_id", messageID)
	return nil
}

// CancelGeneration stops the chat's in-flight generation. The partial reply
// is kept and flagged as cancelled.
func (s *ChatService) CancelGeneration(chatID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[chatID]
	s.mu.Unlock()
	if !ok || !sess.cancelGeneration() {
		return fmt.Errorf("chat %s: %w", chatID, conversation.ErrNotStreaming)
	}
	slog.Info("Generation cancelled by client", "chat_id", chatID)
	return nil
}

// GenerateArtifact generates an image into a new assistant message and
// returns the settled message.
func (s *ChatService) GenerateArtifact(ctx context.Context, chatID string, req *ArtifactRequest) (*model.Message, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, fmt.Errorf("%w: prompt is required", app_errors.ErrValidation)
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", app_errors.ErrUnavailable, err)
	}
	if settings.ImageModel == "" {
		return nil, fmt.Errorf("%w: no image model configured", app_errors.ErrValidation)
	}
	sess, err := s.session(ctx, chatID)
	if err != nil {
		return nil, err
	}

	// The handle goes in before the placeholder so a cancel never sees a
	// streaming message it cannot stop.
	genCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if !sess.claimCancel(cancel) {
		return nil, fmt.Errorf("chat %s: %w", chatID, conversation.ErrBusy)
	}
	placeholder, err := sess.engine.Append(model.RoleAssistant, "", conversation.WithModel(settings.ImageModel))
	if err != nil {
		sess.clearCancel()
		return nil, err
	}

	outcome := conversation.Outcome{Status: conversation.OutcomeCompleted}
	artifact, genErr := s.controller.GenerateArtifact(genCtx, settings.ImageModel, prompt)
	if genErr == nil {
		genErr = attachArtifact(sess.engine, placeholder.ID, artifact)
	}
	if genErr != nil {
		outcome = outcomeFor(genErr)
	}

	final, err := sess.engine.FinishStream(placeholder.ID, outcome)
	sess.clearCancel()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", app_errors.ErrInternal, err)
	}
	sess.persister.enqueue(writeOp{kind: writeAppend, message: final})
	if genErr != nil {
		return &final, genErr
	}
	slog.Info("Artifact generated", "chat_id", chatID, "message_id", final.ID)
	return &final, nil
}

// --- Memories & queue ---

// ListMemories returns the facts extracted for the owner.
func (s *ChatService) ListMemories(ctx context.Context) ([]model.Memory, error) {
	memories, err := s.repo.ListMemories(ctx, s.cfg.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: could not list memories: %w", app_errors.ErrUnavailable, err)
	}
	return memories, nil
}

// QueueStatus reports the background queue state.
func (s *ChatService) QueueStatus() queue.Status {
	return s.queue.Status()
}

// --- Lifecycle ---

// Sync waits until every write issued so far for the chat has been attempted.
func (s *ChatService) Sync(ctx context.Context, chatID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[chatID]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return sess.persister.flush(ctx)
}

// Close cancels in-flight generations, waits for title generation and
// flushes every session's pending writes.
func (s *ChatService) Close(ctx context.Context) error {
	s.mu.Lock()
	sessions := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.cancelGeneration()
	}

	titlesDone := make(chan struct{})
	go func() {
		s.titles.Wait()
		close(titlesDone)
	}()
	select {
	case <-titlesDone:
	case <-ctx.Done():
		return fmt.Errorf("chat service close: %w", ctx.Err())
	}

	for _, sess := range sessions {
		if err := sess.persister.flush(ctx); err != nil {
			return fmt.Errorf("chat service close: %w", err)
		}
		sess.persister.close(false)
	}
	slog.Info("Chat sessions flushed", "sessions", len(sessions))
	return nil
}

// --- Generation ---

// streamReply appends a streaming assistant placeholder, drives the
// generation and settles the message with its outcome. A failure before the
// first delivered chunk is retried with doubling delay.
func (s *ChatService) streamReply(ctx context.Context, sess *session, req *ReplyRequest, regenerated bool, streamChan chan<- model.StreamResponse) {
	chatID := sess.engine.Chat().ID

	settings, err := s.settings.Get(ctx)
	if err != nil {
		s.sendError(ctx, streamChan, chatID, "", fmt.Errorf("%w: %w", app_errors.ErrUnavailable, err))
		return
	}
	modelName := req.Model
	if modelName == "" {
		modelName = settings.MainModel
	}
	systemPrompt := settings.SystemPrompt
	if req.Options != nil && req.Options.System != nil {
		systemPrompt = *req.Options.System
	}

	history := sess.engine.CurrentMessages()
	appendOpts := []conversation.AppendOption{conversation.WithModel(modelName)}
	if regenerated {
		appendOpts = append(appendOpts, conversation.Regenerated())
	}
	genCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if !sess.claimCancel(cancel) {
		s.sendError(ctx, streamChan, chatID, "", fmt.Errorf("chat %s: %w", chatID, conversation.ErrBusy))
		return
	}
	placeholder, err := sess.engine.Append(model.RoleAssistant, "", appendOpts...)
	if err != nil {
		sess.clearCancel()
		s.sendError(ctx, streamChan, chatID, "", err)
		return
	}

	llmReq := &llm.GenerateRequest{
		Model:    modelName,
		Messages: buildContext(systemPrompt, history),
		Options:  req.Options,
	}

	var (
		genErr error
		stats  *llm.GenerationStats
	)
	for attempt := 1; ; attempt++ {
		stream := s.controller.Generate(genCtx, llmReq)
		for chunk := range stream.Chunks() {
			if err := sess.engine.AppendChunk(placeholder.ID, chunk); err != nil {
				stream.Cancel()
				continue
			}
			send(ctx, streamChan, model.StreamResponse{ChatID: chatID, MessageID: placeholder.ID, Content: chunk})
		}
		genErr = stream.Err()
		stats = stream.Stats()
		if genErr == nil || stream.Delivered() > 0 || !generation.Retryable(genErr) || attempt >= s.cfg.GenerationMaxAttempts {
			break
		}

		delay := s.cfg.GenerationRetryDelay * time.Duration(1<<(attempt-1))
		slog.Warn("Generation failed before first chunk, retrying",
			"chat_id", chatID, "attempt", attempt, "delay", delay, "error", genErr)
		if err := wait(genCtx, delay); err != nil {
			genErr = &generation.Error{Class: generation.ErrCancelled, Err: err}
			break
		}
	}

	outcome := conversation.Outcome{Status: conversation.OutcomeCompleted}
	if genErr != nil {
		outcome = outcomeFor(genErr)
	} else if stats != nil {
		if raw, err := json.Marshal(stats); err == nil {
			outcome.Stats = raw
		}
	}
	final, err := sess.engine.FinishStream(placeholder.ID, outcome)
	sess.clearCancel()
	if err != nil {
		slog.Error("Could not settle streaming message", "chat_id", chatID, "message_id", placeholder.ID, "error", err)
		s.sendError(ctx, streamChan, chatID, placeholder.ID, fmt.Errorf("%w: %w", app_errors.ErrInternal, err))
		return
	}
	sess.persister.enqueue(writeOp{kind: writeAppend, message: final})

	done := model.StreamResponse{ChatID: chatID, MessageID: final.ID, Done: true, Unsaved: sess.engine.Unsaved()}
	if genErr != nil {
		done.Error, done.ErrorKind = describeError(genErr)
	}
	send(ctx, streamChan, done)

	if genErr != nil {
		if !errors.Is(genErr, generation.ErrCancelled) {
			slog.Error("Reply generation failed", "chat_id", chatID, "message_id", final.ID, "error", genErr)
		}
		return
	}
	slog.Info("Reply completed", "chat_id", chatID, "message_id", final.ID, "model", modelName)

	userTurn := lastUserMessage(history)
	if userTurn == nil {
		return
	}
	s.enqueueMemory(chatID, *userTurn, final, modelName)
	if sess.takeTitleFlag() {
		s.titles.Add(1)
		go func() {
			defer s.titles.Done()
			s.generateTitle(sess, settings.SupportModel, userTurn.Content, final.Content)
		}()
	}
}

func (s *ChatService) enqueueMemory(chatID string, user, assistant model.Message, modelName string) {
	if strings.TrimSpace(assistant.Content) == "" {
		return
	}
	payload := model.MemoryPayload{
		ChatID: chatID,
		UserID: s.cfg.UserID,
		Turns: [2]model.Turn{
			{Role: model.RoleUser, Content: user.Content},
			{Role: model.RoleAssistant, Content: assistant.Content},
		},
		Metadata: map[string]string{"message_id": assistant.ID, "model": modelName},
	}
	taskID, err := s.queue.Enqueue(payload)
	if err != nil {
		slog.Warn("Could not enqueue memory task", "chat_id", chatID, "error", err)
		return
	}
	slog.Debug("Memory task enqueued", "chat_id", chatID, "task_id", taskID)
}

// generateTitle names a new chat from its first exchange.
func (s *ChatService) generateTitle(sess *session, supportModel, userQuery, assistantResponse string) {
	chatID := sess.engine.Chat().ID
	ctx, cancel := context.WithTimeout(context.Background(), titleTimeout)
	defer cancel()

	req := &llm.GenerateRequest{
		Model: supportModel,
		Messages: []llm.Message{
			{Role: string(model.RoleSystem), Content: titleSystemText},
			{Role: string(model.RoleUser), Content: fmt.Sprintf("Based on the following conversation, what would be a good title?\n\n---\nUser: %s\n\nAssistant: %s\n---",
				truncate(userQuery, 150),
				truncate(assistantResponse, 200),
			)},
		},
	}
	resp, err := s.provider.Generate(ctx, req)
	if err != nil {
		slog.Warn("Failed to generate chat title", "chat_id", chatID, "error", err)
		return
	}

	title := strings.Trim(strings.TrimSpace(resp.Response), `"'`)
	if title == "" {
		slog.Info("Generated title was empty, keeping the default", "chat_id", chatID)
		return
	}
	sess.engine.SetTitle(title)
	sess.persister.enqueue(writeOp{kind: writeTitle, title: title})
	slog.Info("Chat title generated", "chat_id", chatID, "title", title)
}

// --- Helpers ---

func buildContext(systemPrompt string, history []model.Message) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+1)
	if systemPrompt != "" {
		messages = append(messages, llm.Message{Role: string(model.RoleSystem), Content: systemPrompt})
	}
	for _, m := range history {
		if m.IsStreaming() || strings.TrimSpace(m.Content) == "" {
			continue
		}
		messages = append(messages, llm.Message{Role: string(m.Role), Content: m.Content})
	}
	return messages
}

func lastUserMessage(history []model.Message) *model.Message {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == model.RoleUser {
			return &history[i]
		}
	}
	return nil
}

func storedMessages(messages []model.Message) []model.Message {
	out := messages[:0]
	for _, m := range messages {
		if !m.IsStreaming() {
			out = append(out, m)
		}
	}
	return out
}

// attachArtifact stores a generated artifact and its caption on the streaming
// placeholder.
func attachArtifact(engine *conversation.Engine, messageID string, artifact *model.Artifact) error {
	text := artifact.RevisedPrompt
	if text == "" {
		text = artifact.Prompt
	}
	if err := engine.AttachArtifact(messageID, *artifact); err != nil {
		return fmt.Errorf("%w: could not attach artifact: %w", app_errors.ErrInternal, err)
	}
	if err := engine.AppendChunk(messageID, text); err != nil {
		return fmt.Errorf("%w: could not attach artifact caption: %w", app_errors.ErrInternal, err)
	}
	return nil
}

func outcomeFor(err error) conversation.Outcome {
	if errors.Is(err, generation.ErrCancelled) {
		return conversation.Outcome{Status: conversation.OutcomeCancelled}
	}
	reason := generation.Kind(err)
	if reason == "" {
		reason = "internal"
	}
	return conversation.Outcome{Status: conversation.OutcomeFailed, Reason: reason}
}

// describeError turns an error into the message and kind sent to stream clients.
func describeError(err error) (string, string) {
	if kind := generation.Kind(err); kind != "" {
		return err.Error(), kind
	}
	switch {
	case errors.Is(err, app_errors.ErrValidation):
		return err.Error(), "validation"
	case errors.Is(err, app_errors.ErrNotFound):
		return err.Error(), "not_found"
	case errors.Is(err, app_errors.ErrConflict):
		return err.Error(), "conflict"
	case errors.Is(err, app_errors.ErrUnavailable):
		return "An upstream service is unavailable", "unavailable"
	}
	return "An internal server error occurred", "internal"
}

func (s *ChatService) sendError(ctx context.Context, streamChan chan<- model.StreamResponse, chatID, messageID string, err error) {
	msg, kind := describeError(err)
	if kind == "internal" || kind == "unavailable" {
		slog.Error("Chat request failed", "chat_id", chatID, "error", err)
	}
	send(ctx, streamChan, model.StreamResponse{ChatID: chatID, MessageID: messageID, Done: true, Error: msg, ErrorKind: kind})
}

// send delivers a chunk unless the client has gone away.
func send(ctx context.Context, ch chan<- model.StreamResponse, resp model.StreamResponse) bool {
	select {
	case ch <- resp:
		return true
	case <-ctx.Done():
		return false
	}
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// truncate shortens a string to a specified number of runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
