// Package conversation holds the authoritative in-memory state of one open chat
// and the edit/regeneration state machine that mutates it.
package conversation

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"flowchat/backend/internal/model"
)

// EditMode selects what happens to the messages after an edited user turn.
type EditMode string

const (
	// EditOnly rewrites the content and leaves the rest of the chat untouched.
	EditOnly EditMode = "edit_only"
	// EditAndRegenerateImmediate rewrites the content and drops every later message.
	EditAndRegenerateImmediate EditMode = "edit_and_regenerate_immediate"
	// EditAndRegenerateFull truncates exactly like EditAndRegenerateImmediate.
	// It is a second entry point for clients that default to regenerating.
	EditAndRegenerateFull EditMode = "edit_and_regenerate_full"
)

// ParseEditMode converts a client supplied mode, defaulting to EditOnly when empty.
func ParseEditMode(s string) (EditMode, error) {
	if s == "" {
		return EditOnly, nil
	}
	mode := EditMode(s)
	if !mode.valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidEditMode, s)
	}
	return mode, nil
}

func (m EditMode) valid() bool {
	switch m {
	case EditOnly, EditAndRegenerateImmediate, EditAndRegenerateFull:
		return true
	}
	return false
}

// Regenerates reports whether the mode truncates the chat for a fresh reply.
func (m EditMode) Regenerates() bool {
	return m == EditAndRegenerateImmediate || m == EditAndRegenerateFull
}

// State is the per-chat state machine position.
type State int

const (
	Idle State = iota
	Streaming
)

func (s State) String() string {
	if s == Streaming {
		return "streaming"
	}
	return "idle"
}

// OutcomeStatus describes how a streamed reply ended.
type OutcomeStatus int

const (
	OutcomeCompleted OutcomeStatus = iota
	OutcomeCancelled
	OutcomeFailed
)

// Outcome is handed to FinishStream when a reply stops streaming.
type Outcome struct {
	Status OutcomeStatus
	Reason string
	Stats  json.RawMessage
}

// EditResult describes the effect of an Edit call.
type EditResult struct {
	Mode    EditMode
	Message model.Message
	// Removed holds the messages dropped after the edited one, in their original order.
	Removed []model.Message
	// Context is the conversation as it stands after the edit.
	Context []model.Message
}

// Regenerate reports whether the caller should now stream a replacement reply.
func (r *EditResult) Regenerate() bool {
	return r.Mode.Regenerates()
}

// RegenerateResult describes the effect of a Regenerate call.
type RegenerateResult struct {
	Target      model.Message
	UserMessage model.Message
	Removed     []model.Message
	Context     []model.Message
}

// Engine owns the message sequence of one chat. All methods are safe for
// concurrent use; operations are serialized in call order.
type Engine struct {
	mu          sync.Mutex
	chat        model.Chat
	messages    []model.Message
	streamingID string
	unsaved     bool

	now   func() time.Time
	newID func() string
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides how message ids are minted.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// NewEngine builds an engine over a chat and its stored history. A message that
// was left streaming by a previous process is settled as failed so the
// single-streaming-message invariant holds from the start.
func NewEngine(chat model.Chat, history []model.Message, opts ...Option) *Engine {
	e := &Engine{
		chat:     chat,
		messages: model.CloneMessages(history),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	for i := range e.messages {
		if e.messages[i].IsStreaming() {
			meta := e.messages[i].Meta()
			meta.IsStreaming = false
			meta.GenerationFailed = true
			meta.FailureReason = "interrupted"
		}
	}
	return e
}

type appendOptions struct {
	attachments []model.Attachment
	regenerated bool
	modelName   string
}

// AppendOption customizes a single Append call.
type AppendOption func(*appendOptions)

// WithAttachments attaches file references to the new message.
func WithAttachments(attachments ...model.Attachment) AppendOption {
	return func(o *appendOptions) { o.attachments = append(o.attachments, attachments...) }
}

// Regenerated flags the new message as a regenerated reply.
func Regenerated() AppendOption {
	return func(o *appendOptions) { o.regenerated = true }
}

// WithModel records which model produced the message.
func WithModel(name string) AppendOption {
	return func(o *appendOptions) { o.modelName = name }
}

// Append adds a new message at the end of the chat. An assistant message with
// empty content is a placeholder: it becomes the streaming message and moves
// the engine into the Streaming state.
func (e *Engine) Append(role model.Role, content string, opts ...AppendOption) (model.Message, error) {
	if !role.Valid() {
		return model.Message{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	var o appendOptions
	for _, opt := range opts {
		opt(&o)
	}

	placeholder := role == model.RoleAssistant && content == ""
	if !placeholder && strings.TrimSpace(content) == "" && len(o.attachments) == 0 {
		return model.Message{}, ErrEmptyContent
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.streamingID != "" {
		return model.Message{}, ErrBusy
	}

	now := e.now()
	msg := model.Message{
		ID:        e.newID(),
		Role:      role,
		Content:   content,
		Timestamp: now,
	}
	if len(o.attachments) > 0 {
		msg.Attachments = append([]model.Attachment(nil), o.attachments...)
	}
	if o.modelName != "" {
		name := o.modelName
		msg.Model = &name
	}
	if o.regenerated {
		msg.Meta().Regenerated = true
	}
	if placeholder {
		msg.Meta().IsStreaming = true
		e.streamingID = msg.ID
	}

	e.messages = append(e.messages, msg)
	e.chat.UpdatedAt = now
	return msg.Clone(), nil
}

// AppendChunk appends streamed text to the streaming message.
func (e *Engine) AppendChunk(messageID, chunk string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if messageID == "" || messageID != e.streamingID {
		return ErrNotStreaming
	}
	idx := e.indexOf(messageID)
	if idx < 0 {
		return ErrMessageNotFound
	}
	e.messages[idx].Content += chunk
	return nil
}

// AttachArtifact records a generated artifact on the streaming message.
func (e *Engine) AttachArtifact(messageID string, artifact model.Artifact) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if messageID == "" || messageID != e.streamingID {
		return ErrNotStreaming
	}
	idx := e.indexOf(messageID)
	if idx < 0 {
		return ErrMessageNotFound
	}
	e.messages[idx].Meta().GeneratedArtifact = &artifact
	return nil
}

// FinishStream settles the streaming message and returns the engine to Idle.
// Content received so far is always kept, whatever the outcome.
func (e *Engine) FinishStream(messageID string, outcome Outcome) (model.Message, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if messageID == "" || messageID != e.streamingID {
		return model.Message{}, ErrNotStreaming
	}
	idx := e.indexOf(messageID)
	if idx < 0 {
		e.streamingID = ""
		return model.Message{}, ErrMessageNotFound
	}

	msg := &e.messages[idx]
	meta := msg.Meta()
	meta.IsStreaming = false
	switch outcome.Status {
	case OutcomeCancelled:
		meta.Cancelled = true
	case OutcomeFailed:
		meta.GenerationFailed = true
		meta.FailureReason = outcome.Reason
	}
	if outcome.Stats != nil {
		meta.Stats = outcome.Stats
	}
	e.streamingID = ""
	e.chat.UpdatedAt = e.now()
	return msg.Clone(), nil
}

// Edit overwrites the content of a user message, pushing the previous content
// into its edit history. Regenerating modes also drop every later message.
func (e *Engine) Edit(messageID, newContent string, mode EditMode) (*EditResult, error) {
	if !mode.valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEditMode, mode)
	}
	if strings.TrimSpace(newContent) == "" {
		return nil, ErrEmptyContent
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.streamingID != "" {
		return nil, ErrBusy
	}
	idx := e.indexOf(messageID)
	if idx < 0 {
		return nil, ErrMessageNotFound
	}
	if e.messages[idx].Role != model.RoleUser {
		return nil, ErrNotEditable
	}

	now := e.now()
	target := &e.messages[idx]
	meta := target.Meta()
	meta.EditHistory = append(meta.EditHistory, model.EditEntry{Content: target.Content, Timestamp: now})
	target.Content = newContent

	result := &EditResult{Mode: mode}
	if mode.Regenerates() {
		result.Removed = e.truncate(idx + 1)
	}
	result.Message = e.messages[idx].Clone()
	result.Context = model.CloneMessages(e.messages)
	e.chat.UpdatedAt = now
	return result, nil
}

// Regenerate drops an assistant message and everything after it, returning the
// context a replacement reply should be generated from.
func (e *Engine) Regenerate(messageID string) (*RegenerateResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.streamingID != "" {
		return nil, ErrBusy
	}
	idx := e.indexOf(messageID)
	if idx < 0 {
		return nil, ErrMessageNotFound
	}
	if e.messages[idx].Role != model.RoleAssistant {
		return nil, ErrNotAssistantMessage
	}

	userIdx := -1
	for i := idx - 1; i >= 0; i-- {
		if e.messages[i].Role == model.RoleUser {
			userIdx = i
			break
		}
	}
	if userIdx < 0 {
		return nil, ErrNoPrecedingUserMessage
	}

	result := &RegenerateResult{
		Target:      e.messages[idx].Clone(),
		UserMessage: e.messages[userIdx].Clone(),
	}
	result.Removed = e.truncate(idx)
	result.Context = model.CloneMessages(e.messages)
	e.chat.UpdatedAt = e.now()
	return result, nil
}

// Delete removes exactly one message, keeping the order of the rest.
// It reports false when the id is unknown.
func (e *Engine) Delete(messageID string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.streamingID != "" {
		return false, ErrBusy
	}
	idx := e.indexOf(messageID)
	if idx < 0 {
		return false, nil
	}
	e.messages = slices.Delete(e.messages, idx, idx+1)
	e.chat.UpdatedAt = e.now()
	return true, nil
}

// CurrentMessages returns a copy of the message sequence.
func (e *Engine) CurrentMessages() []model.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	return model.CloneMessages(e.messages)
}

// Message returns a copy of a single message.
func (e *Engine) Message(messageID string) (model.Message, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	idx := e.indexOf(messageID)
	if idx < 0 {
		return model.Message{}, false
	}
	return e.messages[idx].Clone(), true
}

// State reports whether a reply is currently streaming.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.streamingID != "" {
		return Streaming
	}
	return Idle
}

// StreamingID returns the id of the streaming message, or "".
func (e *Engine) StreamingID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.streamingID
}

// Chat returns the chat metadata.
func (e *Engine) Chat() model.Chat {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.chat
}

// SetTitle updates the chat title.
func (e *Engine) SetTitle(title string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.chat.Title = title
	e.chat.UpdatedAt = e.now()
}

// Snapshot returns the chat and its messages as one consistent copy.
func (e *Engine) Snapshot() model.FullChat {
	e.mu.Lock()
	defer e.mu.Unlock()
	return model.FullChat{
		Chat:     e.chat,
		Messages: model.CloneMessages(e.messages),
		Unsaved:  e.unsaved,
	}
}

// MarkUnsaved records that a durable write failed. The listed messages carry
// the marker in their metadata until the next successful resync.
func (e *Engine) MarkUnsaved(messageIDs ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.unsaved = true
	for _, id := range messageIDs {
		if idx := e.indexOf(id); idx >= 0 {
			e.messages[idx].Meta().Unsaved = true
		}
	}
}

// MarkSaved clears every unsaved marker.
func (e *Engine) MarkSaved() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.unsaved = false
	for i := range e.messages {
		if e.messages[i].Metadata != nil {
			e.messages[i].Metadata.Unsaved = false
		}
	}
}

// Unsaved reports whether the durable store is known to lag behind.
func (e *Engine) Unsaved() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unsaved
}

// truncate removes messages[from:] and returns copies of them. Caller holds mu.
func (e *Engine) truncate(from int) []model.Message {
	if from >= len(e.messages) {
		return nil
	}
	removed := model.CloneMessages(e.messages[from:])
	clear(e.messages[from:])
	e.messages = e.messages[:from]
	return removed
}

func (e *Engine) indexOf(messageID string) int {
	return slices.IndexFunc(e.messages, func(m model.Message) bool { return m.ID == messageID })
}
