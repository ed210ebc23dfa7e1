package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"flowchat/backend/internal/model"
)

type redisRepository struct {
	rdb *redis.Client
	now func() time.Time
}

// NewRedisRepository stores chats as hashes, message order as a sorted set
// scored by position, and each message as a JSON string.
func NewRedisRepository(rdb *redis.Client) Repository {
	return &redisRepository{rdb: rdb, now: func() time.Time { return time.Now().UTC() }}
}

// Key Generation Helpers
func chatKey(chatID string) string { return fmt.Sprintf("chat:%s", chatID) }
func messagesKey(chatID string) string { return fmt.Sprintf("chat:%s:messages", chatID) }
func messageKey(messageID string) string { return fmt.Sprintf("message:%s", messageID) }
func userChatsKey(userID string) string { return fmt.Sprintf("user:%s:chats", userID) }
func memoryKeysKey(userID string) string { return fmt.Sprintf("user:%s:memory_keys", userID) }
func memoriesKey(userID string) string { return fmt.Sprintf("user:%s:memories", userID) }

const settingsKey = "settings"

// --- Chat Operations ---

func (r *redisRepository) CreateChat(ctx context.Context, chat *model.Chat) error {
	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, chatKey(chat.ID),
		"id", chat.ID,
		"user_id", chat.UserID,
		"title", chat.Title,
		"model", chat.Model,
		"created_at", chat.CreatedAt.Format(time.RFC3339Nano),
		"updated_at", chat.UpdatedAt.Format(time.RFC3339Nano),
	)
	pipe.ZAdd(ctx, userChatsKey(chat.UserID), redis.Z{Score: float64(-chat.UpdatedAt.UnixNano()), Member: chat.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("could not create chat: %w", err)
	}
	return nil
}

func (r *redisRepository) loadChat(ctx context.Context, chatID string) (*model.Chat, error) {
	fields, err := r.rdb.HGetAll(ctx, chatKey(chatID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	chat := &model.Chat{
		ID:     fields["id"],
		UserID: fields["user_id"],
		Title:  fields["title"],
		Model:  fields["model"],
	}
	chat.CreatedAt, _ = time.Parse(time.RFC3339Nano, fields["created_at"])
	chat.UpdatedAt, _ = time.Parse(time.RFC3339Nano, fields["updated_at"])
	return chat, nil
}

func (r *redisRepository) GetChat(ctx context.Context, chatID, userID string) (*model.Chat, error) {
	chat, err := r.loadChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat.UserID != userID {
		return nil, ErrNotFound
	}
	return chat, nil
}

func (r *redisRepository) GetChats(ctx context.Context, userID string) ([]*model.Chat, error) {
	chatIDs, err := r.rdb.ZRange(ctx, userChatsKey(userID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	chats := make([]*model.Chat, 0, len(chatIDs))
	for _, id := range chatIDs {
		chat, err := r.loadChat(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		chats = append(chats, chat)
	}
	return chats, nil
}

func (r *redisRepository) UpdateChatTitle(ctx context.Context, chatID, title string) error {
	userID, err := r.chatOwner(ctx, chatID)
	if err != nil {
		return err
	}
	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, chatKey(chatID), "title", title)
	r.touch(ctx, pipe, chatID, userID)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *redisRepository) DeleteChat(ctx context.Context, chatID, userID string) (bool, error) {
	owner, err := r.chatOwner(ctx, chatID)
	if errors.Is(err, ErrNotFound) || (err == nil && owner != userID) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("could not get chat for deletion: %w", err)
	}

	msgIDs, err := r.rdb.ZRange(ctx, messagesKey(chatID), 0, -1).Result()
	if err != nil {
		return false, fmt.Errorf("could not get message IDs for deletion: %w", err)
	}

	pipe := r.rdb.TxPipeline()
	if len(msgIDs) > 0 {
		keys := make([]string, len(msgIDs))
		for i, id := range msgIDs {
			keys[i] = messageKey(id)
		}
		pipe.Del(ctx, keys...)
	}
	pipe.Del(ctx, chatKey(chatID), messagesKey(chatID))
	pipe.ZRem(ctx, userChatsKey(userID), chatID)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to execute chat deletion pipeline: %w", err)
	}
	return true, nil
}

// --- Message Operations ---

func (r *redisRepository) AppendMessage(ctx context.Context, chatID string, msg *model.Message) error {
	userID, err := r.chatOwner(ctx, chatID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("could not encode message: %w", err)
	}
	position, err := r.rdb.ZCard(ctx, messagesKey(chatID)).Result()
	if err != nil {
		return fmt.Errorf("could not count messages: %w", err)
	}

	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, messageKey(msg.ID), data, 0)
	// NX keeps the original position when an existing message is rewritten.
	pipe.ZAddNX(ctx, messagesKey(chatID), redis.Z{Score: float64(position), Member: msg.ID})
	r.touch(ctx, pipe, chatID, userID)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *redisRepository) ReplaceMessages(ctx context.Context, chatID string, messages []model.Message) error {
	userID, err := r.chatOwner(ctx, chatID)
	if err != nil {
		return err
	}
	oldIDs, err := r.rdb.ZRange(ctx, messagesKey(chatID), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("could not list messages: %w", err)
	}

	pipe := r.rdb.TxPipeline()
	if len(oldIDs) > 0 {
		keys := make([]string, len(oldIDs))
		for i, id := range oldIDs {
			keys[i] = messageKey(id)
		}
		pipe.Del(ctx, keys...)
	}
	pipe.Del(ctx, messagesKey(chatID))
	for i := range messages {
		data, err := json.Marshal(&messages[i])
		if err != nil {
			return fmt.Errorf("could not encode message: %w", err)
		}
		pipe.Set(ctx, messageKey(messages[i].ID), data, 0)
		pipe.ZAdd(ctx, messagesKey(chatID), redis.Z{Score: float64(i), Member: messages[i].ID})
	}
	r.touch(ctx, pipe, chatID, userID)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *redisRepository) GetMessages(ctx context.Context, chatID string) ([]model.Message, error) {
	msgIDs, err := r.rdb.ZRange(ctx, messagesKey(chatID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	messages := make([]model.Message, 0, len(msgIDs))
	if len(msgIDs) == 0 {
		return messages, nil
	}

	keys := make([]string, len(msgIDs))
	for i, id := range msgIDs {
		keys[i] = messageKey(id)
	}
	values, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var msg model.Message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			return nil, fmt.Errorf("could not decode message %s: %w", msgIDs[i], err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// --- Settings ---

func (r *redisRepository) GetSettings(ctx context.Context) (*model.Settings, error) {
	val, err := r.rdb.Get(ctx, settingsKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings from redis: %w", err)
	}
	var settings model.Settings
	if err := json.Unmarshal([]byte(val), &settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	return &settings, nil
}

func (r *redisRepository) SaveSettings(ctx context.Context, settings *model.Settings) error {
	val, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	return r.rdb.Set(ctx, settingsKey, val, 0).Err()
}

// --- Memories ---

func (r *redisRepository) HasMemory(ctx context.Context, userID, sourceKey string) (bool, error) {
	return r.rdb.SIsMember(ctx, memoryKeysKey(userID), sourceKey).Result()
}

func (r *redisRepository) SaveMemories(ctx context.Context, memories []model.Memory) error {
	if len(memories) == 0 {
		return nil
	}
	pipe := r.rdb.TxPipeline()
	for _, m := range memories {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("could not encode memory: %w", err)
		}
		// The field is the dedup identity; HSETNX leaves an existing entry alone.
		pipe.HSetNX(ctx, memoriesKey(m.UserID), m.SourceKey+"|"+m.Content, data)
		pipe.SAdd(ctx, memoryKeysKey(m.UserID), m.SourceKey)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *redisRepository) ListMemories(ctx context.Context, userID string) ([]model.Memory, error) {
	entries, err := r.rdb.HGetAll(ctx, memoriesKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	memories := make([]model.Memory, 0, len(entries))
	for _, raw := range entries {
		var m model.Memory
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("could not decode memory: %w", err)
		}
		memories = append(memories, m)
	}
	sort.Slice(memories, func(i, j int) bool { return memories[i].CreatedAt.After(memories[j].CreatedAt) })
	return memories, nil
}

// --- Helpers ---

func (r *redisRepository) chatOwner(ctx context.Context, chatID string) (string, error) {
	userID, err := r.rdb.HGet(ctx, chatKey(chatID), "user_id").Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return userID, err
}

// touch bumps updated_at and moves the chat to the front of its owner's list.
func (r *redisRepository) touch(ctx context.Context, pipe redis.Pipeliner, chatID, userID string) {
	now := r.now()
	pipe.HSet(ctx, chatKey(chatID), "updated_at", now.Format(time.RFC3339Nano))
	pipe.ZAdd(ctx, userChatsKey(userID), redis.Z{Score: float64(-now.UnixNano()), Member: chatID})
}
