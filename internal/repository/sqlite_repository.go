package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"flowchat/backend/internal/model"
)

type sqliteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(db *sql.DB) Repository {
	return &sqliteRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *sqliteRepository) CreateChat(ctx context.Context, chat *model.Chat) error {
	query := "INSERT INTO chats (id, user_id, title, model, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)"
	_, err := r.db.ExecContext(ctx, query, chat.ID, chat.UserID, chat.Title, chat.Model, chat.CreatedAt, chat.UpdatedAt)
	if err != nil {
		return fmt.Errorf("could not insert chat: %w", err)
	}
	return nil
}

func (r *sqliteRepository) GetChat(ctx context.Context, chatID, userID string) (*model.Chat, error) {
	query := "SELECT id, user_id, title, model, created_at, updated_at FROM chats WHERE id = ? AND user_id = ?"
	row := r.db.QueryRowContext(ctx, query, chatID, userID)
	var chat model.Chat
	err := row.Scan(&chat.ID, &chat.UserID, &chat.Title, &chat.Model, &chat.CreatedAt, &chat.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &chat, nil
}

func (r *sqliteRepository) GetChats(ctx context.Context, userID string) ([]*model.Chat, error) {
	query := "SELECT id, user_id, title, model, created_at, updated_at FROM chats WHERE user_id = ? ORDER BY updated_at DESC"
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chats := []*model.Chat{}
	for rows.Next() {
		var chat model.Chat
		if err := rows.Scan(&chat.ID, &chat.UserID, &chat.Title, &chat.Model, &chat.CreatedAt, &chat.UpdatedAt); err != nil {
			return nil, err
		}
		chats = append(chats, &chat)
	}
	return chats, rows.Err()
}

func (r *sqliteRepository) UpdateChatTitle(ctx context.Context, chatID, title string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE chats SET title = ?, updated_at = ? WHERE id = ?", title, r.now(), chatID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *sqliteRepository) DeleteChat(ctx context.Context, chatID, userID string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM chats WHERE id = ? AND user_id = ?", chatID, userID)
	if err != nil {
		return false, fmt.Errorf("could not delete chat: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE chat_id = ?", chatID); err != nil {
		return false, fmt.Errorf("could not delete messages: %w", err)
	}
	return true, tx.Commit()
}

const upsertMessageQuery = `
	INSERT INTO messages (id, chat_id, position, role, content, model, timestamp, attachments, metadata)
	VALUES (?, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM messages WHERE chat_id = ?), ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		content = excluded.content,
		model = excluded.model,
		attachments = excluded.attachments,
		metadata = excluded.metadata
`

func (r *sqliteRepository) AppendMessage(ctx context.Context, chatID string, msg *model.Message) error {
	attachments, metadata, err := encodeMessageJSON(msg)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := touchChat(ctx, tx, chatID, r.now()); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, upsertMessageQuery,
		msg.ID, chatID, chatID, msg.Role, msg.Content, msg.Model, msg.Timestamp, attachments, metadata)
	if err != nil {
		return fmt.Errorf("could not insert message: %w", err)
	}
	return tx.Commit()
}

func (r *sqliteRepository) ReplaceMessages(ctx context.Context, chatID string, messages []model.Message) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := touchChat(ctx, tx, chatID, r.now()); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE chat_id = ?", chatID); err != nil {
		return fmt.Errorf("could not clear messages: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (id, chat_id, position, role, content, model, timestamp, attachments, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("could not prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range messages {
		msg := &messages[i]
		attachments, metadata, err := encodeMessageJSON(msg)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, msg.ID, chatID, i, msg.Role, msg.Content, msg.Model, msg.Timestamp, attachments, metadata); err != nil {
			return fmt.Errorf("could not insert message %s: %w", msg.ID, err)
		}
	}
	return tx.Commit()
}

func (r *sqliteRepository) GetMessages(ctx context.Context, chatID string) ([]model.Message, error) {
	query := `
		SELECT id, role, content, model, timestamp, attachments, metadata
		FROM messages
		WHERE chat_id = ?
		ORDER BY position ASC
	`
	rows, err := r.db.QueryContext(ctx, query, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []model.Message{}
	for rows.Next() {
		var (
			msg         model.Message
			modelName   sql.NullString
			attachments sql.NullString
			metadata    sql.NullString
		)
		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &modelName, &msg.Timestamp, &attachments, &metadata); err != nil {
			return nil, err
		}
		if modelName.Valid {
			msg.Model = &modelName.String
		}
		if attachments.Valid {
			if err := json.Unmarshal([]byte(attachments.String), &msg.Attachments); err != nil {
				return nil, fmt.Errorf("could not decode attachments of message %s: %w", msg.ID, err)
			}
		}
		if metadata.Valid {
			msg.Metadata = &model.MessageMetadata{}
			if err := json.Unmarshal([]byte(metadata.String), msg.Metadata); err != nil {
				return nil, fmt.Errorf("could not decode metadata of message %s: %w", msg.ID, err)
			}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

const (
	settingSystemPrompt = "system_prompt"
	settingMainModel    = "main_model"
	settingSupportModel = "support_model"
	settingImageModel   = "image_model"
)

func (r *sqliteRepository) GetSettings(ctx context.Context) (*model.Settings, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT key, value FROM settings")
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting row: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, ErrNotFound
	}
	return &model.Settings{
		SystemPrompt: values[settingSystemPrompt],
		MainModel:    values[settingMainModel],
		SupportModel: values[settingSupportModel],
		ImageModel:   values[settingImageModel],
	}, nil
}

func (r *sqliteRepository) SaveSettings(ctx context.Context, settings *model.Settings) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value")
	if err != nil {
		return fmt.Errorf("could not prepare settings upsert: %w", err)
	}
	defer stmt.Close()

	for _, kv := range [][2]string{
		{settingSystemPrompt, settings.SystemPrompt},
		{settingMainModel, settings.MainModel},
		{settingSupportModel, settings.SupportModel},
		{settingImageModel, settings.ImageModel},
	} {
		if _, err := stmt.ExecContext(ctx, kv[0], kv[1]); err != nil {
			return fmt.Errorf("could not save setting %s: %w", kv[0], err)
		}
	}
	return tx.Commit()
}

func (r *sqliteRepository) HasMemory(ctx context.Context, userID, sourceKey string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM memories WHERE user_id = ? AND source_key = ?)", userID, sourceKey).Scan(&exists)
	return exists, err
}

func (r *sqliteRepository) SaveMemories(ctx context.Context, memories []model.Memory) error {
	if len(memories) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO memories (id, user_id, chat_id, source_key, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("could not prepare memory insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range memories {
		if _, err := stmt.ExecContext(ctx, m.ID, m.UserID, m.ChatID, m.SourceKey, m.Content, m.CreatedAt); err != nil {
			return fmt.Errorf("could not insert memory: %w", err)
		}
	}
	return tx.Commit()
}

func (r *sqliteRepository) ListMemories(ctx context.Context, userID string) ([]model.Memory, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, chat_id, source_key, content, created_at
		FROM memories
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	memories := []model.Memory{}
	for rows.Next() {
		var m model.Memory
		if err := rows.Scan(&m.ID, &m.UserID, &m.ChatID, &m.SourceKey, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

// touchChat bumps updated_at and doubles as the existence check for writes.
func touchChat(ctx context.Context, tx *sql.Tx, chatID string, now time.Time) error {
	res, err := tx.ExecContext(ctx, "UPDATE chats SET updated_at = ? WHERE id = ?", now, chatID)
	if err != nil {
		return fmt.Errorf("could not update chat timestamp: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func encodeMessageJSON(msg *model.Message) (attachments, metadata sql.NullString, err error) {
	if len(msg.Attachments) > 0 {
		b, err := json.Marshal(msg.Attachments)
		if err != nil {
			return attachments, metadata, fmt.Errorf("could not encode attachments: %w", err)
		}
		attachments = sql.NullString{String: string(b), Valid: true}
	}
	if msg.Metadata != nil {
		b, err := json.Marshal(msg.Metadata)
		if err != nil {
			return attachments, metadata, fmt.Errorf("could not encode metadata: %w", err)
		}
		metadata = sql.NullString{String: string(b), Valid: true}
	}
	return attachments, metadata, nil
}
