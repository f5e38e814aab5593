package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"teamchat-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines interactions for chat messages.
type MessageRepository interface {
	CreateChatMessage(ctx context.Context, chatID, senderID, content, nonce string) (models.ChatMessage, error)
	ListAllMessages(ctx context.Context) ([]models.ChatMessage, error)
	ListChatMessages(ctx context.Context, chatID string) ([]models.ChatMessage, error)
	GetMessage(ctx context.Context, messageID string) (models.ChatMessage, error)
	EditMessage(ctx context.Context, messageID, senderID, content string) error
	MarkMessageDeleted(ctx context.Context, messageID, senderID string) error
	MarkMessageRead(ctx context.Context, messageID, userID string) error
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, chat_id, sender_id, content, nonce, read_by, edited, deleted, created_at`

// CreateChatMessage stores a message with a server-issued id. The client
// nonce is persisted and echoed so optimistic copies reconcile exactly.
func (r *MessageRepo) CreateChatMessage(ctx context.Context, chatID, senderID, content, nonce string) (models.ChatMessage, error) {
	var msg models.ChatMessage
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (id, chat_id, sender_id, content, nonce) VALUES ($1, $2, $3, $4, $5)
         RETURNING `+messageColumns,
		uuid.NewString(), chatID, senderID, content, nonce).
		StructScan(&msg)
	return msg, err
}

// ListAllMessages returns the flat historical log in arrival order. The
// contract is client-side scoping: clients filter by computed chat id.
func (r *MessageRepo) ListAllMessages(ctx context.Context) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageColumns+` FROM messages ORDER BY created_at ASC`)
	return msgs, err
}

// ListChatMessages returns one chat's messages in arrival order.
func (r *MessageRepo) ListChatMessages(ctx context.Context, chatID string) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageColumns+` FROM messages WHERE chat_id=$1 ORDER BY created_at ASC`, chatID)
	return msgs, err
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID string) (models.ChatMessage, error) {
	var msg models.ChatMessage
	err := r.db.GetContext(ctx, &msg,
		`SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChatMessage{}, ErrMessageNotFound
	}
	return msg, err
}

// EditMessage replaces content and flags the message edited (sender only).
func (r *MessageRepo) EditMessage(ctx context.Context, messageID, senderID, content string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET content=$1, edited=TRUE WHERE id=$2 AND sender_id=$3 AND deleted=FALSE`,
		content, messageID, senderID)
	return affectedOrNotFound(res, err)
}

// MarkMessageDeleted flags a message deleted (sender only). The row is
// retained so conversation ordering survives.
func (r *MessageRepo) MarkMessageDeleted(ctx context.Context, messageID, senderID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET deleted=TRUE WHERE id=$1 AND sender_id=$2`, messageID, senderID)
	return affectedOrNotFound(res, err)
}

// MarkMessageRead adds userID to the message's read set.
func (r *MessageRepo) MarkMessageRead(ctx context.Context, messageID, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET read_by = array_append(read_by, $1) WHERE id=$2 AND NOT ($1 = ANY(read_by))`,
		userID, messageID)
	if err != nil {
		return err
	}
	// Zero rows here can mean "already read", which is fine.
	_, err = res.RowsAffected()
	return err
}

func affectedOrNotFound(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}
