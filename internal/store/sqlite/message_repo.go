package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"messaging_go/internal/domain"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	if !m.Type.Valid() {
		return domain.ErrInvalidInput
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (conversation_id, sender_id, type, content, is_read, is_deleted, created_at)
		VALUES (?, ?, ?, ?, 0, 0, CURRENT_TIMESTAMP)
	`, m.ConversationID, m.SenderID, string(m.Type), m.Content)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	m.ID = id
	m.IsRead = false

	// Re-read to pick up the database-assigned timestamp; it defines the
	// delivery order within the conversation.
	stored, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	m.CreatedAt = stored.CreatedAt
	return nil
}

func (r *MessageRepo) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	m := &domain.Message{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, sender_id, type, content, is_read, is_deleted, created_at
		FROM messages
		WHERE id = ?
	`, id).Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Type, &m.Content, &m.IsRead, &m.IsDeleted, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	return m, nil
}

func (r *MessageRepo) ListForConversation(ctx context.Context, conversationID int64) ([]*domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.id, m.conversation_id, m.sender_id, m.type, m.content, m.is_read, m.is_deleted, m.created_at
		FROM messages m
		LEFT JOIN users u ON u.id = m.sender_id
		WHERE m.conversation_id = ? AND m.is_deleted = 0
		  AND (m.sender_id IS NULL OR u.is_deleted = 0)
		ORDER BY m.created_at ASC, m.id ASC
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

func (r *MessageRepo) MarkRead(ctx context.Context, messageID int64) (*domain.Message, error) {
	// Idempotent by construction: is_read only ever moves to true.
	if _, err := r.db.ExecContext(ctx, `
		UPDATE messages SET is_read = 1 WHERE id = ? AND is_deleted = 0
	`, messageID); err != nil {
		return nil, fmt.Errorf("mark read: %w", err)
	}
	return r.GetByID(ctx, messageID)
}

func (r *MessageRepo) LatestPerConversation(ctx context.Context, conversationIDs []int64) (map[int64]*domain.Message, error) {
	res := make(map[int64]*domain.Message, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return res, nil
	}

	placeholders := "?" + strings.Repeat(",?", len(conversationIDs)-1)
	args := make([]any, len(conversationIDs))
	for i, id := range conversationIDs {
		args[i] = id
	}

	// For each conversation the winner has the maximum (created_at, id).
	query := fmt.Sprintf(`
		SELECT m.id, m.conversation_id, m.sender_id, m.type, m.content, m.is_read, m.is_deleted, m.created_at
		FROM messages m
		WHERE m.conversation_id IN (%s) AND m.is_deleted = 0
		  AND m.id = (
			SELECT m2.id FROM messages m2
			WHERE m2.conversation_id = m.conversation_id AND m2.is_deleted = 0
			ORDER BY m2.created_at DESC, m2.id DESC
			LIMIT 1
		  )
	`, placeholders)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("latest per conversation: %w", err)
	}
	defer rows.Close()

	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}
	for _, m := range msgs {
		res[m.ConversationID] = m
	}
	return res, nil
}

func (r *MessageRepo) UnreadCount(ctx context.Context, conversationID, viewerID int64) (int, error) {
	// Counts exactly the messages ListForConversation would return as
	// unread: soft-deleted senders are invisible there, so their
	// messages must not inflate the count either.
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM messages m
		LEFT JOIN users u ON u.id = m.sender_id
		WHERE m.conversation_id = ? AND m.is_read = 0 AND m.is_deleted = 0
		  AND (m.sender_id IS NULL OR u.is_deleted = 0)
		  AND (m.sender_id IS NULL OR m.sender_id <> ?)
	`, conversationID, viewerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

func scanMessages(rows *sql.Rows) ([]*domain.Message, error) {
	var res []*domain.Message
	for rows.Next() {
		m := &domain.Message{}
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Type, &m.Content, &m.IsRead, &m.IsDeleted, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		res = append(res, m)
	}
	return res, rows.Err()
}
