package postgres

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
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO messages (conversation_id, sender_id, type, content, is_read, is_deleted, created_at)
		VALUES ($1, $2, $3, $4, FALSE, FALSE, NOW())
		RETURNING id, created_at
	`, m.ConversationID, m.SenderID, string(m.Type), m.Content).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("insert message: %w", err)
	}
	m.IsRead = false
	return nil
}

func (r *MessageRepo) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	m := &domain.Message{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, sender_id, type, content, is_read, is_deleted, created_at
		FROM messages
		WHERE id = $1
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
		WHERE m.conversation_id = $1 AND m.is_deleted = FALSE
		  AND (m.sender_id IS NULL OR u.is_deleted = FALSE)
		ORDER BY m.created_at ASC, m.id ASC
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

func (r *MessageRepo) MarkRead(ctx context.Context, messageID int64) (*domain.Message, error) {
	if _, err := r.db.ExecContext(ctx, `
		UPDATE messages SET is_read = TRUE WHERE id = $1 AND is_deleted = FALSE
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

	placeholders := make([]string, len(conversationIDs))
	args := make([]any, len(conversationIDs))
	for i, id := range conversationIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT DISTINCT ON (m.conversation_id)
			m.id, m.conversation_id, m.sender_id, m.type, m.content, m.is_read, m.is_deleted, m.created_at
		FROM messages m
		WHERE m.conversation_id IN (%s) AND m.is_deleted = FALSE
		ORDER BY m.conversation_id, m.created_at DESC, m.id DESC
	`, strings.Join(placeholders, ","))

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
		WHERE m.conversation_id = $1 AND m.is_read = FALSE AND m.is_deleted = FALSE
		  AND (m.sender_id IS NULL OR u.is_deleted = FALSE)
		  AND (m.sender_id IS NULL OR m.sender_id <> $2)
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
