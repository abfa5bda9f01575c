package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"messaging_go/internal/domain"
)

type ConversationRepo struct {
	db *sql.DB
}

func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

var _ domain.ConversationRepository = (*ConversationRepo)(nil)

// pairKey builds the order-independent two-party uniqueness key, or nil
// for group conversations.
func pairKey(participants []domain.Participant) *string {
	if len(participants) != 2 {
		return nil
	}
	a, b := participants[0].UserID, participants[1].UserID
	if a > b {
		a, b = b, a
	}
	key := fmt.Sprintf("%d:%d", a, b)
	return &key
}

func (r *ConversationRepo) Create(ctx context.Context, c *domain.Conversation, participants []domain.Participant) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO conversations (kind, pair_key, closed, is_deleted, created_at, updated_at)
		VALUES (?, ?, 0, 0, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`, string(c.Kind), pairKey(participants))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert conversation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	c.ID = id

	for _, p := range participants {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO conversation_participants (conversation_id, user_id, is_operator, joined_at)
			VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		`, id, p.UserID, p.IsOperator); err != nil {
			if isForeignKeyViolation(err) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("insert participant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *ConversationRepo) GetByID(ctx context.Context, id int64) (*domain.Conversation, error) {
	c := &domain.Conversation{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, kind, closed, is_deleted, created_at, updated_at
		FROM conversations
		WHERE id = ?
	`, id).Scan(&c.ID, &c.Kind, &c.Closed, &c.IsDeleted, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return c, nil
}

func (r *ConversationRepo) FindTwoParty(ctx context.Context, userA, userB int64) (*domain.Conversation, error) {
	// Match by counting distinct participants restricted to the candidate
	// set and requiring the conversation to hold exactly two rows. The
	// lowest id wins deterministically should duplicates ever exist.
	var id int64
	err := r.db.QueryRowContext(ctx, `
		SELECT c.id
		FROM conversations c
		JOIN conversation_participants cp ON cp.conversation_id = c.id
		WHERE c.is_deleted = 0 AND cp.user_id IN (?, ?)
		GROUP BY c.id
		HAVING COUNT(DISTINCT cp.user_id) = 2
		   AND (SELECT COUNT(*) FROM conversation_participants t WHERE t.conversation_id = c.id) = 2
		ORDER BY c.id ASC
		LIMIT 1
	`, userA, userB).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find two-party conversation: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *ConversationRepo) ListForUser(ctx context.Context, userID int64) ([]*domain.Conversation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.kind, c.closed, c.is_deleted, c.created_at, c.updated_at
		FROM conversations c
		JOIN conversation_participants cp ON cp.conversation_id = c.id
		WHERE cp.user_id = ? AND c.is_deleted = 0
		ORDER BY c.updated_at DESC, c.id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var res []*domain.Conversation
	for rows.Next() {
		c := &domain.Conversation{}
		if err := rows.Scan(&c.ID, &c.Kind, &c.Closed, &c.IsDeleted, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r *ConversationRepo) UpdateLastSeen(ctx context.Context, conversationID, userID int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE conversation_participants
		SET last_seen_at = CURRENT_TIMESTAMP
		WHERE conversation_id = ? AND user_id = ?
	`, conversationID, userID)
	if err != nil {
		return fmt.Errorf("update last seen: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// modernc.org/sqlite surfaces constraint failures as plain errors; the
// message text is the only stable discriminator.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
