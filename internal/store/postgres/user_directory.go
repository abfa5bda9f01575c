package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"messaging_go/internal/domain"
)

// UserDirectory resolves user ids against the local projection of the
// account system.
type UserDirectory struct {
	db *sql.DB
}

func NewUserDirectory(db *sql.DB) *UserDirectory {
	return &UserDirectory{db: db}
}

var _ domain.UserDirectory = (*UserDirectory)(nil)

func (d *UserDirectory) Resolve(ctx context.Context, id int64) (*domain.UserProfile, error) {
	p := &domain.UserProfile{}
	err := d.db.QueryRowContext(ctx, `
		SELECT id, display_name, avatar_url, language, is_operator
		FROM users
		WHERE id = $1 AND is_deleted = FALSE
	`, id).Scan(&p.ID, &p.DisplayName, &p.AvatarURL, &p.Language, &p.IsOperator)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	return p, nil
}

// TelegramChatID returns the linked Telegram chat id for the user, or
// ErrNotFound when the account has no link.
func (d *UserDirectory) TelegramChatID(ctx context.Context, userID int64) (int64, error) {
	var chatID sql.NullInt64
	err := d.db.QueryRowContext(ctx, `
		SELECT telegram_chat_id FROM users WHERE id = $1 AND is_deleted = FALSE
	`, userID).Scan(&chatID)
	if err == sql.ErrNoRows {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("telegram chat id: %w", err)
	}
	if !chatID.Valid {
		return 0, domain.ErrNotFound
	}
	return chatID.Int64, nil
}
