package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-nfc/card-service/internal/domain"
)

// AccountHistoryRepository stores audit entries.
type AccountHistoryRepository interface {
	Create(ctx context.Context, entry *domain.AccountHistory) error
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.AccountHistory, error)
}

type accountHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewAccountHistoryRepository builds repository.
func NewAccountHistoryRepository(pool *pgxpool.Pool) AccountHistoryRepository {
	return &accountHistoryRepository{pool: pool}
}

func (r *accountHistoryRepository) Create(ctx context.Context, entry *domain.AccountHistory) error {
	const query = `
        INSERT INTO account_history (user_id, changed_by_id, changed_by_role, change_type, event_type, old_value, new_value)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.UserID,
		entry.ChangedByID,
		entry.ChangedByRole,
		entry.ChangeType,
		entry.EventType,
		entry.OldValue,
		entry.NewValue,
	).Scan(&entry.ID, &entry.CreatedAt)
}

// ListByUser returns the newest entries first.
func (r *accountHistoryRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.AccountHistory, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
        SELECT id, user_id, changed_by_id, changed_by_role, change_type, event_type, old_value, new_value, created_at
        FROM account_history WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.AccountHistory{}
	for rows.Next() {
		var entry domain.AccountHistory
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.ChangedByID,
			&entry.ChangedByRole,
			&entry.ChangeType,
			&entry.EventType,
			&entry.OldValue,
			&entry.NewValue,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
