package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-nfc/card-service/internal/domain"
)

// UserRepository defines persistence access for card holders.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error)
	Delete(ctx context.Context, id string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByCardNumber(ctx context.Context, cardNumber string) (*domain.User, error)
	List(ctx context.Context, filter domain.UserFilter) ([]domain.User, error)
	Count(ctx context.Context, filter domain.UserFilter) (int, error)
	Ping(ctx context.Context) error
}

const userColumns = `id, first_name, last_name, email, password_hash, card_number, nfc_id, image_key,
        role, department, state, can_approve_students, created_at, updated_at`

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.PasswordHash,
		&user.CardNumber,
		&user.NFCID,
		&user.ImageKey,
		&user.Role,
		&user.Department,
		&user.State,
		&user.CanApproveStudents,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (first_name, last_name, email, password_hash, card_number, nfc_id, image_key,
            role, department, state, can_approve_students)
        VALUES ($1,$2,LOWER($3),$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, email, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		user.FirstName,
		user.LastName,
		user.Email,
		user.PasswordHash,
		user.CardNumber,
		user.NFCID,
		user.ImageKey,
		user.Role,
		user.Department,
		user.State,
		user.CanApproveStudents,
	).Scan(&user.ID, &user.Email, &user.CreatedAt, &user.UpdatedAt)
}

// Update applies the non-nil patch fields in a single statement and returns
// the stored row.
func (r *userRepository) Update(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error) {
	if patch.Empty() {
		return r.GetByID(ctx, id)
	}

	args := []any{}
	sets := []string{}
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}

	if patch.FirstName != nil {
		set("first_name", *patch.FirstName)
	}
	if patch.LastName != nil {
		set("last_name", *patch.LastName)
	}
	if patch.PasswordHash != nil {
		set("password_hash", *patch.PasswordHash)
	}
	if patch.State != nil {
		set("state", *patch.State)
	}
	if patch.NFCID != nil {
		set("nfc_id", *patch.NFCID)
	}
	if patch.ImageKey != nil {
		set("image_key", *patch.ImageKey)
	}
	if patch.CanApproveStudents != nil {
		set("can_approve_students", *patch.CanApproveStudents)
	}

	args = append(args, id)
	query := fmt.Sprintf(`
        UPDATE users SET %s, updated_at=NOW()
        WHERE id=$%d
        RETURNING %s`, strings.Join(sets, ", "), len(args), userColumns)

	return scanUser(r.pool.QueryRow(ctx, query, args...))
}

// Delete removes the user and returns the deleted row.
func (r *userRepository) Delete(ctx context.Context, id string) (*domain.User, error) {
	query := `DELETE FROM users WHERE id=$1 RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email=LOWER($1)`
	return scanUser(r.pool.QueryRow(ctx, query, strings.TrimSpace(email)))
}

func (r *userRepository) GetByCardNumber(ctx context.Context, cardNumber string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE card_number=$1`
	return scanUser(r.pool.QueryRow(ctx, query, strings.TrimSpace(cardNumber)))
}

func (r *userRepository) List(ctx context.Context, filter domain.UserFilter) ([]domain.User, error) {
	where, args := userWhere(filter)
	query := `SELECT ` + userColumns + ` FROM users` + where + ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *user)
	}
	return result, rows.Err()
}

func (r *userRepository) Count(ctx context.Context, filter domain.UserFilter) (int, error) {
	where, args := userWhere(filter)
	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total)
	return total, err
}

func (r *userRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func userWhere(filter domain.UserFilter) (string, []any) {
	args := []any{}
	clauses := []string{}

	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}
	if filter.Department != nil {
		args = append(args, strings.TrimSpace(*filter.Department))
		clauses = append(clauses, fmt.Sprintf("LOWER(TRIM(department))=LOWER($%d)", len(args)))
	}
	if filter.State != nil {
		args = append(args, *filter.State)
		clauses = append(clauses, fmt.Sprintf("state=$%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf(
			"(first_name || ' ' || last_name ILIKE $%d OR email ILIKE $%d OR card_number ILIKE $%d)", n, n, n))
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
