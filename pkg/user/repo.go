package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgconn"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/lib/pq"

	"blog/pkg/common"
)

const pgUniqueViolation = "23505"

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{
		db: db,
	}
}

// Add inserts the user and fills its Id and Created fields.
func (r *UserRepo) Add(ctx context.Context, u *User) (string, error) {
	row := r.db.QueryRowContext(ctx,
		"INSERT INTO users(username, email, password, bio, avatar, is_admin) VALUES($1, $2, $3, $4, $5, $6) RETURNING id, created_at",
		u.Username, u.Email, u.Password, u.Bio, u.Avatar, u.IsAdmin)
	if err := row.Scan(&u.Id, &u.Created); err != nil {
		if isUniqueViolation(err) {
			return ``, ErrAlreadyExists
		}
		return ``, fmt.Errorf("user/repo: user wasn't added: %w", err)
	}
	return u.Id, nil
}

func (r *UserRepo) Exists(ctx context.Context, username, email string) (bool, error) {
	var n int
	row := r.db.QueryRowContext(ctx, "SELECT count(*) FROM users where username=$1 OR email=$2", username, email)
	if err := row.Scan(&n); err != nil {
		return false, fmt.Errorf("user/repo: could not scan row: %w", err)
	}
	return n > 0, nil
}

func (r *UserRepo) GetByEmailAndPass(ctx context.Context, email string, pass string) (*User, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, username, email, password, bio, avatar, is_admin, created_at FROM users where email=$1", email)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("user/repo: row scan failed: %w", err)
	}
	if !common.CheckPass(pass, u.Password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (r *UserRepo) GetById(ctx context.Context, uid string) (*User, error) {
	if _, err := strconv.ParseInt(uid, 10, 64); err != nil {
		return nil, ErrNotFound
	}
	row := r.db.QueryRowContext(ctx,
		"SELECT id, username, email, password, bio, avatar, is_admin, created_at FROM users where id=$1", uid)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user/repo: could not scan row: %w", err)
	}
	return u, nil
}

// GetPublicByIds loads the public parts of the given users keyed by id.
// Unknown ids are absent from the result.
func (r *UserRepo) GetPublicByIds(ctx context.Context, ids []string) (map[string]*Public, error) {
	res := make(map[string]*Public, len(ids))
	if len(ids) == 0 {
		return res, nil
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT id, username, avatar, bio FROM users where id = ANY($1::bigint[])", pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("user/repo: failed executing query for users by ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p := new(Public)
		if err := rows.Scan(&p.Id, &p.Username, &p.Avatar, &p.Bio); err != nil {
			return nil, fmt.Errorf("user/repo: could not scan row: %w", err)
		}
		res[p.Id] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("user/repo: rows error: %w", err)
	}
	return res, nil
}

func (r *UserRepo) UsernameTaken(ctx context.Context, username, exceptId string) (bool, error) {
	var n int
	row := r.db.QueryRowContext(ctx, "SELECT count(*) FROM users where username=$1 AND id::text<>$2", username, exceptId)
	if err := row.Scan(&n); err != nil {
		return false, fmt.Errorf("user/repo: could not scan row: %w", err)
	}
	return n > 0, nil
}

func (r *UserRepo) UpdateProfile(ctx context.Context, u *User) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE users SET username=$1, bio=$2, avatar=$3 WHERE id=$4", u.Username, u.Bio, u.Avatar, u.Id)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("user/repo: failed updating profile: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("user/repo: failed updating profile: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Returns all users. Used only for seeding the DB.
func (r *UserRepo) GetAll(ctx context.Context) ([]*User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, username, email, password, bio, avatar, is_admin, created_at FROM users")
	if err != nil {
		return nil, fmt.Errorf("user/repo: failed executing query for getting all users: %w", err)
	}
	defer rows.Close()

	users := []*User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("user/repo: could not scan row: %w", err)
		}
		users = append(users, u)
	}

	return users, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row scanner) (*User, error) {
	u := new(User)
	err := row.Scan(&u.Id, &u.Username, &u.Email, &u.Password, &u.Bio, &u.Avatar, &u.IsAdmin, &u.Created)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
