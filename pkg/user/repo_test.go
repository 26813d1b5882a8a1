package user

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "blog/pkg/common"
)

var (
	userID     = "1"
	username   = "pike"
	email      = "pike@example.com"
	password   = "sdfsdfsdf"
	salt       = "12345678"
	hashedPass = HashPass(password, salt)
	created    = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	userColumns = []string{"id", "username", "email", "password", "bio", "avatar", "is_admin", "created_at"}
)

func newMock(t *testing.T) (*UserRepo, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("cant create mock: %s", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewUserRepo(db), mock
}

func TestGetById(t *testing.T) {
	r, mock := newMock(t)
	const query = "SELECT id, username, email, password, bio, avatar, is_admin, created_at FROM users where id"

	t.Run("should return user", func(t *testing.T) {
		expect := &User{Id: userID, Username: username, Email: email, Password: hashedPass, Bio: "gopher", IsAdmin: true, Created: created}
		rows := sqlmock.NewRows(userColumns).
			AddRow(expect.Id, expect.Username, expect.Email, expect.Password, expect.Bio, expect.Avatar, expect.IsAdmin, expect.Created)
		mock.ExpectQuery(query).WithArgs(userID).WillReturnRows(rows)

		gotUser, err := r.GetById(context.TODO(), userID)
		require.NoError(t, err)
		assert.Equal(t, expect, gotUser)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("should return not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("2").WillReturnRows(sqlmock.NewRows(userColumns))

		_, err := r.GetById(context.TODO(), "2")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("malformed id is not found without a query", func(t *testing.T) {
		_, err := r.GetById(context.TODO(), "not-a-number")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("should return DB error", func(t *testing.T) {
		expectedErr := fmt.Errorf("mock_db_error")
		mock.ExpectQuery(query).WithArgs(userID).WillReturnError(expectedErr)

		_, err := r.GetById(context.TODO(), userID)
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepoAdd(t *testing.T) {
	r, mock := newMock(t)

	t.Run("should add new user", func(t *testing.T) {
		u := &User{Username: username, Email: email, Password: hashedPass}
		mock.ExpectQuery("INSERT INTO users").
			WithArgs(username, email, hashedPass, "", "", false).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("1", created))

		id, err := r.Add(context.TODO(), u)
		require.NoError(t, err)
		assert.Equal(t, userID, id)
		assert.Equal(t, userID, u.Id)
		assert.Equal(t, created, u.Created)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("should map unique violation", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO users").
			WillReturnError(&pgconn.PgError{Code: "23505"})

		_, err := r.Add(context.TODO(), &User{Username: username, Email: email, Password: hashedPass})
		assert.ErrorIs(t, err, ErrAlreadyExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("should return query error", func(t *testing.T) {
		expectedErr := fmt.Errorf("bad query")
		mock.ExpectQuery("INSERT INTO users").WillReturnError(expectedErr)

		_, err := r.Add(context.TODO(), &User{Username: username, Email: email, Password: hashedPass})
		assert.ErrorIs(t, err, expectedErr)
		assert.ErrorContains(t, err, "user wasn't added")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetByEmailAndPass(t *testing.T) {
	r, mock := newMock(t)
	const query = "SELECT id, username, email, password, bio, avatar, is_admin, created_at FROM users where email"
	expect := &User{Id: userID, Username: username, Email: email, Password: hashedPass, Created: created}
	row := func() *sqlmock.Rows {
		return sqlmock.NewRows(userColumns).
			AddRow(expect.Id, expect.Username, expect.Email, expect.Password, "", "", false, expect.Created)
	}

	t.Run("should return user", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(email).WillReturnRows(row())

		gotUser, err := r.GetByEmailAndPass(context.TODO(), email, password)
		require.NoError(t, err)
		assert.Equal(t, expect, gotUser)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("should return error: bad password", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(email).WillReturnRows(row())

		_, err := r.GetByEmailAndPass(context.TODO(), email, "badpassword")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("should return error: unknown email", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("nobody@example.com").WillReturnRows(sqlmock.NewRows(userColumns))

		_, err := r.GetByEmailAndPass(context.TODO(), "nobody@example.com", password)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("should return error: DB error", func(t *testing.T) {
		expectedErr := fmt.Errorf("mock_db_error")
		mock.ExpectQuery(query).WithArgs(email).WillReturnError(expectedErr)

		_, err := r.GetByEmailAndPass(context.TODO(), email, password)
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestExists(t *testing.T) {
	r, mock := newMock(t)
	query := regexp.QuoteMeta("SELECT count(*) FROM users where username=$1 OR email=$2")

	t.Run("should return true", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(username, email).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		exists, err := r.Exists(context.TODO(), username, email)
		require.NoError(t, err)
		assert.True(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("should return false", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(username, email).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		exists, err := r.Exists(context.TODO(), username, email)
		require.NoError(t, err)
		assert.False(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetPublicByIds(t *testing.T) {
	r, mock := newMock(t)
	query := regexp.QuoteMeta("SELECT id, username, avatar, bio FROM users where id = ANY")

	t.Run("should return users keyed by id", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "username", "avatar", "bio"}).
			AddRow("1", "pike", "/a/1.png", "go").
			AddRow("2", "thompson", "", "")
		mock.ExpectQuery(query).WithArgs(sqlmock.AnyArg()).WillReturnRows(rows)

		got, err := r.GetPublicByIds(context.TODO(), []string{"1", "2", "3"})
		require.NoError(t, err)
		assert.Equal(t, map[string]*Public{
			"1": {Id: "1", Username: "pike", Avatar: "/a/1.png", Bio: "go"},
			"2": {Id: "2", Username: "thompson"},
		}, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no ids means no query", func(t *testing.T) {
		got, err := r.GetPublicByIds(context.TODO(), nil)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateProfile(t *testing.T) {
	r, mock := newMock(t)
	u := &User{Id: userID, Username: "rob", Bio: "bio", Avatar: "/a.png"}

	t.Run("should update", func(t *testing.T) {
		mock.ExpectExec("UPDATE users SET").
			WithArgs("rob", "bio", "/a.png", userID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, r.UpdateProfile(context.TODO(), u))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("should return not found", func(t *testing.T) {
		mock.ExpectExec("UPDATE users SET").WillReturnResult(sqlmock.NewResult(0, 0))
		assert.ErrorIs(t, r.UpdateProfile(context.TODO(), u), ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("should map unique violation", func(t *testing.T) {
		mock.ExpectExec("UPDATE users SET").WillReturnError(&pgconn.PgError{Code: "23505"})
		assert.ErrorIs(t, r.UpdateProfile(context.TODO(), u), ErrUsernameTaken)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUsernameTaken(t *testing.T) {
	r, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM users where username=$1")).
		WithArgs("rob", userID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	taken, err := r.UsernameTaken(context.TODO(), "rob", userID)
	require.NoError(t, err)
	assert.True(t, taken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAll(t *testing.T) {
	r, mock := newMock(t)
	const query = "SELECT id, username, email, password, bio, avatar, is_admin, created_at FROM users"

	t.Run("should return users", func(t *testing.T) {
		rows := sqlmock.NewRows(userColumns)
		expectedUsers := []*User{
			{Id: "1", Username: "user1", Email: "u1@example.com", Password: hashedPass, Created: created},
			{Id: "2", Username: "user2", Email: "u2@example.com", Password: hashedPass, Created: created},
		}
		for _, u := range expectedUsers {
			rows.AddRow(u.Id, u.Username, u.Email, u.Password, u.Bio, u.Avatar, u.IsAdmin, u.Created)
		}
		mock.ExpectQuery(query).WillReturnRows(rows)

		gotUsers, err := r.GetAll(context.TODO())
		require.NoError(t, err)
		assert.Equal(t, expectedUsers, gotUsers)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("should return scan rows error", func(t *testing.T) {
		mock.ExpectQuery(query).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("2"))
		_, err := r.GetAll(context.TODO())
		assert.ErrorContains(t, err, "scan")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
