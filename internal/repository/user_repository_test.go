package repository

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	apperrors "webcrud/internal/errors"
	"webcrud/internal/model"
)

var userColumns = []string{"id", "name", "email", "phone", "created_at", "updated_at"}

func newRepoWithMock(t *testing.T) (UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	gdb, err := gorm.Open(gormmysql.New(gormmysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{SkipDefaultTransaction: true, DisableAutomaticPing: true})
	require.NoError(t, err)

	return NewUserRepository(gdb, time.Second), mock
}

func strPtr(s string) *string { return &s }

func TestUserRepository_Create(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec("INSERT INTO `users`").
		WithArgs("Alice", "alice@example.com", "555-0100", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(42, 1))

	user := &model.User{Name: "Alice", Email: strPtr("alice@example.com"), Phone: "555-0100"}
	require.NoError(t, repo.Create(context.Background(), user))

	assert.Equal(t, uint(42), user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_Errors(t *testing.T) {
	tests := []struct {
		name    string
		dbErr   error
		wantErr error
	}{
		{"duplicate email", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a@b.c' for key 'idx_users_email'"}, apperrors.ErrDuplicateUser},
		{"missing column", &mysql.MySQLError{Number: 1048, Message: "Column 'name' cannot be null"}, apperrors.ErrConstraintViolation},
		{"network failure", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, apperrors.ErrInfrastructure},
		{"invalid connection", mysql.ErrInvalidConn, apperrors.ErrInfrastructure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newRepoWithMock(t)
			mock.ExpectExec("INSERT INTO `users`").WillReturnError(tt.dbErr)

			err := repo.Create(context.Background(), &model.User{Name: "Alice"})

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.NotErrorIs(t, err, apperrors.ErrUserNotFound)
		})
	}
}

func TestUserRepository_FindByID(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(userColumns).AddRow(7, "Alice", "alice@example.com", "", now, now)
	mock.ExpectQuery("SELECT \\* FROM `users` WHERE `users`.`id` = \\?").
		WillReturnRows(rows)

	user, err := repo.FindByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, uint(7), user.ID)
	assert.Equal(t, "Alice", user.Name)
	assert.Equal(t, "alice@example.com", user.EmailValue())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByID_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery("SELECT \\* FROM `users`").
		WillReturnRows(sqlmock.NewRows(userColumns))

	user, err := repo.FindByID(context.Background(), 999)
	assert.Nil(t, user)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestUserRepository_FindByEmail(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT \\* FROM `users` WHERE email = \\?").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(3, "Alice", "alice@example.com", "", now, now))

	user, err := repo.FindByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, uint(3), user.ID)
}

func TestUserRepository_List(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(userColumns).
		AddRow(1, "Alice", nil, "", now, now).
		AddRow(2, "Bob", "bob@example.com", "555", now, now)
	mock.ExpectQuery("SELECT \\* FROM `users` ORDER BY id").WillReturnRows(rows)

	users, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Alice", users[0].Name)
	assert.Nil(t, users[0].Email)
	assert.Equal(t, "bob@example.com", users[1].EmailValue())
}

func TestUserRepository_List_Empty(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery("SELECT \\* FROM `users`").WillReturnRows(sqlmock.NewRows(userColumns))

	users, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}

func TestUserRepository_Update(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now().UTC()

	mock.ExpectExec("UPDATE `users` SET `name`=\\?,`updated_at`=\\? WHERE id = \\?").
		WithArgs("Bob", sqlmock.AnyArg(), 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT \\* FROM `users` WHERE `users`.`id` = \\?").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(5, "Bob", "alice@example.com", "555", now, now))

	user, err := repo.Update(context.Background(), 5, map[string]interface{}{"name": "Bob"})
	require.NoError(t, err)
	assert.Equal(t, "Bob", user.Name)
	assert.Equal(t, "alice@example.com", user.EmailValue())
	assert.Equal(t, "555", user.Phone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Update_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec("UPDATE `users`").WillReturnResult(sqlmock.NewResult(0, 0))

	user, err := repo.Update(context.Background(), 999, map[string]interface{}{"name": "Bob"})
	assert.Nil(t, user)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Update_Duplicate(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec("UPDATE `users`").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	_, err := repo.Update(context.Background(), 1, map[string]interface{}{"email": "taken@example.com"})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateUser)
}

func TestUserRepository_Delete(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec("DELETE FROM `users` WHERE `users`.`id` = \\?").
		WithArgs(4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM `users` WHERE `users`.`id` = \\?").
		WithArgs(4).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), 4))

	err := repo.Delete(context.Background(), 4)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound, "second delete reports not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Delete_DatabaseDown(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec("DELETE FROM `users`").WillReturnError(mysql.ErrInvalidConn)

	err := repo.Delete(context.Background(), 4)
	assert.ErrorIs(t, err, apperrors.ErrInfrastructure)
	assert.NotErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestTranslate_PassesUnknownErrorsThrough(t *testing.T) {
	cause := errors.New("syntax error")
	err := translate("list users", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "list users: syntax error", err.Error())
	assert.Nil(t, translate("noop", nil))
}
