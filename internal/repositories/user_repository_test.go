package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legaltrainer/internal/models"
)

var userCols = []string{
	"id", "username", "display_name", "email", "phone", "bot_identity", "password_hash",
	"refresh_token", "refresh_expires_at", "refresh_revoked", "created_at",
}

func TestUserRepository_Create(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	email := "anna@example.com"

	t.Run("returns generated id", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("INSERT INTO users").
			WithArgs(nil, "anna", &email, nil, nil, nil).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(42, now))

		u := &models.User{DisplayName: "anna", Email: &email}
		require.NoError(t, NewUserRepository(db).Create(context.Background(), u))
		assert.Equal(t, 42, u.ID)
		assert.Equal(t, now, u.CreatedAt)
	})

	t.Run("unique violation maps to ErrDuplicate", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("INSERT INTO users").
			WillReturnError(&pq.Error{Code: "23505"})

		err := NewUserRepository(db).Create(context.Background(), &models.User{DisplayName: "anna", Email: &email})
		assert.ErrorIs(t, err, ErrDuplicate)
	})
}

func TestUserRepository_FindByIdentity(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		kind      models.IdentityKind
		setupMock func(mock sqlmock.Sqlmock)
		wantID    int
		wantErr   bool
	}{
		{
			name: "by phone",
			kind: models.IdentityPhone,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("FROM users WHERE phone = \\$1").
					WithArgs("+77010000000").
					WillReturnRows(sqlmock.NewRows(userCols).
						AddRow(5, nil, "+77010000000", nil, "+77010000000", nil, nil, nil, nil, false, now))
			},
			wantID: 5,
		},
		{
			name: "not found",
			kind: models.IdentityBot,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("FROM users WHERE bot_identity = \\$1").
					WithArgs("+77010000000").
					WillReturnRows(sqlmock.NewRows(userCols))
			},
		},
		{
			name:      "unsupported kind",
			kind:      models.IdentityKind("password_hash"),
			setupMock: func(sqlmock.Sqlmock) {},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			tt.setupMock(mock)

			got, err := NewUserRepository(db).FindByIdentity(context.Background(), tt.kind, "+77010000000")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantID == 0 {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantID, got.ID)
			require.NotNil(t, got.Phone)
			assert.Equal(t, "+77010000000", *got.Phone)
		})
	}
}

func TestUserRepository_RotateRefresh(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	exp := now.Add(time.Hour)

	t.Run("unknown token", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("UPDATE users").
			WithArgs("new", exp, "old").
			WillReturnRows(sqlmock.NewRows(userCols))

		got, err := NewUserRepository(db).RotateRefresh(context.Background(), "old", "new", exp)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("rotated", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("UPDATE users").
			WithArgs("new", exp, "old").
			WillReturnRows(sqlmock.NewRows(userCols).
				AddRow(3, "bob", "bob", nil, nil, nil, "$2a$hash", "new", exp, false, now))

		got, err := NewUserRepository(db).RotateRefresh(context.Background(), "old", "new", exp)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 3, got.ID)
		require.NotNil(t, got.RefreshToken)
		assert.Equal(t, "new", *got.RefreshToken)
	})
}
