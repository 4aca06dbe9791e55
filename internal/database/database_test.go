package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     string
		wantErr  bool
	}{
		{"placeholder", "app:%s@tcp(db:3306)/app", "app:pw@tcp(db:3306)/app", false},
		{"inline password", "app:inline@tcp(db:3306)/app", "app:inline@tcp(db:3306)/app", false},
		{"empty", "", "", true},
		{"two placeholders", "%s:%s@tcp(db)/app", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DSN(tt.template, "pw")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := DSN("", "pw")
	assert.ErrorIs(t, err, ErrNoDSN)
}

func TestOpenPingsBeforeReturning(t *testing.T) {
	_, mock, err := sqlmock.NewWithDSN("database_open_ok", sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing()

	db, err := openDriver("sqlmock", "database_open_ok", 2, 1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenPingFailure(t *testing.T) {
	_, mock, err := sqlmock.NewWithDSN("database_open_fail", sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	_, err = openDriver("sqlmock", "database_open_fail", 2, 1)
	assert.Error(t, err)
}

func TestPing(t *testing.T) {
	raw, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	db := sqlx.NewDb(raw, "sqlmock")
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectPing()
	assert.NoError(t, Ping(context.Background(), db))

	mock.ExpectPing().WillReturnError(errors.New("gone away"))
	assert.Error(t, Ping(context.Background(), db))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnavailable(t *testing.T) {
	cause := errors.New("access denied for user")
	assert.ErrorIs(t, Ping(context.Background(), Unavailable{Err: cause}), cause)
}
