package utils

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bus-ticketing/internal/status"
)

func TestTicketLockAcquire(t *testing.T) {
	db, mock := redismock.NewClientMock()
	lock := NewTicketLock(db, 5*time.Second)

	mock.Regexp().ExpectSetNX("lock:ticket:tkt0001", `[0-9A-F]{16}`, 5*time.Second).SetVal(true)

	release, err := lock.Acquire(context.Background(), "tkt0001")
	require.NoError(t, err)
	require.NotNil(t, release)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketLockContended(t *testing.T) {
	db, mock := redismock.NewClientMock()
	lock := NewTicketLock(db, 5*time.Second)

	mock.Regexp().ExpectSetNX("lock:ticket:tkt0001", `[0-9A-F]{16}`, 5*time.Second).SetVal(false)

	_, err := lock.Acquire(context.Background(), "tkt0001")
	assert.ErrorIs(t, err, status.ErrLockContended)
	assert.NoError(t, mock.ExpectationsWereMet())
}
