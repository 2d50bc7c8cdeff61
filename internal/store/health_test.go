package store

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPingPool(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectPing()
	mock.ExpectExec("^SELECT 1$").WillReturnResult(pgxmock.NewResult("SELECT", 1))
	require.NoError(t, pingPool(context.Background(), mock))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	assert.ErrorContains(t, pingPool(context.Background(), mock), "postgres ping failed")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresHealthCheckRejectsBadDSN(t *testing.T) {
	assert.ErrorContains(t, PostgresHealthCheck(context.Background(), "", 0), "empty dsn")
	assert.ErrorContains(t, PostgresHealthCheck(context.Background(), "postgres://%zz", 0), "parse postgres dsn")
}
