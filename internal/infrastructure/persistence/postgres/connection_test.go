package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestConfig_DSN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Password = "secret"
	assert.Equal(t,
		"host=localhost port=5432 dbname=confessions user=postgres password=secret sslmode=disable connect_timeout=10",
		cfg.DSN())

	cfg.URL = "postgres://u:p@db:5432/x"
	assert.Equal(t, "postgres://u:p@db:5432/x", cfg.DSN())
}

func TestErrorHelpers(t *testing.T) {
	wrap := func(code string) error {
		return fmt.Errorf("exec: %w", &pgconn.PgError{Code: code})
	}

	assert.True(t, IsUniqueViolation(wrap("23505")))
	assert.True(t, IsForeignKeyViolation(wrap("23503")))
	assert.True(t, IsSerializationFailure(wrap("40001")))
	assert.True(t, IsSerializationFailure(wrap("40P01")))
	assert.False(t, IsSerializationFailure(wrap("23505")))
	assert.False(t, IsUniqueViolation(errors.New("plain")))

	assert.True(t, isTransient(wrap("40001")))
	assert.False(t, isTransient(wrap("23505")))
	assert.False(t, isTransient(context.Canceled))
	assert.False(t, isTransient(nil))
}

func TestBound(t *testing.T) {
	assert.Nil(t, bound(time.Time{}))
	now := time.Now()
	assert.Equal(t, now, bound(now))
}

func TestPgTimezone(t *testing.T) {
	assert.Equal(t, "UTC", pgTimezone(nil))
	assert.Equal(t, "UTC", pgTimezone(time.Local))

	loc, err := time.LoadLocation("Africa/Addis_Ababa")
	if err != nil {
		t.Skip("tzdata not available")
	}
	assert.Equal(t, "Africa/Addis_Ababa", pgTimezone(loc))
}

func TestHealthStatus_Err(t *testing.T) {
	var missing *HealthStatus
	assert.Error(t, missing.Err())

	assert.NoError(t, (&HealthStatus{Healthy: true}).Err())
	assert.EqualError(t, (&HealthStatus{Error: "i/o timeout"}).Err(), "database unhealthy: i/o timeout")
	assert.EqualError(t, (&HealthStatus{}).Err(), "database unhealthy")
}
