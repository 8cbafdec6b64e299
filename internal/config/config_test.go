package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AUTH_STAFF_SECRET", "staff-secret")
	t.Setenv("AUTH_PARCEL_SECRET", "parcel-secret")
}

func TestNewDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 12*time.Hour, cfg.Auth.StaffTTL)
	assert.Equal(t, 30*time.Minute, cfg.Auth.ParcelTTL)
	assert.Equal(t, int64(10), cfg.RateLimit.Attempts)
	assert.Equal(t, "Africa/Nairobi", cfg.Ledger.Timezone)
	assert.Equal(t, "parcels.lifecycle", cfg.Messaging.Kafka.Topic)
	assert.Equal(t, cfg.Database.WriterDSN, cfg.Database.ReaderDSN)
}

func TestNewRejectsMissingSecrets(t *testing.T) {
	t.Setenv("AUTH_STAFF_SECRET", "")
	t.Setenv("AUTH_PARCEL_SECRET", "")

	_, err := New()
	require.Error(t, err)
}

func TestNewRejectsSharedSecret(t *testing.T) {
	t.Setenv("AUTH_STAFF_SECRET", "same")
	t.Setenv("AUTH_PARCEL_SECRET", "same")

	_, err := New()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must differ")
}

func TestNewRejectsBadCacheDriver(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CACHE_DRIVER", "memcached")

	_, err := New()
	require.Error(t, err)
}
