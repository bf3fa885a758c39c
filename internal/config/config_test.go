package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"NOVA_DATABASE_DSN", "NOVA_REDIS_ADDR", "NOVA_REDIS_PASSWORD",
		"NOVA_KAFKA_BROKERS", "NOVA_CLICKHOUSE_DSN", "NOVA_JWT_PUBLIC_KEY_PEM",
		"NOVA_CHAT_MASTER_KEY_HEX",
	} {
		os.Unsetenv(key)
	}
}

func TestLoad_FailsFastOnMissingRequiredFields(t *testing.T) {
	clearEnv(t)
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOVA_DATABASE_DSN")
	assert.Contains(t, err.Error(), "NOVA_REDIS_ADDR")
	assert.Contains(t, err.Error(), "NOVA_JWT_PUBLIC_KEY_PEM")
}

func TestLoad_SucceedsWithRequiredFieldsSet(t *testing.T) {
	clearEnv(t)
	t.Setenv("NOVA_DATABASE_DSN", "postgres://localhost/test")
	t.Setenv("NOVA_REDIS_ADDR", "localhost:6379")
	t.Setenv("NOVA_JWT_PUBLIC_KEY_PEM", "-----BEGIN PUBLIC KEY-----\nfake\n-----END PUBLIC KEY-----")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 9090, cfg.Server.GRPCPort)
	assert.Equal(t, "backbone", cfg.Kafka.GroupID)
}

func TestLoad_SplitsKafkaBrokersOnComma(t *testing.T) {
	clearEnv(t)
	t.Setenv("NOVA_DATABASE_DSN", "postgres://localhost/test")
	t.Setenv("NOVA_REDIS_ADDR", "localhost:6379")
	t.Setenv("NOVA_JWT_PUBLIC_KEY_PEM", "fake")
	t.Setenv("NOVA_KAFKA_BROKERS", "broker1:9092, broker2:9092")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.Kafka.Brokers)
}

func TestSplitCSV_EmptyStringYieldsNil(t *testing.T) {
	assert.Nil(t, splitCSV(""))
}
