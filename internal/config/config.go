// Package config loads process configuration via viper, matching the
// `config.Load()` call site every teacher cmd/server/main.go expects but
// never itself defines. Env vars are read under the NOVA_ prefix
// (NOVA_DATABASE_DSN, NOVA_REDIS_ADDR, ...); security-critical fields are
// validated fail-fast so a misconfigured deploy never starts serving
// traffic with a zero-value secret.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	HTTPPort int
	GRPCPort int
}

type DatabaseConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers []string
	GroupID string
}

type ClickHouseConfig struct {
	DSN string
}

type JWTConfig struct {
	PublicKeyPEM string
}

type WebSocketConfig struct {
	AllowedOrigins []string
	MaxConnections int
}

// ChatConfig holds the symmetric master key used to derive per-conversation
// keys (internal/chat/crypto.DeriveConversationKey) for strict_e2e
// conversations. It is never logged.
type ChatConfig struct {
	MasterKeyHex string
}

// RBACConfig points at the Casbin model used to gate the mesh's admin/
// moderation endpoints (internal/rpcmesh.NewRBACEnforcer); the policy store
// itself lives in Redis, so only the model file is local.
type RBACConfig struct {
	ModelPath string
}

type Config struct {
	Environment string // "development" | "staging" | "production"
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	ClickHouse  ClickHouseConfig
	JWT         JWTConfig
	WebSocket   WebSocketConfig
	Chat        ChatConfig
	RBAC        RBACConfig
}

// Load reads config from environment variables (prefix NOVA_) with sane
// development defaults, then validates fields the process cannot safely
// start without.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NOVA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("environment", "development")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.grpc_port", 9090)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.max_idle_conns", 25)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("redis.db", 0)
	v.SetDefault("kafka.group_id", "backbone")
	v.SetDefault("websocket.max_connections", 5)
	v.SetDefault("rbac.model_path", "configs/rbac_model.conf")

	_ = v.BindEnv("database.dsn", "NOVA_DATABASE_DSN")
	_ = v.BindEnv("redis.addr", "NOVA_REDIS_ADDR")
	_ = v.BindEnv("redis.password", "NOVA_REDIS_PASSWORD")
	_ = v.BindEnv("kafka.brokers", "NOVA_KAFKA_BROKERS")
	_ = v.BindEnv("clickhouse.dsn", "NOVA_CLICKHOUSE_DSN")
	_ = v.BindEnv("jwt.public_key_pem", "NOVA_JWT_PUBLIC_KEY_PEM")
	_ = v.BindEnv("chat.master_key_hex", "NOVA_CHAT_MASTER_KEY_HEX")
	_ = v.BindEnv("rbac.model_path", "NOVA_RBAC_MODEL_PATH")

	cfg := &Config{
		Environment: v.GetString("environment"),
		Server: ServerConfig{
			HTTPPort: v.GetInt("server.http_port"),
			GRPCPort: v.GetInt("server.grpc_port"),
		},
		Database: DatabaseConfig{
			DSN:             v.GetString("database.dsn"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Kafka: KafkaConfig{
			Brokers: splitCSV(v.GetString("kafka.brokers")),
			GroupID: v.GetString("kafka.group_id"),
		},
		ClickHouse: ClickHouseConfig{
			DSN: v.GetString("clickhouse.dsn"),
		},
		JWT: JWTConfig{
			PublicKeyPEM: v.GetString("jwt.public_key_pem"),
		},
		WebSocket: WebSocketConfig{
			AllowedOrigins: splitCSV(v.GetString("websocket.allowed_origins")),
			MaxConnections: v.GetInt("websocket.max_connections"),
		},
		Chat: ChatConfig{
			MasterKeyHex: v.GetString("chat.master_key_hex"),
		},
		RBAC: RBACConfig{
			ModelPath: v.GetString("rbac.model_path"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate fails fast on any security-critical field left at its zero
// value, rather than letting a service start and fail every request later.
func (c *Config) validate() error {
	var missing []string
	if c.Database.DSN == "" {
		missing = append(missing, "NOVA_DATABASE_DSN")
	}
	if c.Redis.Addr == "" {
		missing = append(missing, "NOVA_REDIS_ADDR")
	}
	if c.JWT.PublicKeyPEM == "" {
		missing = append(missing, "NOVA_JWT_PUBLIC_KEY_PEM")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
