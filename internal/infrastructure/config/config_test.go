package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "test",
			Password: "test",
			Database: "test_db",
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
		},
		Reservation: ReservationConfig{TTL: 15 * time.Minute},
		Relay: RelayConfig{
			PollInterval:  2 * time.Second,
			BatchSize:     50,
			LeaderLockTTL: 30 * time.Second,
		},
		Consumer: ConsumerConfig{BatchSize: 10},
	}
}

func TestConfig_Validate_Success(t *testing.T) {
	err := validConfig().Validate()
	assert.NoError(t, err)
}

func TestConfig_Validate_InvalidServerPort(t *testing.T) {
	tests := []struct {
		name string
		port int
	}{
		{"port too low", 0},
		{"port negative", -1},
		{"port too high", 99999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Server.Port = tt.port

			err := cfg.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "server.port")
		})
	}
}

func TestConfig_Validate_ReservationTTL(t *testing.T) {
	cfg := validConfig()
	cfg.Reservation.TTL = 0

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "reservation.ttl")
}

func TestConfig_Validate_LeaderLockTTLBound(t *testing.T) {
	cfg := validConfig()
	// A lock that expires within one poll interval flaps leadership.
	cfg.Relay.PollInterval = 30 * time.Second
	cfg.Relay.LeaderLockTTL = 10 * time.Second

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "leader_lock_ttl")
}

func TestConfig_Validate_JWTSecret(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.JWTSecret = "short"
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")

	cfg = validConfig()
	cfg.Environment = "production"
	err = cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")

	cfg.Auth.JWTSecret = "0123456789abcdef0123456789abcdef"
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.Database.Host = ""
	cfg.Consumer.BatchSize = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
	assert.Contains(t, err.Error(), "database.host")
	assert.Contains(t, err.Error(), "consumer.batch_size")
}

func TestSetDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Minute, cfg.Reservation.TTL)
	assert.Equal(t, 2*time.Second, cfg.Relay.PollInterval)
	assert.Equal(t, 50, cfg.Relay.BatchSize)
	assert.Equal(t, uint(3), cfg.Relay.PublishRetries)
	assert.Equal(t, "ticketing-workers", cfg.Consumer.Group)
	assert.Equal(t, "development", cfg.Environment)
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host: "db", Port: 5433, User: "u", Password: "p", Database: "tickets", SSLMode: "disable",
	}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=tickets sslmode=disable", cfg.DatabaseDSN())
}

func TestRedisAddr(t *testing.T) {
	cfg := RedisConfig{Host: "cache", Port: 6380}
	assert.Equal(t, "cache:6380", cfg.RedisAddr())
}
