package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PASETO_KEY", "0123456789abcdef0123456789abcdef")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "dev", cfg.Server.Env)
	assert.True(t, cfg.Server.IsDevelopment())
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.TrustedOrigins)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "taskhub", cfg.Database.DBName)

	assert.Equal(t, "localhost:6379", cfg.Redis.Address())

	assert.Equal(t, 7*24*time.Hour, cfg.Auth.TokenDuration)
	assert.Equal(t, 10*time.Minute, cfg.Auth.OTPTTL)
	assert.Empty(t, cfg.Auth.AdminInviteToken)

	assert.Equal(t, "587", cfg.Email.SMTPPort)
	assert.Equal(t, 10*time.Second, cfg.Email.SendTimeout)
}

func TestLoadRejectsBadTokenKey(t *testing.T) {
	t.Setenv("PASETO_KEY", "too-short")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "32 bytes")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PASETO_KEY", "0123456789abcdef0123456789abcdef")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("APP_ENV", "prod")
	t.Setenv("SESSION_TOKEN_DURATION", "3600")
	t.Setenv("OTP_TTL", "300")
	t.Setenv("ADMIN_INVITE_TOKEN", "invite-secret")
	t.Setenv("TRUSTED_ORIGINS", "https://app.example.com, https://staging.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.False(t, cfg.Server.IsDevelopment())
	assert.Equal(t, time.Hour, cfg.Auth.TokenDuration)
	assert.Equal(t, 5*time.Minute, cfg.Auth.OTPTTL)
	assert.Equal(t, "invite-secret", cfg.Auth.AdminInviteToken)
	assert.Equal(t,
		[]string{"https://app.example.com", "https://staging.example.com"},
		cfg.Server.TrustedOrigins,
	)
}

func TestDatabaseConnectionString(t *testing.T) {
	cfg := DatabaseConfig{
		Host: "db", Port: "5432", User: "u", Password: "p",
		DBName: "taskhub", SSLMode: "disable",
	}
	assert.Equal(t,
		"host=db port=5432 user=u password=p dbname=taskhub sslmode=disable",
		cfg.ConnectionString(),
	)

	cfg.ChannelBinding = "require"
	assert.Contains(t, cfg.ConnectionString(), "channel_binding=require")
}
