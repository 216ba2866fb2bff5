package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("AUTO_MIGRATE", "false")
	t.Setenv("OTP_TTL_MINUTES", "not-a-number")

	Load()
	cfg := AppConfig
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.False(t, cfg.AutoMigrate)
	assert.Equal(t, 10*time.Minute, cfg.OTPTTL)
	assert.Contains(t, cfg.DBConnStr, "dbname=")
}

func TestValidateJWTSecret(t *testing.T) {
	cases := []struct {
		name    string
		env     string
		key     string
		wantErr bool
	}{
		{"development allows default", EnvDevelopment, DefaultJWTSecret, false},
		{"production rejects default", EnvProduction, DefaultJWTSecret, true},
		{"production rejects short key", EnvProduction, "short-but-set", true},
		{"production accepts long key", EnvProduction, "0123456789abcdef0123456789abcdef", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := (&Config{AppEnv: tc.env, JWTKey: []byte(tc.key)}).Validate()
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "JWT_SECRET")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
