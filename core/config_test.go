package core

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing secret", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, wantErr: "JWT_SECRET is required"},
		{
			name:    "short secret",
			mutate:  func(c *Config) { c.Auth.JWTSecret = strings.Repeat("x", minJWTSecretLen-1) },
			wantErr: "JWT_SECRET must be at least 32 characters long",
		},
		{name: "zero access ttl", mutate: func(c *Config) { c.Auth.AccessTokenTTL = 0 }, wantErr: "token TTLs must be positive"},
		{name: "negative refresh ttl", mutate: func(c *Config) { c.Auth.RefreshTokenTTL = -time.Hour }, wantErr: "token TTLs must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := NewTestConfig()
			tt.mutate(conf)
			err := conf.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0, Percent(3, 0))
	assert.Equal(t, 67, Percent(2, 3))
	assert.Equal(t, 33, Percent(1, 3))
	assert.Equal(t, 100, Percent(4, 4))
}

func TestRoundedMean(t *testing.T) {
	assert.Equal(t, 0, RoundedMean(nil))
	assert.Equal(t, 65, RoundedMean([]float64{80, 50}))
	assert.Equal(t, 68, RoundedMean([]float64{67.5}))
}

func TestCleanCode(t *testing.T) {
	assert.Equal(t, "BM001", CleanCode("  bm001 "))
	assert.Equal(t, "ann@test.test", CleanString(" Ann@Test.test ", true))
	assert.Equal(t, "Ann", CleanString(" Ann "))
}
