package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const minJWTSecretLen = 32

var defaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:3001",
	"http://127.0.0.1:3000",
	"https://imajine-uni-frontend.vercel.app",
}

type (
	Config struct {
		Env              string // DEV (local; default), TEST, QA, PROD
		Debug            bool
		TestMode         bool
		AppName          string
		Build            string
		WorkDir          string
		FrontendBaseURL  string
		RollbarToken     string
		SendgridApiKey   string
		DefaultFromEmail mail.Address

		Server   ServerConfig
		Auth     AuthConfig
		Database DatabaseConfig
		Redis    RedisConfig
	}

	ServerConfig struct {
		Host            string
		Port            string
		DebugHost       string
		ShutdownTimeout time.Duration
		CORSOrigins     []string
	}

	AuthConfig struct {
		JWTSecret       string
		Issuer          string
		Audience        string
		AccessTokenTTL  time.Duration
		RefreshTokenTTL time.Duration
	}

	DatabaseConfig struct {
		URL           string // takes precedence over the discrete settings below
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RedisConfig struct {
		Addr              string
		Password          string
		AnalyticsCacheTTL time.Duration
	}
)

// Address returns the server listen address.
func (c ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Address returns the database host:port pair.
func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Validate checks the settings the application cannot start without.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if len(c.Auth.JWTSecret) < minJWTSecretLen {
		return errors.Errorf("JWT_SECRET must be at least %d characters long", minJWTSecretLen)
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	return nil
}

func NewConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}

	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("config.os.Getwd(): %v", err)
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", env == "DEV")
	v.SetDefault("appName", "Imajine")
	v.SetDefault("build", "develop")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", "3000")
	v.SetDefault("server.debugHost", "localhost:4000")
	v.SetDefault("server.shutdownTimeout", 10*time.Second)
	v.SetDefault("server.corsOrigins", strings.Join(defaultCORSOrigins, ","))
	v.SetDefault("auth.issuer", "final-project-be")
	v.SetDefault("auth.audience", "final-project-fe")
	v.SetDefault("auth.accessTokenTTL", 30*time.Minute)
	v.SetDefault("auth.refreshTokenTTL", 7*24*time.Hour)
	v.SetDefault("db.engine", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.name", "imajine")
	v.SetDefault("db.disableTLS", true)
	v.SetDefault("redis.analyticsCacheTTL", time.Minute)

	bindings := map[string]string{
		"debug":                   "DEBUG",
		"build":                   "BUILD",
		"frontendBaseURL":         "FRONTEND_BASE_URL",
		"defaultFromEmail":        "DEFAULT_FROM_EMAIL",
		"rollbarToken":            "ROLLBAR_TOKEN",
		"sendgridApiKey":          "SENDGRID_API_KEY",
		"server.host":             "HOST",
		"server.port":             "PORT",
		"server.debugHost":        "DEBUG_HOST",
		"server.shutdownTimeout":  "SHUTDOWN_TIMEOUT",
		"server.corsOrigins":      "CORS_ORIGINS",
		"auth.jwtSecret":          "JWT_SECRET",
		"auth.issuer":             "JWT_ISSUER",
		"auth.audience":           "JWT_AUDIENCE",
		"auth.accessTokenTTL":     "JWT_ACCESS_TTL",
		"auth.refreshTokenTTL":    "JWT_REFRESH_TTL",
		"db.url":                  "DATABASE_URL",
		"db.engine":               "DB_ENGINE",
		"db.host":                 "DB_HOST",
		"db.port":                 "DB_PORT",
		"db.name":                 "DB_NAME",
		"db.user":                 "DB_USER",
		"db.password":             "DB_PASSWORD",
		"db.adminUser":            "DB_ADMIN_USER",
		"db.adminPassword":        "DB_ADMIN_PASSWORD",
		"db.disableTLS":           "DB_DISABLE_TLS",
		"redis.addr":              "REDIS_ADDR",
		"redis.password":          "REDIS_PASSWORD",
		"redis.analyticsCacheTTL": "ANALYTICS_CACHE_TTL",
	}
	for key, envVar := range bindings {
		_ = v.BindEnv(key, envVar)
	}

	appName := v.GetString("appName")
	fromEmail, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		fromEmail = &mail.Address{Address: v.GetString("defaultFromEmail")}
	}
	if fromEmail.Name == "" {
		fromEmail.Name = appName
	}

	return &Config{
		Env:              env,
		Debug:            v.GetBool("debug"),
		TestMode:         env == "TEST",
		AppName:          appName,
		Build:            v.GetString("build"),
		WorkDir:          wd,
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		DefaultFromEmail: *fromEmail,
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Port:            v.GetString("server.port"),
			DebugHost:       v.GetString("server.debugHost"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			CORSOrigins:     splitList(v.GetString("server.corsOrigins")),
		},
		Auth: AuthConfig{
			JWTSecret:       v.GetString("auth.jwtSecret"),
			Issuer:          v.GetString("auth.issuer"),
			Audience:        v.GetString("auth.audience"),
			AccessTokenTTL:  v.GetDuration("auth.accessTokenTTL"),
			RefreshTokenTTL: v.GetDuration("auth.refreshTokenTTL"),
		},
		Database: DatabaseConfig{
			URL:           v.GetString("db.url"),
			Engine:        v.GetString("db.engine"),
			Host:          v.GetString("db.host"),
			Port:          v.GetString("db.port"),
			Name:          v.GetString("db.name"),
			User:          v.GetString("db.user"),
			Password:      v.GetString("db.password"),
			AdminUser:     v.GetString("db.adminUser"),
			AdminPassword: v.GetString("db.adminPassword"),
			DisableTLS:    v.GetBool("db.disableTLS"),
		},
		Redis: RedisConfig{
			Addr:              v.GetString("redis.addr"),
			Password:          v.GetString("redis.password"),
			AnalyticsCacheTTL: v.GetDuration("redis.analyticsCacheTTL"),
		},
	}
}

// NewTestConfig returns a Config suitable for tests, without touching the environment.
func NewTestConfig() *Config {
	return &Config{
		Env:              "TEST",
		TestMode:         true,
		AppName:          "Imajine",
		Build:            "test",
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: mail.Address{Name: "Imajine", Address: "noreply@localhost"},
		Server: ServerConfig{
			Port:            "3000",
			ShutdownTimeout: time.Second,
			CORSOrigins:     defaultCORSOrigins,
		},
		Auth: AuthConfig{
			JWTSecret:       "test-secret-0123456789-abcdefghijklmnop",
			Issuer:          "final-project-be",
			Audience:        "final-project-fe",
			AccessTokenTTL:  30 * time.Minute,
			RefreshTokenTTL: 7 * 24 * time.Hour,
		},
	}
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func (c *Config) String() string {
	return fmt.Sprintf("%s(env=%s, build=%s, debug=%t)", c.AppName, c.Env, c.Build, c.Debug)
}
