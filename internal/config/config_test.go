package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	c, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if c.AppPort != "8080" || c.MySQLPort != "3306" {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.IdempotencyTTL() != 24*time.Hour {
		t.Fatalf("idempotency ttl = %v, want 24h", c.IdempotencyTTL())
	}
	if c.SagaGrace() != 5*time.Minute {
		t.Fatalf("saga grace = %v, want 5m", c.SagaGrace())
	}
	if c.ReconcileSchedule != "@every 5m" {
		t.Fatalf("reconcile schedule = %q", c.ReconcileSchedule)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate error: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("IDEMPOTENCY_TTL_SECONDS", "60")
	t.Setenv("LOG_LEVEL", "DEBUG")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if c.AppPort != "9090" || c.RedisDB != 3 || c.IdempTTLSecs != 60 {
		t.Fatalf("overrides not applied: %+v", c)
	}
	if c.SlogLevel() != slog.LevelDebug {
		t.Fatalf("log level = %v", c.SlogLevel())
	}
}

func TestValidate_Failures(t *testing.T) {
	base := func() *Config {
		return &Config{
			AppPort: "8080", MySQLHost: "h", MySQLPort: "3306", MySQLDB: "d", MySQLUser: "u",
			JWTSecret: "x", IdempTTLSecs: 1, SagaGraceSecs: 1,
		}
	}
	cases := map[string]func(c *Config){
		"mysql host": func(c *Config) { c.MySQLHost = "" },
		"mysql port": func(c *Config) { c.MySQLPort = "not-a-port" },
		"app port":   func(c *Config) { c.AppPort = "" },
		"jwt":        func(c *Config) { c.JWTSecret = "" },
		"ttl":        func(c *Config) { c.IdempTTLSecs = 0 },
		"grace":      func(c *Config) { c.SagaGraceSecs = -1 },
	}
	for name, mutate := range cases {
		c := base()
		mutate(c)
		if err := c.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestMySQLDSN(t *testing.T) {
	c := &Config{MySQLUser: "u", MySQLPass: "p", MySQLHost: "db", MySQLPort: "3306", MySQLDB: "ledger"}
	dsn := c.MySQLDSN()
	if !strings.HasPrefix(dsn, "u:p@tcp(db:3306)/ledger?") || !strings.Contains(dsn, "parseTime=true") {
		t.Fatalf("dsn = %q", dsn)
	}
}
