package config

import (
	"os"
	"testing"
)

func TestLoad_WithDefaults(t *testing.T) {
	// Clear any existing env vars that might interfere
	envVars := []string{
		"APP_NAME", "APP_ENVIRONMENT", "APP_DEBUG",
		"SERVER_HOST", "SERVER_PORT",
		"DATABASE_HOST", "DATABASE_PORT", "DATABASE_USER", "DATABASE_PASSWORD", "DATABASE_DBNAME",
		"REDIS_HOST", "REDIS_PORT",
		"JWT_SECRET",
		"IMPORT_MAX_UPLOAD_BYTES", "IMPORT_TIMEZONE", "IMPORT_RATE_LIMIT_PER_MINUTE",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.App.Name != "event-calendar-api" {
		t.Errorf("App.Name = %q, want %q", cfg.App.Name, "event-calendar-api")
	}

	if cfg.App.Environment != "development" {
		t.Errorf("App.Environment = %q, want %q", cfg.App.Environment, "development")
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}

	if cfg.Database.Port != 5432 {
		t.Errorf("Database.Port = %d, want %d", cfg.Database.Port, 5432)
	}

	if cfg.Import.MaxUploadBytes != 5*1024*1024 {
		t.Errorf("Import.MaxUploadBytes = %d, want %d", cfg.Import.MaxUploadBytes, 5*1024*1024)
	}

	if cfg.Import.Timezone != "America/New_York" {
		t.Errorf("Import.Timezone = %q, want %q", cfg.Import.Timezone, "America/New_York")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	os.Setenv("SERVER_PORT", "9090")
	os.Setenv("DATABASE_DBNAME", "calendar_test")
	os.Setenv("IMPORT_TIMEZONE", "UTC")
	defer func() {
		os.Unsetenv("SERVER_PORT")
		os.Unsetenv("DATABASE_DBNAME")
		os.Unsetenv("IMPORT_TIMEZONE")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9090)
	}

	if cfg.Database.DBName != "calendar_test" {
		t.Errorf("Database.DBName = %q, want %q", cfg.Database.DBName, "calendar_test")
	}

	if cfg.Import.Timezone != "UTC" {
		t.Errorf("Import.Timezone = %q, want %q", cfg.Import.Timezone, "UTC")
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := &DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "testuser",
		Password: "testpass",
		DBName:   "testdb",
		SSLMode:  "disable",
	}

	dsn := cfg.DSN()
	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable"

	if dsn != expected {
		t.Errorf("DSN mismatch:\nExpected: %s\nGot: %s", expected, dsn)
	}
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := &RedisConfig{Host: "localhost", Port: 6379}

	if got := cfg.Addr(); got != "localhost:6379" {
		t.Errorf("Addr() = %q, want %q", got, "localhost:6379")
	}
}

func TestValidate_BadTimezone(t *testing.T) {
	os.Setenv("IMPORT_TIMEZONE", "Not/AZone")
	defer os.Unsetenv("IMPORT_TIMEZONE")

	if _, err := Load(); err == nil {
		t.Error("Expected error for invalid timezone, got nil")
	}
}

func TestValidate_ProductionSecret(t *testing.T) {
	os.Setenv("APP_ENVIRONMENT", "production")
	defer os.Unsetenv("APP_ENVIRONMENT")

	if _, err := Load(); err == nil {
		t.Error("Expected error for default JWT secret in production, got nil")
	}
}
