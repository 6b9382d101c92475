package configs

import (
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ENVIRONMENT", "PORT", "ALLOWED_ORIGINS", "STATIC_DIR", "SESSION_SECRET", "ADMIN_EMAIL",
		"ADMIN_AVATAR", "POW_DIFFICULTY", "STORE_DRIVER", "DATABASE_URL", "MONGODB_URI",
		"MONGODB_DATABASE", "HISTORY_LIMIT", "REDIS_ADDR", "REDIS_CHANNEL", "REDIS_PASSWORD",
		"S3_BUCKET_NAME", "S3_ENDPOINT", "S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY", "S3_REGION",
		"S3_PUBLIC_BASE_URL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadConfigDevelopmentDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if !cfg.IsDevelopment() || cfg.Port != 3000 {
		t.Errorf("unexpected defaults: env=%q port=%d", cfg.Environment, cfg.Port)
	}
	if cfg.StoreDriver != StoreDriverPostgres || cfg.DatabaseDSN == "" {
		t.Errorf("expected postgres driver with a dev DSN, got %q %q", cfg.StoreDriver, cfg.DatabaseDSN)
	}
	if cfg.HistoryLimit != 100 || cfg.AdminAvatar != "admin.jpg" || cfg.PowDifficulty != 0 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.UploadsEnabled() {
		t.Error("uploads should be disabled without S3 settings")
	}
}

func TestLoadConfigProductionRequiresSecrets(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DATABASE_URL", "postgres://db/spiderlink")

	if _, err := LoadConfig(); err == nil || !strings.Contains(err.Error(), "SESSION_SECRET") {
		t.Fatalf("expected SESSION_SECRET error, got %v", err)
	}

	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("DATABASE_URL", "")
	if _, err := LoadConfig(); err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected DATABASE_URL error, got %v", err)
	}

	t.Setenv("STORE_DRIVER", "memory")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("memory driver must be rejected outside development")
	}
}

func TestLoadConfigParsesValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8081")
	t.Setenv("ALLOWED_ORIGINS", " https://a.test , ,https://b.test")
	t.Setenv("ADMIN_EMAIL", " Miguel@Nueva-York.test ")
	t.Setenv("STORE_DRIVER", "Mongo")
	t.Setenv("HISTORY_LIMIT", "50")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Port != 8081 || len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.test" {
		t.Errorf("port/origins parsed wrong: %d %v", cfg.Port, cfg.AllowedOrigins)
	}
	if cfg.AdminEmail != "miguel@nueva-york.test" {
		t.Errorf("admin email = %q", cfg.AdminEmail)
	}
	if cfg.StoreDriver != StoreDriverMongo || cfg.MongoURI == "" || cfg.MongoDatabase != "spiderlink" {
		t.Errorf("mongo settings = %q %q %q", cfg.StoreDriver, cfg.MongoURI, cfg.MongoDatabase)
	}
	if cfg.HistoryLimit != 50 {
		t.Errorf("history limit = %d", cfg.HistoryLimit)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	cases := map[string][2]string{
		"bad port":        {"PORT", "http"},
		"privileged port": {"PORT", "80"},
		"bad driver":      {"STORE_DRIVER", "cassandra"},
		"history too big": {"HISTORY_LIMIT", "10000"},
		"partial s3":      {"S3_BUCKET_NAME", "uploads"},
		"pow too hard":    {"POW_DIFFICULTY", "12"},
	}

	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(kv[0], kv[1])
			if _, err := LoadConfig(); err == nil {
				t.Fatalf("expected error for %s=%s", kv[0], kv[1])
			}
		})
	}
}
