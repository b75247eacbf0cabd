package config

import (
	"os"
	"testing"
)

func setEnv(t *testing.T, vars map[string]string) {
	t.Helper()
	for k, v := range vars {
		t.Setenv(k, v)
	}
}

func TestLoad(t *testing.T) {
	// Test required variables
	setEnv(t, map[string]string{
		"DB_DSN":           "/tmp/file_cleanup.db",
		"STORAGE_IDS":      "1,2",
		"STORAGE_1_PATH":   "/var/www/fileadmin",
		"STORAGE_2_DRIVER": "s3",
		"STORAGE_2_BUCKET": "media",
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.DBDriver != "sqlite3" {
		t.Errorf("Expected default driver sqlite3, got %s", cfg.DBDriver)
	}
	if cfg.FileNameDenyPattern != DefaultFileNameDenyPattern {
		t.Errorf("Expected default file deny pattern, got %q", cfg.FileNameDenyPattern)
	}
	if len(cfg.Storages) != 2 {
		t.Fatalf("Expected 2 storages, got %d", len(cfg.Storages))
	}
	if cfg.Storages[0].Driver != "local" || cfg.Storages[0].Path != "/var/www/fileadmin" {
		t.Errorf("Unexpected storage 1: %+v", cfg.Storages[0])
	}
	if cfg.Storages[1].Driver != "s3" || cfg.Storages[1].Bucket != "media" {
		t.Errorf("Unexpected storage 2: %+v", cfg.Storages[1])
	}
	if len(cfg.ProcessedFolderPatterns) != 1 || cfg.ProcessedFolderPatterns[0] != "_processed_*" {
		t.Errorf("Unexpected processed folder patterns: %v", cfg.ProcessedFolderPatterns)
	}

	// Test missing required variable
	os.Unsetenv("DB_DSN")
	_, err = Load()
	if err == nil {
		t.Error("Expected error for missing DB_DSN, got nil")
	}
}

func TestLoadEmptyDenyPatternDisablesDefault(t *testing.T) {
	setEnv(t, map[string]string{
		"DB_DSN":                 "/tmp/file_cleanup.db",
		"STORAGE_1_PATH":         "/srv/files",
		"FILE_NAME_DENY_PATTERN": "",
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.FileNameDenyPattern != "" {
		t.Errorf("Expected empty file deny pattern, got %q", cfg.FileNameDenyPattern)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{
			name: "Local storage without path",
			vars: map[string]string{"DB_DSN": "x.db"},
		},
		{
			name: "S3 storage without bucket",
			vars: map[string]string{"DB_DSN": "x.db", "STORAGE_1_DRIVER": "s3"},
		},
		{
			name: "Unknown storage driver",
			vars: map[string]string{"DB_DSN": "x.db", "STORAGE_1_DRIVER": "ftp"},
		},
		{
			name: "Invalid storage id",
			vars: map[string]string{"DB_DSN": "x.db", "STORAGE_IDS": "abc"},
		},
		{
			name: "Unknown database driver",
			vars: map[string]string{"DB_DSN": "x.db", "STORAGE_1_PATH": "/srv", "DB_DRIVER": "mysql"},
		},
		{
			name: "Slack token without channel",
			vars: map[string]string{"DB_DSN": "x.db", "STORAGE_1_PATH": "/srv", "SLACK_BOT_TOKEN": "xoxb-test"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnv(t, tt.vars)
			if _, err := Load(); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}
