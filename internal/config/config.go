package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DefaultFileNameDenyPattern keeps index.html placeholders out of every cleanup.
const DefaultFileNameDenyPattern = "/index.html/i"

const (
	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"
)

// Config holds all configuration for the application
type Config struct {
	DBDriver string
	DBDSN    string

	Storages []StorageConfig

	FileNameDenyPattern         string
	PathDenyPattern             string
	ProcessedFolderPatterns     []string
	CollectionIncludeScanFolder bool
	OpsPerSecond                float64

	LogPath       string
	LogLevel      string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	HTTPAddr string

	SlackAPIToken string
	SlackChannel  string

	Schedule ScheduleConfig
}

// StorageConfig describes one storage, keyed by its numeric id.
type StorageConfig struct {
	ID        int
	Name      string
	Driver    string // local, s3
	PublicURL string

	// local
	Path string

	// s3
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// ScheduleConfig configures the cron jobs of the schedule command.
type ScheduleConfig struct {
	Folder        string
	Recursive     bool
	Cleanup       string
	CleanupAge    string
	EmptyRecycler string
	RecyclerAge   string
}

// Load returns a Config struct populated with current configuration
func Load() (*Config, error) {
	c := &Config{}

	var missingVars []string

	// Required variables
	c.DBDSN = getEnvOrDefault("DB_DSN", "")
	if c.DBDSN == "" {
		missingVars = append(missingVars, "DB_DSN")
	}

	// Optional variables with defaults
	c.DBDriver = getEnvOrDefault("DB_DRIVER", "sqlite3")
	c.FileNameDenyPattern = getEnvOrDefault("FILE_NAME_DENY_PATTERN", DefaultFileNameDenyPattern)
	c.PathDenyPattern = getEnvOrDefault("PATH_DENY_PATTERN", "")
	c.ProcessedFolderPatterns = splitList(getEnvOrDefault("PROCESSED_FOLDER_PATTERNS", "_processed_*"))
	c.CollectionIncludeScanFolder = getEnvAsBoolOrDefault("COLLECTION_INCLUDE_SCAN_FOLDER", false)
	c.OpsPerSecond = getEnvAsFloatOrDefault("OPS_PER_SECOND", 0)

	c.LogPath = getEnvOrDefault("LOG_PATH", "./data/logs")
	c.LogLevel = getEnvOrDefault("LOG_LEVEL", "INFO")
	c.LogMaxSizeMB = getEnvAsIntOrDefault("LOG_MAX_SIZE_MB", 10)
	c.LogMaxBackups = getEnvAsIntOrDefault("LOG_MAX_BACKUPS", 3)
	c.LogMaxAgeDays = getEnvAsIntOrDefault("LOG_MAX_AGE_DAYS", 28)

	c.HTTPAddr = getEnvOrDefault("HTTP_ADDR", ":8080")

	// Slack reporting is optional, but a token needs somewhere to post
	c.SlackAPIToken = getEnvOrDefault("SLACK_BOT_TOKEN", "")
	c.SlackChannel = getEnvOrDefault("SLACK_CHANNEL", "")
	if c.SlackAPIToken != "" && c.SlackChannel == "" {
		missingVars = append(missingVars, "SLACK_CHANNEL")
	}

	c.Schedule = ScheduleConfig{
		Folder:        getEnvOrDefault("SCHEDULE_FOLDER", "1:/"),
		Recursive:     getEnvAsBoolOrDefault("SCHEDULE_RECURSIVE", true),
		Cleanup:       getEnvOrDefault("SCHEDULE_CLEANUP", ""),
		CleanupAge:    getEnvOrDefault("SCHEDULE_CLEANUP_AGE", "1 month"),
		EmptyRecycler: getEnvOrDefault("SCHEDULE_EMPTY_RECYCLER", ""),
		RecyclerAge:   getEnvOrDefault("SCHEDULE_RECYCLER_AGE", "1 month"),
	}

	storages, missing, err := loadStorages()
	if err != nil {
		return nil, err
	}
	c.Storages = storages
	missingVars = append(missingVars, missing...)

	if len(missingVars) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missingVars, ", "))
	}

	if c.DBDriver != "sqlite3" && c.DBDriver != "pgx" {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q (want sqlite3 or pgx)", c.DBDriver)
	}

	return c, nil
}

func loadStorages() ([]StorageConfig, []string, error) {
	var (
		storages []StorageConfig
		missing  []string
	)

	for _, raw := range splitList(getEnvOrDefault("STORAGE_IDS", "1")) {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			return nil, nil, fmt.Errorf("invalid storage id %q in STORAGE_IDS", raw)
		}

		prefix := fmt.Sprintf("STORAGE_%d_", id)
		sc := StorageConfig{
			ID:        id,
			Name:      getEnvOrDefault(prefix+"NAME", fmt.Sprintf("storage %d", id)),
			Driver:    getEnvOrDefault(prefix+"DRIVER", StorageDriverLocal),
			PublicURL: getEnvOrDefault(prefix+"PUBLIC_URL", ""),
			Path:      getEnvOrDefault(prefix+"PATH", ""),
			Bucket:    getEnvOrDefault(prefix+"BUCKET", ""),
			Prefix:    getEnvOrDefault(prefix+"PREFIX", ""),
			Region:    getEnvOrDefault(prefix+"REGION", "us-east-1"),
			Endpoint:  getEnvOrDefault(prefix+"ENDPOINT", ""),
			AccessKey: getEnvOrDefault(prefix+"ACCESS_KEY", ""),
			SecretKey: getEnvOrDefault(prefix+"SECRET_KEY", ""),
		}

		switch sc.Driver {
		case StorageDriverLocal:
			if sc.Path == "" {
				missing = append(missing, prefix+"PATH")
			}
		case StorageDriverS3:
			if sc.Bucket == "" {
				missing = append(missing, prefix+"BUCKET")
			}
		default:
			return nil, nil, fmt.Errorf("unsupported %sDRIVER %q", prefix, sc.Driver)
		}

		storages = append(storages, sc)
	}

	return storages, missing, nil
}

func getEnvOrDefault(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getEnvAsIntOrDefault(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getEnvAsFloatOrDefault(key string, def float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return def
	}
	return v
}

func getEnvAsBoolOrDefault(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
