package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	ReadTimeout time.Duration
	IdleTimeout time.Duration
	TLSCertFile string
	TLSKeyFile  string

	// DeployRoot is the directory all repository working copies live
	// under.
	DeployRoot string

	// AdminPasswordHash is the bcrypt hash of the console password, read
	// from ADMIN_PASSWORD_HASH_FILE.
	AdminPasswordHash string
	// GitHubToken is the personal access token used both for listing
	// repositories and for authenticated clone URLs, read from
	// GITHUB_TOKEN_FILE.
	GitHubToken string

	RepoCacheFile string
	RepoCacheTTL  time.Duration

	StatsFile       string
	StatsInterval   time.Duration
	StatsMaxSamples int

	// LogTail is how many trailing lines a logs action replays before
	// following.
	LogTail int

	SessionTTL time.Duration

	AllowedOrigins []string
}

// Load reads configuration from environment variables. Secrets come from
// *_FILE variables pointing at files, so they can be mounted and rotated
// without touching the environment.
func Load() (*Config, error) {
	adminHash, err := readSecretFile("ADMIN_PASSWORD_HASH_FILE")
	if err != nil {
		return nil, err
	}
	githubToken, err := readSecretFile("GITHUB_TOKEN_FILE")
	if err != nil {
		return nil, err
	}

	cacheTTL, err := getDuration("REPO_CACHE_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	statsInterval, err := getDuration("STATS_INTERVAL", 5*time.Second)
	if err != nil {
		return nil, err
	}
	sessionTTL, err := getDuration("SESSION_TTL", 12*time.Hour)
	if err != nil {
		return nil, err
	}
	statsMax, err := getInt("STATS_MAX_SAMPLES", 5000)
	if err != nil {
		return nil, err
	}
	logTail, err := getInt("LOG_TAIL", 100)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8123"),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
		TLSCertFile: getEnv("TLS_CERT_FILE", "certs/cert.pem"),
		TLSKeyFile:  getEnv("TLS_KEY_FILE", "certs/key.pem"),

		DeployRoot: getEnv("DEPLOY_ROOT", "/var/deploy"),

		AdminPasswordHash: adminHash,
		GitHubToken:       githubToken,

		RepoCacheFile: getEnv("REPO_CACHE_FILE", "repo_cache.json"),
		RepoCacheTTL:  cacheTTL,

		StatsFile:       getEnv("STATS_FILE", "system_stats.log"),
		StatsInterval:   statsInterval,
		StatsMaxSamples: statsMax,

		LogTail: logTail,

		SessionTTL: sessionTTL,

		AllowedOrigins: parseAllowedOrigins(os.Getenv("ALLOWED_ORIGINS")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present.
func (cfg *Config) Validate() error {
	if cfg.AdminPasswordHash == "" {
		return fmt.Errorf("admin password hash is required")
	}
	if cfg.GitHubToken == "" {
		return fmt.Errorf("github token is required")
	}
	if cfg.DeployRoot == "" {
		return fmt.Errorf("deploy root is required")
	}
	return nil
}

// SecretFiles lists the files the reloader watches for rotation.
func SecretFiles() []string {
	var files []string
	for _, key := range []string{"ADMIN_PASSWORD_HASH_FILE", "GITHUB_TOKEN_FILE"} {
		if v := os.Getenv(key); v != "" {
			files = append(files, v)
		}
	}
	return files
}

func readSecretFile(key string) (string, error) {
	path := os.Getenv(key)
	if path == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	secret := strings.TrimSpace(string(data))
	if secret == "" {
		return "", fmt.Errorf("%s points at an empty file", key)
	}
	return secret, nil
}

// getEnv retrieves an environment variable with a fallback default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

// parseAllowedOrigins parses a comma-separated origin list. The console is
// same-origin by default, so an empty value allows nothing extra.
func parseAllowedOrigins(originsEnv string) []string {
	if originsEnv == "" {
		return nil
	}
	origins := strings.Split(originsEnv, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return origins
}
