package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port            int
	Address         string
	LibraryRoot     string
	SourceCodec     string
	FFprobePath     string
	ProbeTimeout    time.Duration
	MaxUploadSizeGB int
	StagingDir      string
	DataDir         string
	StrictSubmit    bool
	VerifyUploads   bool
	LogLevel        string
}

func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("PORT", "8000"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid PORT: %d out of range", port)
	}

	maxUploadSizeGB, err := strconv.Atoi(getEnv("MAX_UPLOAD_SIZE_GB", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_SIZE_GB: %w", err)
	}
	if maxUploadSizeGB <= 0 {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_SIZE_GB: must be positive")
	}

	probeTimeout, err := time.ParseDuration(getEnv("PROBE_TIMEOUT", "2m"))
	if err != nil {
		return nil, fmt.Errorf("invalid PROBE_TIMEOUT: %w", err)
	}

	strictSubmit, err := strconv.ParseBool(getEnv("STRICT_SUBMIT", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid STRICT_SUBMIT: %w", err)
	}

	verifyUploads, err := strconv.ParseBool(getEnv("VERIFY_UPLOADS", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid VERIFY_UPLOADS: %w", err)
	}

	sourceCodec := strings.ToLower(strings.TrimSpace(getEnv("SOURCE_CODEC", "h264")))
	if sourceCodec == "" {
		return nil, fmt.Errorf("SOURCE_CODEC must not be empty")
	}

	return &Config{
		Port:            port,
		Address:         getEnv("ADDRESS", "0.0.0.0"),
		LibraryRoot:     os.Getenv("LIBRARY_ROOT"),
		SourceCodec:     sourceCodec,
		FFprobePath:     getEnv("FFPROBE_PATH", "ffprobe"),
		ProbeTimeout:    probeTimeout,
		MaxUploadSizeGB: maxUploadSizeGB,
		StagingDir:      getEnv("STAGING_DIR", filepath.Join(os.TempDir(), "reencoder")),
		DataDir:         os.Getenv("DATA_DIR"),
		StrictSubmit:    strictSubmit,
		VerifyUploads:   verifyUploads,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}, nil
}

func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Address, c.Port)
}

func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadSizeGB) << 30
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
