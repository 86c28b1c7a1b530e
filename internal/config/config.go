package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every tunable of the service.
type Config struct {
	Server   ServerConfig
	AI       AIConfig
	Pipeline PipelineConfig
	Safety   SafetyConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	pipeline, err := loadPipelineConfig()
	if err != nil {
		return nil, err
	}

	safety, err := loadSafetyConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Pipeline: pipeline, Safety: safety}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" as-is.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig describes the text-generation provider.
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled reports whether the required credentials are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds a chat model instance from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("generation credentials missing: provide ARK_API_KEY + ARK_MODEL or an AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// PipelineConfig bounds the per-turn state machine.
type PipelineConfig struct {
	MaxAttempts   int
	SoftTimeout   time.Duration
	HardTimeout   time.Duration
	SessionTTL    time.Duration
	MaxQueryRunes int
}

func loadPipelineConfig() (PipelineConfig, error) {
	maxAttempts, err := parseIntEnv("PIPELINE_MAX_ATTEMPTS", 3)
	if err != nil {
		return PipelineConfig{}, err
	}
	if maxAttempts < 1 {
		return PipelineConfig{}, fmt.Errorf("PIPELINE_MAX_ATTEMPTS must be at least 1, got %d", maxAttempts)
	}

	softMs, err := parseIntEnv("PIPELINE_SOFT_TIMEOUT_MS", 5000)
	if err != nil {
		return PipelineConfig{}, err
	}

	hardMs, err := parseIntEnv("PIPELINE_HARD_TIMEOUT_MS", 10000)
	if err != nil {
		return PipelineConfig{}, err
	}
	if hardMs < softMs {
		return PipelineConfig{}, fmt.Errorf("PIPELINE_HARD_TIMEOUT_MS (%d) must not be below PIPELINE_SOFT_TIMEOUT_MS (%d)", hardMs, softMs)
	}

	ttlMinutes, err := parseIntEnv("SESSION_TTL_MINUTES", 30)
	if err != nil {
		return PipelineConfig{}, err
	}

	maxRunes, err := parseIntEnv("QUERY_MAX_RUNES", 2000)
	if err != nil {
		return PipelineConfig{}, err
	}

	return PipelineConfig{
		MaxAttempts:   maxAttempts,
		SoftTimeout:   time.Duration(softMs) * time.Millisecond,
		HardTimeout:   time.Duration(hardMs) * time.Millisecond,
		SessionTTL:    time.Duration(ttlMinutes) * time.Minute,
		MaxQueryRunes: maxRunes,
	}, nil
}

// SafetyConfig holds the decision thresholds of the detector and filter.
// The defaults are starting points, not vetted clinical policy; deployments
// are expected to tune them.
type SafetyConfig struct {
	EmergencyThreshold float64
	MaxGradeLevel      float64
	MediumLimit        int
}

func loadSafetyConfig() (SafetyConfig, error) {
	threshold, err := parseFloatEnv("EMERGENCY_CONFIDENCE_THRESHOLD", 0.6)
	if err != nil {
		return SafetyConfig{}, err
	}
	if threshold < 0 || threshold > 1 {
		return SafetyConfig{}, fmt.Errorf("EMERGENCY_CONFIDENCE_THRESHOLD must be within [0,1], got %v", threshold)
	}

	maxGrade, err := parseFloatEnv("SAFETY_MAX_GRADE_LEVEL", 9.0)
	if err != nil {
		return SafetyConfig{}, err
	}

	mediumLimit, err := parseIntEnv("SAFETY_MEDIUM_LIMIT", 2)
	if err != nil {
		return SafetyConfig{}, err
	}
	if mediumLimit < 1 {
		return SafetyConfig{}, fmt.Errorf("SAFETY_MEDIUM_LIMIT must be at least 1, got %d", mediumLimit)
	}

	return SafetyConfig{
		EmergencyThreshold: threshold,
		MaxGradeLevel:      maxGrade,
		MediumLimit:        mediumLimit,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseFloatEnv(key string, defaultValue float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
