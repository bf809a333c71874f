package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

const (
	// DefaultModel is the completion model used when AI_MODEL is unset.
	DefaultModel = "openai/gpt-oss-120b"
	// DefaultBaseURL points at Groq's OpenAI-compatible endpoint.
	DefaultBaseURL = "https://api.groq.com/openai/v1"

	// Temperature and MaxTokens are the fixed generation parameters.
	Temperature = 0.4
	MaxTokens   = 400
)

// ErrMissingCredential reports that no API key was configured.
var ErrMissingCredential = errors.New("AI API key not configured, set GROQ_API_KEY")

// Config 聚合整个服务的配置项。
type Config struct {
	Server ServerConfig
	AI     AIConfig
	Chat   ChatConfig
	Log    LogConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	chat, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Chat: chat, Log: loadLogConfig()}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Region  string
	// RequestTimeout bounds one completion call. Zero waits indefinitely.
	RequestTimeout time.Duration
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.APIKey != "" && c.Model != ""
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, ErrMissingCredential
	}

	temperature := float32(Temperature)
	maxTokens := MaxTokens

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		Model:       c.Model,
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	timeout, err := parseDurationEnv("AI_REQUEST_TIMEOUT", 0)
	if err != nil {
		return AIConfig{}, err
	}
	if timeout < 0 {
		return AIConfig{}, fmt.Errorf("invalid AI_REQUEST_TIMEOUT value %q: must not be negative", timeout)
	}

	apiKey := strings.TrimSpace(os.Getenv("GROQ_API_KEY"))
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv("AI_API_KEY"))
	}

	return AIConfig{
		APIKey:         apiKey,
		Model:          getEnvOrDefault("AI_MODEL", DefaultModel),
		BaseURL:        getEnvOrDefault("AI_BASE_URL", DefaultBaseURL),
		Region:         strings.TrimSpace(os.Getenv("AI_REGION")),
		RequestTimeout: timeout,
	}, nil
}

// ChatConfig 描述聊天窗口行为。
type ChatConfig struct {
	PersonaID string
	Welcome   bool
	// EventBuffer is the per-listener event queue length.
	EventBuffer int
}

func loadChatConfig() (ChatConfig, error) {
	welcome, err := parseBoolEnv("CHAT_WELCOME", true)
	if err != nil {
		return ChatConfig{}, err
	}

	buffer := 64
	if override, err := parseOptionalIntEnv("CHAT_EVENT_BUFFER"); err != nil {
		return ChatConfig{}, err
	} else if override != nil {
		if *override < 1 {
			buffer = 1
		} else {
			buffer = *override
		}
	}

	return ChatConfig{
		PersonaID:   strings.TrimSpace(os.Getenv("CHAT_PERSONA")),
		Welcome:     welcome,
		EventBuffer: buffer,
	}, nil
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level string
	Env   string
	// File receives the terminal client's logs; the screen belongs to the UI.
	File string
}

// Development reports whether human-readable console logs are wanted.
func (c LogConfig) Development() bool {
	return c.Env == "" || c.Env == "development"
}

func loadLogConfig() LogConfig {
	return LogConfig{
		Level: strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))),
		Env:   getEnvOrDefault("ENV", "development"),
		File:  strings.TrimSpace(os.Getenv("LOG_FILE")),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
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

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	// Bare integers are seconds.
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}
