package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/arix-mart/backend/internal/config"
	"github.com/zhouzirui/arix-mart/backend/internal/metrics"
	"github.com/zhouzirui/arix-mart/backend/internal/model/persona"
)

var (
	ErrNotConfigured = errors.New("completion client not configured")
	ErrEmptyReply    = errors.New("completion returned no choices")
)

// Completer sends one prompt to the remote model and returns its reply.
type Completer interface {
	Complete(ctx context.Context, userText string) (string, error)
}

// Client wraps the remote completion endpoint. Each call is a two-message
// exchange: the fixed system instruction followed by the user's text.
type Client struct {
	chain     compose.Runnable[map[string]any, *schema.Message]
	system    string
	modelName string
	initErr   error
}

// NewClient compiles the prompt chain around chatModel.
func NewClient(ctx context.Context, chatModel model.ChatModel, systemPrompt, modelName string) (*Client, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile completion chain: %w", err)
	}

	return &Client{
		chain:     runnable,
		system:    systemPrompt,
		modelName: modelName,
	}, nil
}

// NewClientFromConfig always returns a usable client. A missing or invalid
// credential does not fail startup; every Complete call reports it instead.
func NewClientFromConfig(ctx context.Context, cfg config.AIConfig, profile persona.Persona) *Client {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("completion model unavailable, replies will carry the error")
		return Unavailable(err)
	}

	client, err := NewClient(ctx, chatModel, SystemPrompt(profile), cfg.Model)
	if err != nil {
		log.Warn().Err(err).Msg("completion chain unavailable, replies will carry the error")
		return Unavailable(err)
	}

	log.Info().Str("model", cfg.Model).Str("base_url", cfg.BaseURL).Msg("completion client initialized")
	return client
}

// Unavailable returns a client whose every call fails with cause.
func Unavailable(cause error) *Client {
	return &Client{initErr: cause}
}

// ForProfile returns a client sharing the chain but speaking with another
// profile's system instruction.
func (c *Client) ForProfile(profile persona.Persona) *Client {
	bound := *c
	bound.system = SystemPrompt(profile)
	return &bound
}

// Complete returns the first choice's text verbatim.
func (c *Client) Complete(ctx context.Context, userText string) (string, error) {
	if c.initErr != nil {
		return "", fmt.Errorf("%w: %w", ErrNotConfigured, c.initErr)
	}

	opts := []model.Option{
		model.WithTemperature(float32(config.Temperature)),
		model.WithMaxTokens(config.MaxTokens),
	}
	if c.modelName != "" {
		opts = append(opts, model.WithModel(c.modelName))
	}

	start := time.Now()
	response, err := c.chain.Invoke(ctx, map[string]any{
		"system": c.system,
		"query":  userText,
	}, compose.WithChatModelOption(opts...))
	metrics.CompletionDuration.Observe(time.Since(start).Seconds())

	if err == nil && response == nil {
		err = ErrEmptyReply
	}
	if err != nil {
		metrics.CompletionsTotal.WithLabelValues("error").Inc()
		return "", err
	}

	metrics.CompletionsTotal.WithLabelValues("ok").Inc()
	log.Debug().Int("length", len(response.Content)).Dur("latency", time.Since(start)).Msg("completion received")
	return response.Content, nil
}
