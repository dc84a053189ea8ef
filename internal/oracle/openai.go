package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"plainview/internal/logging"
	"plainview/internal/model"
)

// OpenAI is an oracle backed by the Chat Completions API. Temperature
// is pinned to zero; segmentation should be as boring as possible.
type OpenAI struct {
	client *openai.Client
	cfg    model.OracleConfig
	log    *slog.Logger
}

// NewOpenAI creates an OpenAI oracle. The API key comes from the config
// or the OPENAI_API_KEY environment variable.
func NewOpenAI(cfg model.OracleConfig) (*OpenAI, error) {
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}
	if key == "" {
		return nil, fmt.Errorf("OpenAI API key is required (set OPENAI_API_KEY)")
	}

	clientConfig := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
		log:    logging.New("oracle.openai"),
	}, nil
}

func (p *OpenAI) Name() string { return "openai" }

// IsAvailable checks the API with a lightweight model listing.
func (p *OpenAI) IsAvailable(ctx context.Context) bool {
	_, err := p.client.ListModels(ctx)
	if err != nil {
		p.log.Warn("availability check failed", "error", err)
		return false
	}
	return true
}

// Decompose asks the model for a segmentation and parses the JSON
// array out of the reply. Transient failures retry with backoff up to
// the configured limit.
func (p *OpenAI) Decompose(ctx context.Context, narrative string) (*Proposal, error) {
	modelName := p.cfg.Model
	if modelName == "" {
		modelName = openai.GPT4oMini
	}
	timeout := p.cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	req := openai.ChatCompletionRequest{
		Model: modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: decomposeSystem},
			{Role: openai.ChatMessageRoleUser, Content: decomposePrompt(narrative)},
		},
		Temperature: 0,
	}

	var lastErr error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
			p.log.Debug("retrying decomposition", "attempt", attempt)
		}

		callCtx, cancel := context.WithTimeout(ctx, timeout)
		resp, err := p.client.CreateChatCompletion(callCtx, req)
		cancel()
		if err != nil {
			lastErr = fmt.Errorf("openai api: %w", err)
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("openai api: empty response")
			continue
		}
		proposal, err := parseProposal(strings.TrimSpace(resp.Choices[0].Message.Content))
		if err != nil {
			lastErr = err
			continue
		}
		return proposal, nil
	}
	return nil, lastErr
}
