package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"plainview/internal/logging"
	"plainview/internal/model"
)

// Ollama is an oracle backed by a local Ollama server.
type Ollama struct {
	baseURL    string
	httpClient *http.Client
	cfg        model.OracleConfig
	log        *slog.Logger
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type ollamaError struct {
	Error string `json:"error"`
}

// NewOllama creates an Ollama oracle against the configured base URL,
// defaulting to the standard local port.
func NewOllama(cfg model.OracleConfig) (*Ollama, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("ollama model must be specified (e.g. llama3.1:8b)")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Ollama{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
		log:        logging.New("oracle.ollama"),
	}, nil
}

func (p *Ollama) Name() string { return "ollama" }

// IsAvailable checks that the server answers its tag listing.
func (p *Ollama) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.log.Warn("availability check failed", "base_url", p.baseURL, "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}

// Decompose sends a single non-streaming generate call and parses the
// JSON array out of the completion.
func (p *Ollama) Decompose(ctx context.Context, narrative string) (*Proposal, error) {
	body, err := json.Marshal(ollamaRequest{
		Model:   p.cfg.Model,
		Prompt:  decomposePrompt(narrative),
		System:  decomposeSystem,
		Stream:  false,
		Options: ollamaOptions{Temperature: 0},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama api: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read ollama response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr ollamaError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("ollama api: %s", apiErr.Error)
		}
		return nil, fmt.Errorf("ollama api: HTTP %d", resp.StatusCode)
	}

	var out ollamaResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse ollama envelope: %w", err)
	}
	return parseProposal(strings.TrimSpace(out.Response))
}
