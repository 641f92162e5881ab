package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/ternarybob/placefinder/internal/common"
	"github.com/ternarybob/placefinder/internal/interfaces"
)

// ProviderType represents the AI provider type
type ProviderType string

const (
	// ProviderGemini uses Google Gemini API
	ProviderGemini ProviderType = "gemini"
	// ProviderClaude uses Anthropic Claude API
	ProviderClaude ProviderType = "claude"
)

// ContentRequest represents a provider-agnostic single-turn request
type ContentRequest struct {
	Prompt            string
	SystemInstruction string
	Model             string
	Temperature       float32
	MaxTokens         int
}

// ContentResponse represents a provider-agnostic response
type ContentResponse struct {
	Text     string
	Provider ProviderType
	Model    string
}

// Provider generates text with one backend
type Provider interface {
	GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error)
	GetProviderType() ProviderType
}

// ProviderFactory creates providers on first use and implements Summarizer over the default one
type ProviderFactory struct {
	geminiConfig *common.GeminiConfig
	claudeConfig *common.ClaudeConfig
	llmConfig    *common.LLMConfig
	kvStorage    interfaces.KeyValueStorage
	retry        *RetryConfig
	logger       arbor.ILogger

	mu        sync.Mutex
	providers map[ProviderType]Provider
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(
	geminiConfig *common.GeminiConfig,
	claudeConfig *common.ClaudeConfig,
	llmConfig *common.LLMConfig,
	kvStorage interfaces.KeyValueStorage,
	logger arbor.ILogger,
) *ProviderFactory {
	return &ProviderFactory{
		geminiConfig: geminiConfig,
		claudeConfig: claudeConfig,
		llmConfig:    llmConfig,
		kvStorage:    kvStorage,
		retry:        NewDefaultRetryConfig(),
		logger:       logger,
		providers:    make(map[ProviderType]Provider),
	}
}

// DetectProvider determines the provider from a model string such as
// "claude-haiku-3-5", "gemini/gemini-3-flash" or "" (configured default).
func (f *ProviderFactory) DetectProvider(model string) ProviderType {
	model = strings.ToLower(model)

	switch {
	case model == "":
		return ProviderType(f.llmConfig.DefaultProvider)
	case strings.HasPrefix(model, "claude/"), strings.HasPrefix(model, "anthropic/"), strings.HasPrefix(model, "claude-"):
		return ProviderClaude
	case strings.HasPrefix(model, "gemini/"), strings.HasPrefix(model, "google/"), strings.HasPrefix(model, "gemini-"):
		return ProviderGemini
	default:
		return ProviderType(f.llmConfig.DefaultProvider)
	}
}

// NormalizeModel removes a provider prefix from the model name
func (f *ProviderFactory) NormalizeModel(model string) string {
	prefixes := []string{"claude/", "anthropic/", "gemini/", "google/"}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToLower(model), prefix) {
			return model[len(prefix):]
		}
	}
	return model
}

// GenerateContent routes the request to the provider matching its model, retrying transient failures
func (f *ProviderFactory) GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error) {
	providerType := f.DetectProvider(request.Model)
	normalized := *request
	normalized.Model = f.NormalizeModel(request.Model)

	provider, err := f.getProvider(ctx, providerType)
	if err != nil {
		return nil, err
	}

	f.logger.Debug().
		Str("provider", string(providerType)).
		Str("model", normalized.Model).
		Int("prompt_len", len(normalized.Prompt)).
		Msg("Generating content with provider")

	var resp *ContentResponse
	var apiErr error
	for attempt := 0; attempt <= f.retry.MaxRetries; attempt++ {
		resp, apiErr = provider.GenerateContent(ctx, &normalized)
		if apiErr == nil {
			return resp, nil
		}
		if attempt == f.retry.MaxRetries {
			break
		}

		backoff := f.retry.CalculateBackoff(attempt, 0)
		if IsRateLimitError(apiErr) {
			backoff = f.retry.CalculateBackoff(attempt, ExtractRetryDelay(apiErr))
		}

		f.logger.Warn().
			Str("provider", string(providerType)).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(apiErr).
			Msg("Retrying LLM API call")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("%s API call failed after %d retries: %w", providerType, f.retry.MaxRetries, apiErr)
}

// Summarize answers a single prompt with the default provider, bounded by the provider timeout
func (f *ProviderFactory) Summarize(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	timeout := f.timeout(ProviderType(f.llmConfig.DefaultProvider))
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	resp, err := f.GenerateContent(ctx, &ContentRequest{
		Prompt:            userPrompt,
		SystemInstruction: systemPrompt,
	})
	if err != nil {
		return "", err
	}

	f.logger.Info().
		Str("provider", string(resp.Provider)).
		Str("model", resp.Model).
		Int("response_len", len(resp.Text)).
		Dur("duration", time.Since(start)).
		Msg("Summary generated")

	return resp.Text, nil
}

// Close drops cached provider clients
func (f *ProviderFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.providers = make(map[ProviderType]Provider)
	return nil
}

func (f *ProviderFactory) timeout(provider ProviderType) time.Duration {
	raw := f.geminiConfig.Timeout
	if provider == ProviderClaude {
		raw = f.claudeConfig.Timeout
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	return 2 * time.Minute
}

func (f *ProviderFactory) getProvider(ctx context.Context, providerType ProviderType) (Provider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if p, ok := f.providers[providerType]; ok {
		return p, nil
	}

	var p Provider
	switch providerType {
	case ProviderClaude:
		apiKey, err := common.ResolveAPIKey(ctx, f.kvStorage, "anthropic_api_key", f.claudeConfig.APIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve Anthropic API key: %w", err)
		}
		p = &claudeProvider{
			client: anthropic.NewClient(option.WithAPIKey(apiKey)),
			config: f.claudeConfig,
		}
	default:
		apiKey, err := common.ResolveAPIKey(ctx, f.kvStorage, "gemini_api_key", f.geminiConfig.APIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve Gemini API key: %w", err)
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		p = &geminiProvider{client: client, config: f.geminiConfig}
	}

	f.providers[providerType] = p
	return p, nil
}

type geminiProvider struct {
	client *genai.Client
	config *common.GeminiConfig
}

func (g *geminiProvider) GetProviderType() ProviderType { return ProviderGemini }

func (g *geminiProvider) GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error) {
	model := request.Model
	if model == "" {
		model = g.config.Model
	}

	temp := request.Temperature
	if temp <= 0 {
		temp = g.config.Temperature
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temp),
	}
	if request.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(request.SystemInstruction, genai.RoleUser)
	}

	contents := []*genai.Content{genai.NewContentFromText(request.Prompt, genai.RoleUser)}
	resp, err := g.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("empty response from Gemini API")
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("empty text in Gemini response")
	}

	return &ContentResponse{Text: text, Provider: ProviderGemini, Model: model}, nil
}

type claudeProvider struct {
	client anthropic.Client
	config *common.ClaudeConfig
}

func (c *claudeProvider) GetProviderType() ProviderType { return ProviderClaude }

func (c *claudeProvider) GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error) {
	model := request.Model
	if model == "" {
		model = c.config.Model
	}

	maxTokens := request.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.config.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(request.Prompt)),
		},
	}

	temp := request.Temperature
	if temp <= 0 {
		temp = c.config.Temperature
	}
	if temp > 0 {
		params.Temperature = anthropic.Float(float64(temp))
	}
	if request.SystemInstruction != "" {
		params.System = []anthropic.TextBlockParam{{Text: request.SystemInstruction}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("empty response from Claude API")
	}

	return &ContentResponse{Text: text.String(), Provider: ProviderClaude, Model: model}, nil
}
