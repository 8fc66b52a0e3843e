package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/bryanwahyu/policy-analyzer/internal/domain/ai"
	"github.com/bryanwahyu/policy-analyzer/internal/domain/analyses"
	"github.com/bryanwahyu/policy-analyzer/internal/infra/ai/prompt"
)

const (
	defaultModel     = "gpt-4o-mini"
	defaultMaxTokens = 4096
	defaultTimeout   = 90 * time.Second
)

// Config for the chat completion client.
type Config struct {
	APIKey    string
	BaseURL   string // default https://api.openai.com/v1
	Model     string
	MaxTokens int
	Timeout   time.Duration // per call
}

// Client implements ai.Requester on top of the chat completions API.
type Client struct {
	api       *openai.Client
	model     string
	maxTokens int
	timeout   time.Duration
	log       *zap.Logger
}

var _ ai.Requester = (*Client)(nil)

// NewClient fails with ai.ErrMissingCredentials when no API key is set.
func NewClient(cfg Config, log *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ai.ErrMissingCredentials
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	return &Client{
		api:       openai.NewClientWithConfig(oc),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
		log:       log.Named("openai"),
	}, nil
}

func (c *Client) StructurePolicy(ctx context.Context, rawText string) (analyses.PolicyData, error) {
	var out analyses.PolicyData
	err := c.complete(ctx, "structure_policy",
		prompt.StructureSystemPrompt(),
		prompt.StructureUserPrompt(rawText),
		prompt.PolicyDataSchema, &out)
	if err != nil {
		return analyses.PolicyData{}, err
	}
	out.Normalize()
	return out, nil
}

func (c *Client) AnalyzeCoverage(ctx context.Context, policy analyses.PolicyData, lossDescription, jurisdiction string) (analyses.CoverageAnalysis, error) {
	var out analyses.CoverageAnalysis
	err := c.complete(ctx, "analyze_coverage",
		prompt.CoverageSystemPrompt(),
		prompt.CoverageUserPrompt(policy, lossDescription, jurisdiction),
		prompt.CoverageAnalysisSchema, &out)
	if err != nil {
		return analyses.CoverageAnalysis{}, err
	}
	out.Normalize()
	return out, nil
}

func (c *Client) AnalyzeUnderpayment(ctx context.Context, policy analyses.PolicyData, lossDescription, carrierEstimate string) (analyses.UnderpaymentRisk, error) {
	var out analyses.UnderpaymentRisk
	err := c.complete(ctx, "analyze_underpayment",
		prompt.UnderpaymentSystemPrompt(),
		prompt.UnderpaymentUserPrompt(policy, lossDescription, carrierEstimate),
		prompt.UnderpaymentRiskSchema, &out)
	if err != nil {
		return analyses.UnderpaymentRisk{}, err
	}
	out.Normalize()
	return out, nil
}

// complete submits one prompt in JSON mode and decodes the validated reply into out.
func (c *Client) complete(ctx context.Context, op, system, user string, schema *jsonschema.Schema, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: c.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if isReasoningModel(c.model) {
		req.MaxCompletionTokens = c.maxTokens
	} else {
		req.MaxTokens = c.maxTokens
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		c.log.Warn("chat completion failed",
			zap.String("op", op),
			zap.String("model", c.model),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return classify(err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("%w: no choices in response", ai.ErrMalformedReply)
	}

	content := stripCodeFence(resp.Choices[0].Message.Content)
	if err := prompt.Validate(schema, []byte(content)); err != nil {
		c.log.Warn("chat completion reply rejected",
			zap.String("op", op),
			zap.Int("content_bytes", len(content)),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", ai.ErrMalformedReply, err)
	}
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("%w: decode reply: %v", ai.ErrMalformedReply, err)
	}

	c.log.Debug("chat completion ok",
		zap.String("op", op),
		zap.String("model", resp.Model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// classify maps go-openai errors onto the ai error classes.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return &ai.TransientError{StatusCode: apiErr.HTTPStatusCode, Err: errors.Join(ai.ErrQuotaExceeded, err)}
		}
		return &ai.TransientError{StatusCode: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusTooManyRequests {
			return &ai.TransientError{StatusCode: reqErr.HTTPStatusCode, Err: errors.Join(ai.ErrQuotaExceeded, err)}
		}
		return &ai.TransientError{StatusCode: reqErr.HTTPStatusCode, Err: err}
	}
	return &ai.TransientError{Err: err}
}

func isReasoningModel(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

// stripCodeFence removes a ```json ... ``` wrapper some models add despite JSON mode.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
