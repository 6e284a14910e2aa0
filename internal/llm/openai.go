package llm

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"podcaster/internal/logging"
	"podcaster/internal/services"
)

// OpenAIClient implements Completer with the official openai-go SDK against
// any OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	cfg    Config
	client openai.Client
	logger *slog.Logger
}

// NewOpenAIClient constructs the SDK client. Extra request options are
// appended after the ones derived from cfg.
func NewOpenAIClient(cfg Config, logger *slog.Logger, extra ...option.RequestOption) *OpenAIClient {
	opts := []option.RequestOption{option.WithAPIKey(strings.TrimSpace(cfg.APIKey))}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	if cfg.TimeoutSeconds > 0 {
		opts = append(opts, option.WithRequestTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second))
	}
	opts = append(opts, extra...)
	return &OpenAIClient{
		cfg:    cfg,
		client: openai.NewClient(opts...),
		logger: logging.NewComponentLogger(logger, "llm"),
	}
}

// Complete sends prompt as a single user message and returns one unit per
// non-empty choice.
func (o *OpenAIClient) Complete(ctx context.Context, prompt, stop string) ([]TextUnit, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, services.Wrap(services.ErrValidation, "llm", "complete", "prompt required", nil)
	}
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(o.cfg.Model),
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		N:           openai.Int(1),
		Temperature: openai.Float(o.cfg.Temperature),
	}
	if stop != "" {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{OfString: openai.String(stop)}
	}
	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "llm", "complete", "openai", err)
	}
	units := make([]TextUnit, 0, len(resp.Choices))
	for _, choice := range resp.Choices {
		text := strings.TrimSpace(choice.Message.Content)
		if text == "" {
			continue
		}
		units = append(units, TextUnit{Text: text, FinishReason: string(choice.FinishReason)})
	}
	o.logger.Debug("completion received", logging.Int("units", len(units)), logging.String("model", o.cfg.Model))
	return units, nil
}

// HealthCheck issues a tiny JSON-only request.
func (o *OpenAIClient) HealthCheck(ctx context.Context) error {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You must respond with JSON only."),
			openai.UserMessage(`Respond with {"ok":true}`),
		},
	})
	if err != nil {
		return err
	}
	if len(resp.Choices) == 0 {
		return errors.New("llm health: empty choices")
	}
	return checkHealthPayload(resp.Choices[0].Message.Content)
}
