package scriptgen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	aoption "github.com/anthropics/anthropic-sdk-go/option"
	openai "github.com/openai/openai-go"
	ooption "github.com/openai/openai-go/option"
	oresponses "github.com/openai/openai-go/responses"
	oshared "github.com/openai/openai-go/shared"
)

// Provider types accepted by NewProvider.
const (
	ProviderOpenAI           = "openai"
	ProviderOpenAICompatible = "openai_compatible"
	ProviderAnthropic        = "anthropic"
)

const defaultMaxOutputTokens = 4096

// Request is one text-generation call.
type Request struct {
	Model       string
	System      string
	Prompt      string
	Temperature float64
}

// Provider performs a single text-generation call.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ErrMissingAPIKey is returned by NewProvider when no key is supplied.
var ErrMissingAPIKey = errors.New("missing provider api key")

// NewProvider builds the provider adapter for providerType. baseURL may be empty to
// use the vendor's default endpoint.
func NewProvider(providerType, baseURL, apiKey string) (Provider, error) {
	providerType = strings.ToLower(strings.TrimSpace(providerType))
	apiKey = strings.TrimSpace(apiKey)
	baseURL = strings.TrimSpace(baseURL)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	switch providerType {
	case ProviderOpenAI, ProviderOpenAICompatible:
		if providerType == ProviderOpenAICompatible && baseURL == "" {
			return nil, errors.New("openai_compatible provider requires a base url")
		}
		opts := []ooption.RequestOption{ooption.WithAPIKey(apiKey)}
		if baseURL != "" {
			opts = append(opts, ooption.WithBaseURL(baseURL))
		}
		return &openAIProvider{client: openai.NewClient(opts...)}, nil
	case ProviderAnthropic:
		opts := []aoption.RequestOption{aoption.WithAPIKey(apiKey)}
		if baseURL != "" {
			opts = append(opts, aoption.WithBaseURL(baseURL))
		}
		return &anthropicProvider{client: anthropic.NewClient(opts...)}, nil
	default:
		return nil, fmt.Errorf("unsupported provider type %q", providerType)
	}
}

// DefaultModel names the model used when none is configured.
func DefaultModel(providerType string) string {
	switch strings.ToLower(strings.TrimSpace(providerType)) {
	case ProviderAnthropic:
		return "claude-sonnet-4-5"
	default:
		return "gpt-4.1-mini"
	}
}

type openAIProvider struct {
	client openai.Client
}

func (p *openAIProvider) Complete(ctx context.Context, req Request) (string, error) {
	params := oresponses.ResponseNewParams{
		Model:           oshared.ResponsesModel(strings.TrimSpace(req.Model)),
		MaxOutputTokens: openai.Int(defaultMaxOutputTokens),
		Input:           oresponses.ResponseNewParamsInputUnion{OfString: openai.String(req.Prompt)},
		Temperature:     openai.Float(req.Temperature),
	}
	if strings.TrimSpace(req.System) != "" {
		params.Instructions = openai.String(strings.TrimSpace(req.System))
	}
	resp, err := p.client.Responses.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai responses: %w", err)
	}
	return extractOpenAIText(resp), nil
}

func extractOpenAIText(resp *oresponses.Response) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, item := range resp.Output {
		if strings.TrimSpace(item.Type) != "message" {
			continue
		}
		msg := item.AsMessage()
		for _, part := range msg.Content {
			if strings.TrimSpace(part.Type) != "output_text" {
				continue
			}
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

type anthropicProvider struct {
	client anthropic.Client
}

func (p *anthropicProvider) Complete(ctx context.Context, req Request) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(strings.TrimSpace(req.Model)),
		MaxTokens:   defaultMaxOutputTokens,
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt))},
		Temperature: anthropic.Float(req.Temperature),
	}
	if strings.TrimSpace(req.System) != "" {
		params.System = []anthropic.TextBlockParam{{Text: strings.TrimSpace(req.System)}}
	}
	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}
	var sb strings.Builder
	for _, block := range msg.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(text.Text)
		}
	}
	return sb.String(), nil
}
