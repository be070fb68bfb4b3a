package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// Environment variables the Bedrock adapter requires. The region variable is
// read too but has a default, so it is not part of the required set.
const (
	EnvAWSAccessKey = "AWS_ACCESS_KEY_ID"
	EnvAWSSecretKey = "AWS_SECRET_ACCESS_KEY"
	EnvAWSRegion    = "AWS_REGION"
)

// defaultBedrockSystem is the preamble applied when the caller supplies no
// system instruction of their own.
const defaultBedrockSystem = "Você é um assistente educacional especializado da plataforma IAprender, focado em ajudar professores e alunos brasileiros."

// BedrockProvider is the managed multi-model adapter. A single client serves
// several model families over the Bedrock runtime InvokeModel API, each with
// its own request and response body shape. Model IDs are dispatched on
// family-name fragments, so both bare names and full Bedrock IDs resolve.
type BedrockProvider struct {
	Base
	client *bedrockruntime.Client
	region string
}

// NewBedrock creates the Bedrock adapter. region defaults to us-east-1.
// When the standard AWS key pair is present in the environment it is pinned
// as a static credential; otherwise the default chain applies (profiles,
// instance roles).
func NewBedrock(ctx context.Context, region string) (*BedrockProvider, error) {
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if access, secret := os.Getenv(EnvAWSAccessKey), os.Getenv(EnvAWSSecretKey); access != "" && secret != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(access, secret, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &BedrockProvider{
		Base:   Base{name: "bedrock", apiKey: "", baseURL: ""},
		client: bedrockruntime.NewFromConfig(cfg),
		region: region,
	}, nil
}

// RequiredCredentials implements Provider.
func (p *BedrockProvider) RequiredCredentials() []string {
	return []string{EnvAWSAccessKey, EnvAWSSecretKey}
}

// BedrockModelFamily identifies which request body shape a model ID takes.
type BedrockModelFamily string

const (
	FamilyAnthropic BedrockModelFamily = "anthropic"
	FamilyTitan     BedrockModelFamily = "titan"
	FamilyLlama     BedrockModelFamily = "llama"
	FamilyJurassic  BedrockModelFamily = "jurassic"
)

// FamilyOf maps a model ID to its body-shape family by fragment match.
// Unrecognised IDs fall to the Anthropic family, which carries the default
// model for this adapter.
func FamilyOf(modelID string) BedrockModelFamily {
	id := strings.ToLower(modelID)
	switch {
	case strings.Contains(id, "claude"):
		return FamilyAnthropic
	case strings.Contains(id, "titan"):
		return FamilyTitan
	case strings.Contains(id, "llama"):
		return FamilyLlama
	case strings.Contains(id, "j2"):
		return FamilyJurassic
	default:
		return FamilyAnthropic
	}
}

// ── Anthropic Claude on Bedrock ───────────────────────────────────────────────

type bedrockClaudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type bedrockClaudeRequest struct {
	AnthropicVersion string                 `json:"anthropic_version"`
	MaxTokens        int                    `json:"max_tokens"`
	Temperature      float64                `json:"temperature"`
	System           string                 `json:"system"`
	Messages         []bedrockClaudeMessage `json:"messages"`
}

type bedrockClaudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// ── Amazon Titan ─────────────────────────────────────────────────────────────

type bedrockTitanConfig struct {
	MaxTokenCount int      `json:"maxTokenCount"`
	StopSequences []string `json:"stopSequences"`
	Temperature   float64  `json:"temperature"`
	TopP          float64  `json:"topP"`
}

type bedrockTitanRequest struct {
	InputText            string             `json:"inputText"`
	TextGenerationConfig bedrockTitanConfig `json:"textGenerationConfig"`
}

type bedrockTitanResponse struct {
	Results []struct {
		OutputText string `json:"outputText"`
	} `json:"results"`
}

// ── Meta Llama ────────────────────────────────────────────────────────────────

type bedrockLlamaRequest struct {
	Prompt      string  `json:"prompt"`
	MaxGenLen   int     `json:"max_gen_len"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

type bedrockLlamaResponse struct {
	Generation string `json:"generation"`
}

// ── AI21 Jurassic ─────────────────────────────────────────────────────────────

type bedrockJurassicPenalty struct {
	Scale float64 `json:"scale"`
}

type bedrockJurassicRequest struct {
	Prompt           string                 `json:"prompt"`
	MaxTokens        int                    `json:"maxTokens"`
	Temperature      float64                `json:"temperature"`
	TopP             float64                `json:"topP"`
	StopSequences    []string               `json:"stopSequences"`
	CountPenalty     bedrockJurassicPenalty `json:"countPenalty"`
	PresencePenalty  bedrockJurassicPenalty `json:"presencePenalty"`
	FrequencyPenalty bedrockJurassicPenalty `json:"frequencyPenalty"`
}

type bedrockJurassicResponse struct {
	Completions []struct {
		Data struct {
			Text string `json:"text"`
		} `json:"data"`
	} `json:"completions"`
}

// Invoke implements Provider. Bedrock serves chat only; the body shape and
// token accounting follow the model family. Claude reports exact usage,
// the rest fall back to a character-count estimate.
func (p *BedrockProvider) Invoke(ctx context.Context, req GenerationRequest, model string) (*GenerationResult, error) {
	if req.Operation != OpChat {
		return nil, Unsupported("bedrock adapter serves chat operations only")
	}

	switch FamilyOf(model) {
	case FamilyTitan:
		return p.invokeTitan(ctx, req, model)
	case FamilyLlama:
		return p.invokeLlama(ctx, req, model)
	case FamilyJurassic:
		return p.invokeJurassic(ctx, req, model)
	default:
		return p.invokeClaude(ctx, req, model)
	}
}

func (p *BedrockProvider) invoke(ctx context.Context, model string, body interface{}) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, Upstream(p.name, fmt.Errorf("marshal request: %w", err))
	}

	output, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        payload,
	})
	if err != nil {
		return nil, Upstream(p.name, fmt.Errorf("bedrock invoke failed: %w", err))
	}
	return output.Body, nil
}

func (p *BedrockProvider) invokeClaude(ctx context.Context, req GenerationRequest, model string) (*GenerationResult, error) {
	system := req.System
	if system == "" {
		system = defaultBedrockSystem
	}

	claudeReq := bedrockClaudeRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        maxTokensOrDefault(req, 2048),
		Temperature:      temperatureOrDefault(req, 0.7),
		System:           system,
		Messages: []bedrockClaudeMessage{
			{Role: RoleUser, Content: req.Prompt},
		},
	}

	raw, err := p.invoke(ctx, model, claudeReq)
	if err != nil {
		return nil, err
	}

	var resp bedrockClaudeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, Upstream(p.name, fmt.Errorf("unmarshal response: %w", err))
	}

	var content strings.Builder
	for _, c := range resp.Content {
		if c.Type == ContentTypeText {
			content.WriteString(c.Text)
		}
	}

	return &GenerationResult{
		Content:     content.String(),
		TokensUsed:  resp.Usage.InputTokens + resp.Usage.OutputTokens,
		TokensExact: true,
		Provider:    p.name,
		Model:       model,
	}, nil
}

func (p *BedrockProvider) invokeTitan(ctx context.Context, req GenerationRequest, model string) (*GenerationResult, error) {
	titanReq := bedrockTitanRequest{
		InputText: req.Prompt,
		TextGenerationConfig: bedrockTitanConfig{
			MaxTokenCount: maxTokensOrDefault(req, 2048),
			StopSequences: []string{},
			Temperature:   temperatureOrDefault(req, 0.7),
			TopP:          0.9,
		},
	}

	raw, err := p.invoke(ctx, model, titanReq)
	if err != nil {
		return nil, err
	}

	var resp bedrockTitanResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, Upstream(p.name, fmt.Errorf("unmarshal response: %w", err))
	}
	if len(resp.Results) == 0 {
		return nil, Upstream(p.name, errNoChoices)
	}

	content := resp.Results[0].OutputText
	return &GenerationResult{
		Content:     content,
		TokensUsed:  EstimateTokens(req.Prompt, content),
		TokensExact: false,
		Provider:    p.name,
		Model:       model,
	}, nil
}

func (p *BedrockProvider) invokeLlama(ctx context.Context, req GenerationRequest, model string) (*GenerationResult, error) {
	llamaReq := bedrockLlamaRequest{
		Prompt:      req.Prompt,
		MaxGenLen:   maxTokensOrDefault(req, 2048),
		Temperature: temperatureOrDefault(req, 0.7),
		TopP:        0.9,
	}

	raw, err := p.invoke(ctx, model, llamaReq)
	if err != nil {
		return nil, err
	}

	var resp bedrockLlamaResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, Upstream(p.name, fmt.Errorf("unmarshal response: %w", err))
	}

	return &GenerationResult{
		Content:     resp.Generation,
		TokensUsed:  EstimateTokens(req.Prompt, resp.Generation),
		TokensExact: false,
		Provider:    p.name,
		Model:       model,
	}, nil
}

func (p *BedrockProvider) invokeJurassic(ctx context.Context, req GenerationRequest, model string) (*GenerationResult, error) {
	jurassicReq := bedrockJurassicRequest{
		Prompt:           req.Prompt,
		MaxTokens:        maxTokensOrDefault(req, 2048),
		Temperature:      temperatureOrDefault(req, 0.7),
		TopP:             0.9,
		StopSequences:    []string{},
		CountPenalty:     bedrockJurassicPenalty{Scale: 0},
		PresencePenalty:  bedrockJurassicPenalty{Scale: 0},
		FrequencyPenalty: bedrockJurassicPenalty{Scale: 0},
	}

	raw, err := p.invoke(ctx, model, jurassicReq)
	if err != nil {
		return nil, err
	}

	var resp bedrockJurassicResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, Upstream(p.name, fmt.Errorf("unmarshal response: %w", err))
	}
	if len(resp.Completions) == 0 {
		return nil, Upstream(p.name, errNoChoices)
	}

	content := resp.Completions[0].Data.Text
	return &GenerationResult{
		Content:     content,
		TokensUsed:  EstimateTokens(req.Prompt, content),
		TokensExact: false,
		Provider:    p.name,
		Model:       model,
	}, nil
}

func maxTokensOrDefault(req GenerationRequest, def int) int {
	if req.MaxTokens != nil {
		return *req.MaxTokens
	}
	return def
}

func temperatureOrDefault(req GenerationRequest, def float64) float64 {
	if req.Temperature != nil {
		return *req.Temperature
	}
	return def
}
