package providers

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// EnvOpenAIKey is the environment variable carrying the OpenAI API key.
const EnvOpenAIKey = "OPENAI_API_KEY"

// OpenAIProvider is the chat-completion adapter. It serves text chat through
// the Chat Completions API and image generation through DALL-E. Token counts
// come straight from the backend's usage field and are always exact.
type OpenAIProvider struct {
	Base
	client openai.Client
}

// NewOpenAI creates the OpenAI adapter. The optional baseURL parameter allows
// overriding the API endpoint (pass "" for the default); tests point it at a
// local stub server.
func NewOpenAI(apiKey string, baseURL string) (*OpenAIProvider, error) {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	resolvedBase := "https://api.openai.com"
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
		resolvedBase = baseURL
	}
	client := openai.NewClient(opts...)
	return &OpenAIProvider{
		Base:   Base{name: "openai", apiKey: apiKey, baseURL: resolvedBase},
		client: client,
	}, nil
}

// RequiredCredentials implements Provider.
func (p *OpenAIProvider) RequiredCredentials() []string {
	return []string{EnvOpenAIKey}
}

// Invoke implements Provider. OpenAI serves chat and image generation.
func (p *OpenAIProvider) Invoke(ctx context.Context, req GenerationRequest, model string) (*GenerationResult, error) {
	switch req.Operation {
	case OpChat:
		return p.chat(ctx, req, model)
	case OpImage:
		return p.generateImage(ctx, req, model)
	default:
		return nil, Unsupported(
			"openai adapter serves chat and image operations only")
	}
}

func (p *OpenAIProvider) chat(ctx context.Context, req GenerationRequest, model string) (*GenerationResult, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    model,
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxTokens != nil {
		params.MaxTokens = openai.Int(int64(*req.MaxTokens))
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, Upstream(p.name, err)
	}
	if len(completion.Choices) == 0 {
		return nil, Upstream(p.name, errNoChoices)
	}

	return &GenerationResult{
		Content:     completion.Choices[0].Message.Content,
		TokensUsed:  int(completion.Usage.PromptTokens + completion.Usage.CompletionTokens),
		TokensExact: true,
		Provider:    p.name,
		Model:       completion.Model,
	}, nil
}

func (p *OpenAIProvider) generateImage(ctx context.Context, req GenerationRequest, model string) (*GenerationResult, error) {
	params := openai.ImageGenerateParams{
		Prompt:         req.Prompt,
		Model:          openai.ImageModel(model),
		ResponseFormat: openai.ImageGenerateParamsResponseFormatURL,
	}
	if req.ImageCount != nil {
		params.N = openai.Int(int64(*req.ImageCount))
	}
	if req.ImageSize != "" {
		params.Size = openai.ImageGenerateParamsSize(req.ImageSize)
	}
	if req.ImageQuality != "" {
		params.Quality = openai.ImageGenerateParamsQuality(req.ImageQuality)
	}

	result, err := p.client.Images.Generate(ctx, params)
	if err != nil {
		return nil, Upstream(p.name, err)
	}

	images := make([]GeneratedImage, len(result.Data))
	for i, d := range result.Data {
		images[i] = GeneratedImage{
			URL:           d.URL,
			B64JSON:       d.B64JSON,
			RevisedPrompt: d.RevisedPrompt,
		}
	}

	// The image API reports no token usage; the ledger still gets a row so
	// the exchange is billable, with a zero, non-exact token figure.
	return &GenerationResult{
		Images:      images,
		TokensUsed:  0,
		TokensExact: false,
		Provider:    p.name,
		Model:       model,
	}, nil
}
