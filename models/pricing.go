package models

// ModelPricing holds USD prices per 1000 tokens for one model.
type ModelPricing struct {
	InputPer1K  float64 `json:"inputPer1k"`
	OutputPer1K float64 `json:"outputPer1k"`
}

// tokenPricing maps provider -> model -> per-1K-token USD prices. Models
// absent from the table bill at zero; the row is still written so the raw
// token counts stay auditable.
var tokenPricing = map[string]map[string]ModelPricing{
	"openai": {
		"gpt-4o":      {InputPer1K: 0.005, OutputPer1K: 0.015},
		"gpt-4o-mini": {InputPer1K: 0.00015, OutputPer1K: 0.0006},
		// Per image, not per token.
		"dall-e-3": {InputPer1K: 0.04, OutputPer1K: 0.08},
	},
	"anthropic": {
		"claude-3-5-sonnet-20241022": {InputPer1K: 0.003, OutputPer1K: 0.015},
		"claude-3-haiku-20240307":    {InputPer1K: 0.00025, OutputPer1K: 0.00125},
	},
	"perplexity": {
		"llama-3.1-sonar-small-128k-online": {InputPer1K: 0.0002, OutputPer1K: 0.0002},
		"llama-3.1-sonar-large-128k-online": {InputPer1K: 0.001, OutputPer1K: 0.001},
	},
	"bedrock": {
		"anthropic.claude-3-5-sonnet-20241022-v2:0": {InputPer1K: 0.003, OutputPer1K: 0.015},
		"anthropic.claude-3-haiku-20240307-v1:0":    {InputPer1K: 0.00025, OutputPer1K: 0.00125},
		"amazon.titan-text-lite-v1":                 {InputPer1K: 0.0003, OutputPer1K: 0.0004},
		"amazon.titan-text-express-v1":              {InputPer1K: 0.0013, OutputPer1K: 0.0017},
		"meta.llama2-13b-chat-v1":                   {InputPer1K: 0.00075, OutputPer1K: 0.001},
		"meta.llama2-70b-chat-v1":                   {InputPer1K: 0.00195, OutputPer1K: 0.00256},
		"ai21.j2-mid-v1":                            {InputPer1K: 0.0125, OutputPer1K: 0.0125},
		"ai21.j2-ultra-v1":                          {InputPer1K: 0.0188, OutputPer1K: 0.0188},
	},
}

// PricingFor returns the price row for a provider/model pair, if priced.
func PricingFor(provider, model string) (ModelPricing, bool) {
	p, ok := tokenPricing[provider][model]
	return p, ok
}

// Cost computes the USD cost of one exchange. Unpriced models cost zero.
func Cost(provider, model string, inputTokens, outputTokens int) float64 {
	p, ok := PricingFor(provider, model)
	if !ok {
		return 0
	}
	return float64(inputTokens)/1000*p.InputPer1K + float64(outputTokens)/1000*p.OutputPer1K
}

// CostForTotal prices an exchange where only a combined token figure is
// known: the whole total is billed at the input rate, matching how the
// ledger treated unsplit counts historically.
func CostForTotal(provider, model string, totalTokens int) float64 {
	return Cost(provider, model, totalTokens, 0)
}
