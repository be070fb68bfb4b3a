package providers

// EstimateTokens approximates token consumption for backends that do not
// report usage: ceil((promptChars + responseChars) / 4), the fixed
// four-characters-per-token heuristic. Results carrying this figure must set
// TokensExact to false.
func EstimateTokens(prompt, response string) int {
	return (len(prompt) + len(response) + 3) / 4
}
