package providers

// Base provides the common fields shared by REST-based adapter
// implementations. Embed it to avoid repeating name, apiKey, and baseURL
// handling across adapters.
type Base struct {
	name    string
	apiKey  string
	baseURL string
}

// Name returns the provider name.
func (b *Base) Name() string { return b.name }

// BaseURL returns the provider base URL.
func (b *Base) BaseURL() string { return b.baseURL }
