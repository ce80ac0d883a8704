package frankfurter

import "net/http"

type Option func(p *Provider)

// WithHTTPClient specifies the HTTP client used for API calls
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		p.client = client
	}
}

// WithAPIKey specifies the API key sent with each request
func WithAPIKey(key string) Option {
	return func(p *Provider) {
		p.apiKey = key
	}
}
