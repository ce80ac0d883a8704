package cbe

import "net/http"

type Option func(p *Provider)

// WithHTTPClient specifies the HTTP client used for page fetches
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		p.client = client
	}
}
