package googleai

import (
	"net/http"
)

// Options is a set of options for the GoogleAI client.
type Options struct {
	DefaultModel       string
	DefaultTemperature float64
	APIKey             string
	HTTPClient         *http.Client
}

func DefaultOptions() Options {
	return Options{
		DefaultModel:       "gemini-2.0-flash",
		DefaultTemperature: 0.2,
	}
}

type Option func(*Options)

// WithAPIKey passes the API KEY (token) to the client.
func WithAPIKey(apiKey string) Option {
	return func(opts *Options) {
		opts.APIKey = apiKey
	}
}

// WithHTTPClient uses the provided HTTP client to make requests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(opts *Options) {
		opts.HTTPClient = httpClient
	}
}

// WithDefaultModel passes a default content model name to the client.
func WithDefaultModel(defaultModel string) Option {
	return func(opts *Options) {
		if defaultModel != "" {
			opts.DefaultModel = defaultModel
		}
	}
}

// WithDefaultTemperature sets the sampling temperature for the model.
func WithDefaultTemperature(t float64) Option {
	return func(opts *Options) {
		if t != 0 {
			opts.DefaultTemperature = t
		}
	}
}
