package agent

import (
	"github.com/effective-security/x/configloader"
	"github.com/effective-security/x/values"
)

// RefreshPolicy controls when the tool catalog is re-fetched from the server.
type RefreshPolicy string

const (
	// RefreshPerQuery re-fetches the tool list on every query.
	RefreshPerQuery RefreshPolicy = "per_query"
	// RefreshPerSession fetches the tool list once and reuses it until the
	// session ends.
	RefreshPerSession RefreshPolicy = "per_session"
)

const (
	DefaultModel       = "gemini-2.0-flash"
	DefaultTemperature = 0.2
	// DefaultMaxToolCalls allows a single tool dispatch per query.
	DefaultMaxToolCalls = 1
	// DefaultMaxInlineResultSize caps the tool payload echoed back to the
	// model in the follow-up message.
	DefaultMaxInlineResultSize = 8192
	// DefaultSignatureLine is appended to the transcript after every tool
	// dispatch.
	DefaultSignatureLine = "this is Ujjwal's weather agent :)"

	// NoResponseText is returned when the model produces an empty turn.
	NoResponseText = "No response from Gemini"
)

// Config for the agent
type Config struct {
	// Model specifies the Gemini model name.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`
	// Temperature specifies the sampling temperature.
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	// MaxToolCallsPerQuery limits tool dispatches for one query.
	MaxToolCallsPerQuery int `json:"max_tool_calls_per_query,omitempty" yaml:"max_tool_calls_per_query,omitempty"`
	// MaxInlineResultSize truncates tool payloads reinjected into the chat.
	MaxInlineResultSize int `json:"max_inline_result_size,omitempty" yaml:"max_inline_result_size,omitempty"`
	// SignatureLine overrides the transcript branding line.
	SignatureLine string `json:"signature_line,omitempty" yaml:"signature_line,omitempty"`
	// CatalogRefresh specifies the catalog refresh policy.
	CatalogRefresh RefreshPolicy `json:"catalog_refresh,omitempty" yaml:"catalog_refresh,omitempty"`
}

// LoadConfig from file
func LoadConfig(file string) (*Config, error) {
	cfg := new(Config)
	if file == "" {
		return cfg.WithDefaults(), nil
	}

	err := configloader.UnmarshalAndExpand(file, cfg)
	if err != nil {
		return nil, err
	}
	return cfg.WithDefaults(), nil
}

// WithDefaults fills unset fields and returns the receiver.
func (c *Config) WithDefaults() *Config {
	c.Model = values.StringsCoalesce(c.Model, DefaultModel)
	c.Temperature = values.Select(c.Temperature != 0, c.Temperature, DefaultTemperature)
	c.MaxToolCallsPerQuery = values.NumbersCoalesce(c.MaxToolCallsPerQuery, DefaultMaxToolCalls)
	c.MaxInlineResultSize = values.NumbersCoalesce(c.MaxInlineResultSize, DefaultMaxInlineResultSize)
	c.SignatureLine = values.StringsCoalesce(c.SignatureLine, DefaultSignatureLine)
	if c.CatalogRefresh == "" {
		c.CatalogRefresh = RefreshPerQuery
	}
	return c
}
