package config

// Config holds docfields configuration.
// Stored at: ~/.docfields/config.yaml (or ./config.yaml)
type Config struct {
	OCRProviders map[string]OCRProviderCfg `mapstructure:"ocr_providers" yaml:"ocr_providers" json:"ocr_providers"`
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers" json:"llm_providers"`
	Defaults     DefaultsCfg               `mapstructure:"defaults" yaml:"defaults" json:"defaults"`
	Store        StoreCfg                  `mapstructure:"store" yaml:"store" json:"store"`
}

// OCRProviderCfg configures an OCR provider.
type OCRProviderCfg struct {
	Type      string  `mapstructure:"type" yaml:"type" json:"type"`                   // "mistral-ocr", "mock"
	Model     string  `mapstructure:"model" yaml:"model" json:"model"`                // Model name
	APIKey    string  `mapstructure:"api_key" yaml:"api_key" json:"api_key"`          // API key (supports ${ENV_VAR} syntax)
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"` // Requests per second
	Enabled   bool    `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
}

// LLMProviderCfg configures an LLM provider.
type LLMProviderCfg struct {
	Type      string  `mapstructure:"type" yaml:"type" json:"type"`                                 // "openrouter", "openai", "mock"
	Model     string  `mapstructure:"model" yaml:"model" json:"model"`                              // Model name
	APIKey    string  `mapstructure:"api_key" yaml:"api_key" json:"api_key"`
	BaseURL   string  `mapstructure:"base_url" yaml:"base_url,omitempty" json:"base_url,omitempty"` // OpenAI-compatible endpoint override
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`               // Requests per second
	Enabled   bool    `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
}

// DefaultsCfg specifies default provider selections and extraction settings.
type DefaultsCfg struct {
	LLMProvider string  `mapstructure:"llm_provider" yaml:"llm_provider" json:"llm_provider"`
	OCRProvider string  `mapstructure:"ocr_provider" yaml:"ocr_provider" json:"ocr_provider"`
	PageMode    string  `mapstructure:"page_mode" yaml:"page_mode" json:"page_mode"`          // "combined" or "individual"
	Structured  bool    `mapstructure:"structured" yaml:"structured" json:"structured"`       // request a JSON-schema response format
	Temperature float64 `mapstructure:"temperature" yaml:"temperature" json:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens" json:"max_tokens"`
	Concurrency int     `mapstructure:"concurrency" yaml:"concurrency" json:"concurrency"`    // parallel page runs and OCR calls
	RenderDPI   int     `mapstructure:"render_dpi" yaml:"render_dpi" json:"render_dpi"`       // PDF page rendering resolution
}

// StoreCfg locates the run database.
type StoreCfg struct {
	// Path of the bbolt file. Empty means {home}/docfields.db.
	Path string `mapstructure:"path" yaml:"path" json:"path"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		OCRProviders: map[string]OCRProviderCfg{
			"mistral": {
				Type:      "mistral-ocr",
				APIKey:    "${MISTRAL_API_KEY}",
				RateLimit: 6.0,
				Enabled:   true,
			},
		},
		LLMProviders: map[string]LLMProviderCfg{
			"openrouter": {
				Type:      "openrouter",
				Model:     "google/gemini-2.5-flash",
				APIKey:    "${OPENROUTER_API_KEY}",
				RateLimit: 10.0,
				Enabled:   true,
			},
			"openai": {
				Type:      "openai",
				Model:     "gpt-4o-mini",
				APIKey:    "${OPENAI_API_KEY}",
				RateLimit: 8.0,
				Enabled:   true,
			},
		},
		Defaults: DefaultsCfg{
			LLMProvider: "openrouter",
			OCRProvider: "mistral",
			PageMode:    "combined",
			Structured:  false,
			Temperature: 0,
			MaxTokens:   8192,
			Concurrency: 4,
			RenderDPI:   150,
		},
	}
}

// GetOCRProvider returns an OCR provider config by name.
func (c *Config) GetOCRProvider(name string) (OCRProviderCfg, bool) {
	cfg, ok := c.OCRProviders[name]
	return cfg, ok
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// EnabledOCRProviders returns all enabled OCR providers.
func (c *Config) EnabledOCRProviders() map[string]OCRProviderCfg {
	result := make(map[string]OCRProviderCfg)
	for name, cfg := range c.OCRProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

// EnabledLLMProviders returns all enabled LLM providers.
func (c *Config) EnabledLLMProviders() map[string]LLMProviderCfg {
	result := make(map[string]LLMProviderCfg)
	for name, cfg := range c.LLMProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}
