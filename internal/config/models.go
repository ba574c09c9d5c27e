package config

import "time"

// ServerConfig represents the configuration for the HTTP API
type ServerConfig struct {
	ListenAddress   string
	Mode            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// CacheConfig represents the configuration for the analysis cache
type CacheConfig struct {
	Type             string
	Enabled          bool
	TTL              time.Duration
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	BypassMarkers    []string
}

// SMTPConfig represents the configuration for the SMTP content filter
type SMTPConfig struct {
	Enabled          bool
	ListenAddress    string
	Domain           string
	AnalysisTimeout  time.Duration
	RelayEnabled     bool
	RelayAddress     string
	RelayPort        int
	InvoiceHeader    string
	ConfidenceHeader string
	DetailsHeader    string
	TopicsHeader     string
	UrgencyHeader    string
	ModifySubject    bool
	SubjectPrefix    string
	SkipDomains      []string
}

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider string
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GetServer returns the HTTP server configuration
func (c *Config) GetServer() (ServerConfig, error) {
	read, err := c.GetDuration("server.read_timeout")
	if err != nil {
		return ServerConfig{}, err
	}
	write, err := c.GetDuration("server.write_timeout")
	if err != nil {
		return ServerConfig{}, err
	}
	shutdown, err := c.GetDuration("server.shutdown_timeout")
	if err != nil {
		return ServerConfig{}, err
	}
	return ServerConfig{
		ListenAddress:   c.GetString("server.listen_address"),
		Mode:            c.GetString("server.mode"),
		ReadTimeout:     read,
		WriteTimeout:    write,
		ShutdownTimeout: shutdown,
	}, nil
}

// GetCache returns the cache configuration
func (c *Config) GetCache() (CacheConfig, error) {
	ttl, err := c.GetDuration("cache.ttl")
	if err != nil {
		return CacheConfig{}, err
	}
	cleanup, err := c.GetDuration("cache.cleanup_frequency")
	if err != nil {
		return CacheConfig{}, err
	}
	return CacheConfig{
		Type:             c.GetString("cache.type"),
		Enabled:          c.GetBool("cache.enabled"),
		TTL:              ttl,
		CleanupFrequency: cleanup,
		SQLitePath:       c.GetString("cache.sqlite_path"),
		MySQLDSN:         c.GetString("cache.mysql_dsn"),
		RedisAddr:        c.GetString("cache.redis_addr"),
		RedisPassword:    c.GetString("cache.redis_password"),
		RedisDB:          c.GetInt("cache.redis_db"),
		BypassMarkers:    c.GetStringSlice("cache.bypass_markers"),
	}, nil
}

// GetSMTP returns the SMTP filter configuration
func (c *Config) GetSMTP() (SMTPConfig, error) {
	timeout, err := c.GetDuration("smtp.analysis_timeout")
	if err != nil {
		return SMTPConfig{}, err
	}
	return SMTPConfig{
		Enabled:          c.GetBool("smtp.enabled"),
		ListenAddress:    c.GetString("smtp.listen_address"),
		Domain:           c.GetString("smtp.domain"),
		AnalysisTimeout:  timeout,
		RelayEnabled:     c.GetBool("smtp.relay.enabled"),
		RelayAddress:     c.GetString("smtp.relay.address"),
		RelayPort:        c.GetInt("smtp.relay.port"),
		InvoiceHeader:    c.GetString("smtp.headers.invoice"),
		ConfidenceHeader: c.GetString("smtp.headers.confidence"),
		DetailsHeader:    c.GetString("smtp.headers.details"),
		TopicsHeader:     c.GetString("smtp.headers.topics"),
		UrgencyHeader:    c.GetString("smtp.headers.urgency"),
		ModifySubject:    c.GetBool("smtp.modify_subject"),
		SubjectPrefix:    c.GetString("smtp.subject_prefix"),
		SkipDomains:      c.GetStringSlice("smtp.skip_domains"),
	}, nil
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
		MaxBodySize: c.GetInt("bedrock.max_body_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
		MaxBodySize: c.GetInt("gemini.max_body_size"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxBodySize: c.GetInt("openai.max_body_size"),
	}
}
