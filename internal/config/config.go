// Package config builds the process-wide configuration once at startup.
// Values come from defaults, an optional orchid.yaml, a .env file and the
// environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Scraper backends for the cloner service.
const (
	BackendFirecrawl = "firecrawl"
	BackendDirect    = "direct"
)

// Generator providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// SelectorConfig configures the LLM that ranks search results.
type SelectorConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// GeneratorConfig configures the LLM that rebuilds cloned pages.
type GeneratorConfig struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
}

// SearchConfig configures the SerpAPI client.
type SearchConfig struct {
	APIKey  string
	BaseURL string
	Limit   int
	Timeout time.Duration
}

// ExtractConfig configures the Firecrawl extraction job client.
type ExtractConfig struct {
	APIKey       string
	BaseURL      string
	Timeout      time.Duration
	PollInterval time.Duration
	MaxAttempts  int
	PollTimeout  time.Duration
}

// ScrapeConfig configures page retrieval for the cloner.
type ScrapeConfig struct {
	Backend       string
	FirecrawlHost string
	APIKey        string
	Timeout       time.Duration
	Fingerprint   string
	RespectRobots bool
	RPS           float64
	Proxies       []string
}

// Config holds everything both binaries need. Construct it with Load and
// pass it down; nothing reads the environment after startup.
type Config struct {
	Selector   SelectorConfig
	Generator  GeneratorConfig
	Search     SearchConfig
	Extract    ExtractConfig
	Scrape     ScrapeConfig
	ListenAddr string
	LogLevel   string
	LogFormat  string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("together_base_url", "https://api.together.xyz/v1")
	v.SetDefault("selector_model", "meta-llama/Llama-4-Maverick-17B-128E-Instruct-FP8")
	v.SetDefault("generator_provider", ProviderGemini)
	v.SetDefault("generator_model", "gemini-1.5-flash")
	v.SetDefault("serp_base_url", "https://serpapi.com")
	v.SetDefault("serp_limit", 10)
	v.SetDefault("serp_timeout", 30*time.Second)
	v.SetDefault("firecrawl_api_url", "https://api.firecrawl.dev")
	v.SetDefault("firecrawl_host", "http://localhost:3002")
	v.SetDefault("scraper_backend", BackendFirecrawl)
	v.SetDefault("scrape_timeout", 120*time.Second)
	v.SetDefault("extract_timeout", 120*time.Second)
	v.SetDefault("poll_interval", 5*time.Second)
	v.SetDefault("poll_max_attempts", 120)
	v.SetDefault("poll_timeout", 30*time.Second)
	v.SetDefault("direct_fingerprint", "go")
	v.SetDefault("direct_respect_robots", true)
	v.SetDefault("direct_rps", 0.0)
	v.SetDefault("listen_addr", ":8000")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// Load reads configuration. file names an explicit YAML file; when empty,
// orchid.yaml is looked up in the working directory and silently skipped
// if absent. A .env file in the working directory is loaded first and
// never overrides variables already set.
func Load(file string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	} else {
		v.SetConfigName("orchid")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	provider := strings.ToLower(v.GetString("generator_provider"))
	genKey := v.GetString("generator_api_key")
	if genKey == "" {
		switch provider {
		case ProviderGemini:
			genKey = v.GetString("gemini_api_key")
		case ProviderOpenAI:
			genKey = v.GetString("together_api_key")
		}
	}

	// An empty base URL leaves the Gemini SDK on its own endpoint; the
	// OpenAI-compatible provider falls back to Together.
	genBaseURL := v.GetString("generator_base_url")
	if genBaseURL == "" && provider == ProviderOpenAI {
		genBaseURL = v.GetString("together_base_url")
	}

	return &Config{
		Selector: SelectorConfig{
			APIKey:  v.GetString("together_api_key"),
			BaseURL: v.GetString("together_base_url"),
			Model:   v.GetString("selector_model"),
		},
		Generator: GeneratorConfig{
			Provider: provider,
			APIKey:   genKey,
			BaseURL:  genBaseURL,
			Model:    v.GetString("generator_model"),
		},
		Search: SearchConfig{
			APIKey:  v.GetString("serp_api_key"),
			BaseURL: strings.TrimRight(v.GetString("serp_base_url"), "/"),
			Limit:   v.GetInt("serp_limit"),
			Timeout: v.GetDuration("serp_timeout"),
		},
		Extract: ExtractConfig{
			APIKey:       v.GetString("firecrawl_api_key"),
			BaseURL:      strings.TrimRight(v.GetString("firecrawl_api_url"), "/"),
			Timeout:      v.GetDuration("extract_timeout"),
			PollInterval: v.GetDuration("poll_interval"),
			MaxAttempts:  v.GetInt("poll_max_attempts"),
			PollTimeout:  v.GetDuration("poll_timeout"),
		},
		Scrape: ScrapeConfig{
			Backend:       strings.ToLower(v.GetString("scraper_backend")),
			FirecrawlHost: strings.TrimRight(v.GetString("firecrawl_host"), "/"),
			APIKey:        v.GetString("firecrawl_api_key"),
			Timeout:       v.GetDuration("scrape_timeout"),
			Fingerprint:   v.GetString("direct_fingerprint"),
			RespectRobots: v.GetBool("direct_respect_robots"),
			RPS:           v.GetFloat64("direct_rps"),
			Proxies:       splitList(v.GetStringSlice("direct_proxies")),
		},
		ListenAddr: v.GetString("listen_addr"),
		LogLevel:   v.GetString("log_level"),
		LogFormat:  v.GetString("log_format"),
	}
}

// splitList flattens comma separated entries, so DIRECT_PROXIES=a,b and a
// YAML list both work.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate rejects values no component can run with. Missing API keys are
// not errors; see ResearchWarnings and ClonerWarnings.
func (c *Config) Validate() error {
	var errs []error
	switch c.Scrape.Backend {
	case BackendFirecrawl, BackendDirect:
	default:
		errs = append(errs, fmt.Errorf("scraper_backend must be %q or %q, got %q", BackendFirecrawl, BackendDirect, c.Scrape.Backend))
	}
	switch c.Generator.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("generator_provider must be %q or %q, got %q", ProviderGemini, ProviderOpenAI, c.Generator.Provider))
	}
	if c.Extract.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("poll_max_attempts must be positive, got %d", c.Extract.MaxAttempts))
	}
	if c.Extract.PollInterval < 0 {
		errs = append(errs, fmt.Errorf("poll_interval must not be negative, got %s", c.Extract.PollInterval))
	}
	return errors.Join(errs...)
}

// ResearchWarnings lists missing settings that degrade the research CLI.
func (c *Config) ResearchWarnings() []string {
	var w []string
	if c.Selector.APIKey == "" {
		w = append(w, "TOGETHER_API_KEY not set; URL selection will fail")
	}
	if c.Search.APIKey == "" {
		w = append(w, "SERP_API_KEY not set; search requests will be rejected")
	}
	if c.Extract.APIKey == "" {
		w = append(w, "FIRECRAWL_API_KEY not set; extraction requests will be rejected")
	}
	return w
}

// ClonerWarnings lists missing settings that degrade the cloner service.
func (c *Config) ClonerWarnings() []string {
	var w []string
	if c.Generator.APIKey == "" {
		w = append(w, "no API key for generator provider "+c.Generator.Provider+"; page generation will return error pages")
	}
	return w
}
