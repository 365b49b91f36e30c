package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds the application's configuration
type Config struct {
	WebPort           int           `mapstructure:"WEB_PORT"`
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	CorpusDir         string        `mapstructure:"CORPUS_DIR"`
	OllamaHost        string        `mapstructure:"OLLAMA_HOST"`
	Model             string        `mapstructure:"MODEL"`
	Temperature       float64       `mapstructure:"TEMPERATURE"`
	MaxRetries        int           `mapstructure:"MAX_RETRIES"`
	RetryDelaySeconds time.Duration `mapstructure:"RETRY_DELAY_SECONDS"`
	LLMRequestTimeout time.Duration `mapstructure:"LLM_REQUEST_TIMEOUT"`
	HistoryWindow     int           `mapstructure:"HISTORY_WINDOW"`

	// Retrieval and routing thresholds. Retrieval scores are in [0,1];
	// the direct-answer tiers are on a 0-100 scale. The router constructor
	// rejects non-monotonic tier configurations.
	SignificanceFloor  float64  `mapstructure:"SIGNIFICANCE_FLOOR"`
	RelevanceThreshold float64  `mapstructure:"RELEVANCE_THRESHOLD"`
	StrongThreshold    int      `mapstructure:"STRONG_THRESHOLD"`
	NormalThreshold    int      `mapstructure:"NORMAL_THRESHOLD"`
	WeakThreshold      int      `mapstructure:"WEAK_THRESHOLD"`
	MaxHints           int      `mapstructure:"MAX_HINTS"`
	AllowedLinkDomains []string `mapstructure:"ALLOWED_LINK_DOMAINS"`
	DomainCueTerms     []string `mapstructure:"DOMAIN_CUE_TERMS"`
	RetrievalCacheSize int      `mapstructure:"RETRIEVAL_CACHE_SIZE"`

	RateLimitMessagesPerMin int           `mapstructure:"RATE_LIMIT_MESSAGES_PER_MIN"`
	RateLimitBurstSize      int           `mapstructure:"RATE_LIMIT_BURST_SIZE"`
	RateLimitCleanup        time.Duration `mapstructure:"RATE_LIMIT_CLEANUP_MINUTES"`
}

func Load(logger *zap.Logger) *Config {
	var config Config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")        // For running locally
	viper.AddConfigPath("../")      // For running from docker subdir
	viper.AddConfigPath("./config") // Common config folder
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault("WEB_PORT", 8787)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("CORPUS_DIR", "data")
	viper.SetDefault("OLLAMA_HOST", "http://localhost:11434")
	viper.SetDefault("MODEL", "llama3")
	viper.SetDefault("TEMPERATURE", 0.1)
	viper.SetDefault("MAX_RETRIES", 5)
	viper.SetDefault("RETRY_DELAY_SECONDS", 2)
	viper.SetDefault("LLM_REQUEST_TIMEOUT", 300)
	viper.SetDefault("HISTORY_WINDOW", 12)
	viper.SetDefault("SIGNIFICANCE_FLOOR", 0.3)
	viper.SetDefault("RELEVANCE_THRESHOLD", 0.35)
	viper.SetDefault("STRONG_THRESHOLD", 85)
	viper.SetDefault("NORMAL_THRESHOLD", 60)
	viper.SetDefault("WEAK_THRESHOLD", 45)
	viper.SetDefault("MAX_HINTS", 3)
	viper.SetDefault("ALLOWED_LINK_DOMAINS", []string{"sgu.ac.id"})
	viper.SetDefault("DOMAIN_CUE_TERMS", []string{
		"sgu", "swiss german", "campus", "tuition", "admission",
		"enrollment", "curriculum", "lecturer", "faculty", "semester",
		"scholarship", "double degree",
	})
	viper.SetDefault("RETRIEVAL_CACHE_SIZE", 256)
	viper.SetDefault("RATE_LIMIT_MESSAGES_PER_MIN", 20)
	viper.SetDefault("RATE_LIMIT_BURST_SIZE", 5)
	viper.SetDefault("RATE_LIMIT_CLEANUP_MINUTES", 10)

	if err := viper.ReadInConfig(); err != nil {
		if logger != nil {
			logger.Warn("Could not read config file, using defaults/env vars", zap.Error(err))
		}
	}

	if err := viper.Unmarshal(&config); err != nil {
		// Config unmarshaling is critical - fail fast during bootstrap
		if logger != nil {
			logger.Fatal("Unable to decode config into struct", zap.Error(err))
		} else {
			// Fallback if logger not available (should not happen in practice)
			fmt.Fprintf(os.Stderr, "FATAL: Unable to decode config into struct: %v\n", err)
			os.Exit(1)
		}
	}

	// Normalize the link allow-list; matching is against lowercase hostname
	// suffixes and never includes a scheme.
	cleaned := make([]string, 0, len(config.AllowedLinkDomains))
	for _, domain := range config.AllowedLinkDomains {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain != "" {
			cleaned = append(cleaned, domain)
		}
	}
	config.AllowedLinkDomains = cleaned

	// Convert seconds/minutes to proper time.Duration
	config.RetryDelaySeconds = config.RetryDelaySeconds * time.Second
	config.LLMRequestTimeout = config.LLMRequestTimeout * time.Second
	config.RateLimitCleanup = config.RateLimitCleanup * time.Minute

	return &config
}
