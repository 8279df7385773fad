package config

import (
	"os"
	"strconv"
	"time"
)

// PersonaConfig carries the model binding for one of the four fixed
// personas (the two debaters, the judge, and the synthesizer).
type PersonaConfig struct {
	Name      string
	Model     string
	BaseURL   string
	APIKey    string
	MaxTokens int
}

type Config struct {
	Port        string
	Environment string
	CORSOrigins string
	DatabaseURL string // optional; empty disables the session archive
	TablePrefix string

	// Persona model bindings
	PersonaA  PersonaConfig
	PersonaB  PersonaConfig
	Judge     PersonaConfig
	Synthesis PersonaConfig

	// PersonasFile optionally points at a YAML file overriding persona
	// display names and system-prompt fragments.
	PersonasFile string

	// Shared provider credentials. Persona-level keys win when set.
	AnthropicAPIKey string
	OpenAIAPIKey    string
	OpenAIBaseURL   string

	// MaxRounds caps discussion rounds before synthesis is forced.
	MaxRounds int

	// Response cache tuning
	CacheMaxEntries int
	CacheTTL        time.Duration

	// Retry policy for model calls
	MaxRetries     int
	RetryBaseDelay time.Duration

	// LogDir, when set, mirrors log output into timestamped files there
	LogDir      string
	LogMaxFiles int

	// Debug flags
	Debug bool // Enables DEBUG features like SSE event IDs
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	openAIBase := getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1")

	personaA := loadPersona("PERSONA_A", "Analyst", "gpt-4o-mini", openAIBase)
	personaB := loadPersona("PERSONA_B", "Critic", "gpt-4o-mini", openAIBase)

	// The judge and synthesizer ride persona A's binding unless given
	// their own endpoint, model, or key.
	judge := loadPersona("JUDGE", "Judge", personaA.Model, personaA.BaseURL)
	synthesis := loadPersona("SYNTHESIS", "Synthesizer", personaA.Model, personaA.BaseURL)
	if judge.APIKey == "" {
		judge.APIKey = personaA.APIKey
	}
	if synthesis.APIKey == "" {
		synthesis.APIKey = personaA.APIKey
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		TablePrefix: getTablePrefix(env),

		PersonaA:  personaA,
		PersonaB:  personaB,
		Judge:     judge,
		Synthesis: synthesis,

		PersonasFile: getEnv("PERSONAS_FILE", ""),

		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   openAIBase,

		MaxRounds: getEnvInt("MAX_ROUNDS", DefaultMaxRounds),

		CacheMaxEntries: getEnvInt("CACHE_MAX_ENTRIES", DefaultCacheMaxEntries),
		CacheTTL:        getEnvDuration("CACHE_TTL", DefaultCacheTTL),

		MaxRetries:     getEnvInt("MODEL_MAX_RETRIES", DefaultMaxRetries),
		RetryBaseDelay: getEnvDuration("MODEL_RETRY_BASE_DELAY", DefaultRetryBaseDelay),

		LogDir:      getEnv("LOG_DIR", ""),
		LogMaxFiles: getEnvInt("LOG_MAX_FILES", DefaultLogMaxFiles),

		// Debug flags - default to true in dev/test, false in production
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// loadPersona reads PREFIX_NAME, PREFIX_MODEL, PREFIX_BASE_URL,
// PREFIX_API_KEY and PREFIX_MAX_TOKENS, falling back to shared defaults.
func loadPersona(prefix, defaultName, defaultModel, defaultBase string) PersonaConfig {
	return PersonaConfig{
		Name:      getEnv(prefix+"_NAME", defaultName),
		Model:     getEnv(prefix+"_MODEL", defaultModel),
		BaseURL:   getEnv(prefix+"_BASE_URL", defaultBase),
		APIKey:    getEnv(prefix+"_API_KEY", ""),
		MaxTokens: getEnvInt(prefix+"_MAX_TOKENS", DefaultMaxTokens),
	}
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true" // Enable DEBUG in dev/test by default
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
