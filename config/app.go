package config

import (
	"os"
	"strconv"
	"time"
)

type App struct {
	Port            string
	ShutdownTimeout time.Duration

	JWT       JWTSettings
	Assistant AssistantSettings
	Vertex    VertexSettings

	GCSBucket      string // empty disables call archiving
	CachePrefix    string
	CacheTTL       time.Duration
	LifecycleGroup string
	Workers        int
	RetryAfter     time.Duration
	MaxDeliveries  int
}

type JWTSettings struct {
	Secret   string
	Issuer   string
	Audience string
}

// AssistantSettings point at the hosted voice-assistant service.
type AssistantSettings struct {
	URL      string
	APIKey   string
	Name     string
	Provider string
	Model    string
}

type VertexSettings struct {
	ProjectID string // empty disables question generation
	Location  string
	Model     string
}

func LoadApp() *App {
	return &App{
		Port:            getEnv("PORT", "8080"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		JWT: JWTSettings{
			Secret:   getEnv("SUPABASE_JWT_SECRET", ""),
			Issuer:   getEnv("SUPABASE_JWT_ISSUER", ""),
			Audience: getEnv("SUPABASE_JWT_AUDIENCE", ""),
		},
		Assistant: AssistantSettings{
			URL:      getEnv("ASSISTANT_WS_URL", ""),
			APIKey:   getEnv("ASSISTANT_API_KEY", ""),
			Name:     getEnv("ASSISTANT_NAME", "AI Recruiter"),
			Provider: getEnv("ASSISTANT_MODEL_PROVIDER", "openai"),
			Model:    getEnv("ASSISTANT_MODEL", "gpt-4o-mini"),
		},
		Vertex: VertexSettings{
			ProjectID: getEnv("GCP_PROJECT_ID", ""),
			Location:  getEnv("GCP_LOCATION", "us-central1"),
			Model:     getEnv("VERTEX_MODEL", "gemini-1.5-flash"),
		},
		GCSBucket:      getEnv("GCS_BUCKET", ""),
		CachePrefix:    getEnv("CACHE_PREFIX", "aicruiter:"),
		CacheTTL:       getEnvAsDuration("CACHE_TTL", 10*time.Minute),
		LifecycleGroup: getEnv("LIFECYCLE_GROUP", "call-lifecycle"),
		Workers:        getEnvAsInt("LIFECYCLE_WORKERS", 2),
		RetryAfter:     getEnvAsDuration("LIFECYCLE_RETRY_AFTER", 30*time.Second),
		MaxDeliveries:  getEnvAsInt("LIFECYCLE_MAX_DELIVERIES", 5),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
