package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreBackendPostgres  = "postgres"
	StoreBackendFirestore = "firestore"

	AuthModeFirebase = "firebase"
	AuthModeHMAC     = "hmac"
)

var defaultCORSOrigins = []string{"http://localhost:5173", "https://ai-chat-interface.onrender.com"}

// Config holds application configuration values loaded from environment variables.
type Config struct {
	HTTPPort    string
	Environment string

	StoreBackend string
	DatabaseURL  string
	Google       ServiceAccount

	GeminiAPIKey      string
	GeminiModel       string
	GenerationTimeout time.Duration

	AuthMode          string
	FirebaseProjectID string
	FirebaseJWKSURL   string
	JWTSecret         string
	TokenExpiration   time.Duration

	CORSAllowedOrigins []string
	FrontendDir        string
}

// ServiceAccount is the Google service-account key, assembled from
// individual GOOGLE_* variables.
type ServiceAccount struct {
	ProjectID    string
	PrivateKeyID string
	PrivateKey   string
	ClientEmail  string
	ClientID     string
	TokenURI     string
}

// CredentialsJSON renders the key in the JSON format Google client libraries
// accept. It returns nil when no private key is configured, so callers fall
// back to application default credentials.
func (sa ServiceAccount) CredentialsJSON() ([]byte, error) {
	if sa.PrivateKey == "" {
		return nil, nil
	}
	tokenURI := sa.TokenURI
	if tokenURI == "" {
		tokenURI = "https://oauth2.googleapis.com/token"
	}
	return json.Marshal(map[string]string{
		"type":           "service_account",
		"project_id":     sa.ProjectID,
		"private_key_id": sa.PrivateKeyID,
		"private_key":    sa.PrivateKey,
		"client_email":   sa.ClientEmail,
		"client_id":      sa.ClientID,
		"token_uri":      tokenURI,
	})
}

// LoadConfig loads configuration from environment variables.
// It looks for a .env file first, then checks actual environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the process environment without reading .env.
func FromEnv() (*Config, error) {
	port := getEnv("HTTP_PORT", getEnv("PORT", "8080"))

	genTimeout, err := time.ParseDuration(getEnv("GENERATION_TIMEOUT", "30s"))
	if err != nil || genTimeout <= 0 {
		return nil, fmt.Errorf("invalid GENERATION_TIMEOUT: %q", os.Getenv("GENERATION_TIMEOUT"))
	}

	tokenExpHours, err := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "24"))
	if err != nil || tokenExpHours <= 0 {
		return nil, fmt.Errorf("invalid JWT_EXPIRATION_HOURS: %q", os.Getenv("JWT_EXPIRATION_HOURS"))
	}

	google := ServiceAccount{
		ProjectID:    getEnv("GOOGLE_PROJECT_ID", ""),
		PrivateKeyID: getEnv("GOOGLE_PRIVATE_KEY_ID", ""),
		// Keys pasted into a single env line carry literal \n sequences.
		PrivateKey:  strings.ReplaceAll(getEnv("GOOGLE_PRIVATE_KEY", ""), `\n`, "\n"),
		ClientEmail: getEnv("GOOGLE_CLIENT_EMAIL", ""),
		ClientID:    getEnv("GOOGLE_CLIENT_ID", ""),
		TokenURI:    getEnv("GOOGLE_TOKEN_URI", ""),
	}

	cfg := &Config{
		HTTPPort:           port,
		Environment:        getEnv("ENVIRONMENT", "dev"),
		StoreBackend:       strings.ToLower(getEnv("STORE_BACKEND", StoreBackendPostgres)),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		Google:             google,
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GenerationTimeout:  genTimeout,
		AuthMode:           strings.ToLower(getEnv("AUTH_MODE", AuthModeFirebase)),
		FirebaseProjectID:  getEnv("FIREBASE_PROJECT_ID", google.ProjectID),
		FirebaseJWKSURL:    getEnv("FIREBASE_JWKS_URL", ""),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		TokenExpiration:    time.Hour * time.Duration(tokenExpHours),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", ""), defaultCORSOrigins),
		FrontendDir:        getEnv("FRONTEND_DIR", "../frontend/dist"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the settings required by the selected backends are present.
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreBackend {
	case StoreBackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	case StoreBackendFirestore:
		if c.Google.ProjectID == "" {
			errs = append(errs, errors.New("GOOGLE_PROJECT_ID is required for the firestore store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}

	switch c.AuthMode {
	case AuthModeFirebase:
		if c.FirebaseProjectID == "" {
			errs = append(errs, errors.New("FIREBASE_PROJECT_ID or GOOGLE_PROJECT_ID is required for firebase auth"))
		}
	case AuthModeHMAC:
		if c.JWTSecret == "" {
			errs = append(errs, errors.New("JWT_SECRET is required for hmac auth"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AUTH_MODE %q", c.AuthMode))
	}

	if c.GeminiAPIKey == "" {
		errs = append(errs, errors.New("GEMINI_API_KEY is required"))
	}

	return errors.Join(errs...)
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func splitList(raw string, fallback []string) []string {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
