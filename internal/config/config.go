package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	PostgresURI string
	RedisURI    string
	MongoURI    string

	Port           string
	Environment    string // ENV: production, development, etc.
	FrontendURL    string
	AllowedOrigins []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL

	// SMTP settings for transactional email
	SMTPHost  string
	SMTPPort  int
	SMTPUser  string
	SMTPPass  string
	FromEmail string

	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	// AdminAPIKey guards the admin endpoints. Admin access is disabled
	// when empty.
	AdminAPIKey string
}

func Load() *Config {
	frontend := getEnv("FRONTEND_URL", "http://localhost:3000")

	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{frontend}
	}

	smtpPort, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		smtpPort = 587
	}

	return &Config{
		PostgresURI: getEnv("POSTGRES_URI", "postgres://localhost:5432/memberwell?sslmode=disable"),
		RedisURI:    getEnv("REDIS_URI", "redis://localhost:6379/0"),
		MongoURI:    getEnv("MONGODB_URI", "mongodb://localhost:27017/memberwell"),

		Port:           getEnv("PORT", "8080"),
		Environment:    strings.ToLower(strings.TrimSpace(getEnv("ENV", "development"))),
		FrontendURL:    frontend,
		AllowedOrigins: allowedOrigins,

		SMTPHost:  getEnv("SMTP_HOST", ""),
		SMTPPort:  smtpPort,
		SMTPUser:  getEnv("SMTP_USER", ""),
		SMTPPass:  getEnv("SMTP_PASS", ""),
		FromEmail: getEnv("FROM_EMAIL", "no-reply@memberwell.org"),

		CloudinaryName:      getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),

		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),
	}
}

// VerifyURL is the frontend page that consumes email verification tokens.
func (c *Config) VerifyURL() string {
	return strings.TrimRight(c.FrontendURL, "/") + "/verify-email"
}

// ResetURL is the frontend page that consumes password reset tokens.
func (c *Config) ResetURL() string {
	return strings.TrimRight(c.FrontendURL, "/") + "/reset-password"
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
