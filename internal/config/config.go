package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	MongoURI    string
	DBName      string
	Environment string
	AppId       string

	// JWTSecret is the root secret; per-kind secrets fall back to it.
	JWTSecret         string
	OwnerTokenSecret  string
	EmployeeSecret    string
	AdminTokenSecret  string
	SupportSecret     string
	TokenTTL          time.Duration
	MaxTreeDepth      int
	UseTransactions   bool
	ReconcileSchedule string
	CORSOrigins       string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file successfully")
	}

	root := getEnv("JWT_SECRET", "secret")

	return &Config{
		Port:              getEnv("PORT", "8080"),
		MongoURI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:            getEnv("DB_NAME", "go-bpm"),
		Environment:       getEnv("ENVIRONMENT", "development"),
		AppId:             getEnv("APP_ID", "go-bpm"),
		JWTSecret:         root,
		OwnerTokenSecret:  getEnv("JWT_OWNER_SECRET", root+":owner"),
		EmployeeSecret:    getEnv("JWT_EMPLOYEE_SECRET", root+":employee"),
		AdminTokenSecret:  getEnv("JWT_ADMIN_SECRET", root+":admin"),
		SupportSecret:     getEnv("JWT_SUPPORT_SECRET", root+":support"),
		TokenTTL:          getDuration("TOKEN_TTL", time.Hour),
		MaxTreeDepth:      getInt("MAX_TREE_DEPTH", 64),
		UseTransactions:   getEnv("USE_TRANSACTIONS", "false") == "true",
		ReconcileSchedule: getEnv("RECONCILE_SCHEDULE", "@every 15m"),
		CORSOrigins:       getEnv("CORS_ORIGINS", "http://localhost:3000"),
	}, nil
}

// IsProduction reports whether the production logger and settings apply.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		log.Printf("Invalid %s=%q, using %d", key, raw, fallback)
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		log.Printf("Invalid %s=%q, using %s", key, raw, fallback)
		return fallback
	}
	return v
}
