package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"alfredoptarigan/ai-interviewer/internal/models"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Qdrant    QdrantConfig
	Gemini    GeminiConfig
	Parser    ParserConfig
	Storage   StorageConfig
	Worker    WorkerConfig
	Interview InterviewConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       string
	User       string
	Password   string
	DBName     string
	SQLitePath string
}

type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	SessionTTL time.Duration
}

type QdrantConfig struct {
	Enabled    bool
	URL        string
	APIKey     string
	Collection string
}

type GeminiConfig struct {
	APIKey           string
	Model            string
	EmbedModel       string
	RetryMaxAttempts int
	RetryDelay       time.Duration
	ContactCacheSize int
}

// ParserConfig selects how resumes are turned into text: "remote" posts the
// file to an external parsing service, "local" extracts PDF text in process.
type ParserConfig struct {
	Mode string
	URL  string
}

type StorageConfig struct {
	UploadPath    string
	MaxFileSize   int64
	MaxAge        time.Duration
	PurgeSchedule string
}

type WorkerConfig struct {
	Concurrency   int
	SweepInterval time.Duration
	TimerGrace    time.Duration
}

type InterviewConfig struct {
	PlanFile string
	Plan     models.QuestionPlan
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using default values.")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "3000"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "postgres"),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "postgres"),
			Password:   getEnv("DB_PASSWORD", "postgres"),
			DBName:     getEnv("DB_NAME", "ai_interviewer"),
			SQLitePath: getEnv("SQLITE_PATH", "./ai_interviewer.db"),
		},
		Redis: RedisConfig{
			Addr:       getEnv("REDIS_ADDR", ""),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         getEnvAsInt("REDIS_DB", 0),
			SessionTTL: getEnvAsDuration("SESSION_TTL", "24h"),
		},
		Qdrant: QdrantConfig{
			Enabled:    getEnvAsBool("QDRANT_ENABLED", false),
			URL:        getEnv("QDRANT_URL", "http://localhost:6333"),
			APIKey:     getEnv("QDRANT_API_KEY", ""),
			Collection: getEnv("QDRANT_COLLECTION", "interview_transcripts"),
		},
		Gemini: GeminiConfig{
			APIKey:           getEnv("GEMINI_API_KEY", ""),
			Model:            getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			EmbedModel:       getEnv("GEMINI_EMBED_MODEL", "text-embedding-004"),
			RetryMaxAttempts: getEnvAsInt("RETRY_MAX_ATTEMPTS", 3),
			RetryDelay:       getEnvAsDuration("RETRY_DELAY", "1s"),
			ContactCacheSize: getEnvAsInt("CONTACT_CACHE_SIZE", 256),
		},
		Parser: ParserConfig{
			Mode: getEnv("RESUME_PARSER", "remote"),
			URL:  getEnv("RESUME_PARSER_URL", "https://docura-parser.onrender.com/parse?remove_emails=false"),
		},
		Storage: StorageConfig{
			UploadPath:    getEnv("UPLOAD_PATH", "./uploads"),
			MaxFileSize:   getEnvAsInt64("MAX_FILE_SIZE", 10485760),
			MaxAge:        getEnvAsDuration("UPLOAD_MAX_AGE", "72h"),
			PurgeSchedule: getEnv("UPLOAD_PURGE_SCHEDULE", "@hourly"),
		},
		Worker: WorkerConfig{
			Concurrency:   getEnvAsInt("WORKER_CONCURRENCY", 3),
			SweepInterval: getEnvAsDuration("SWEEP_INTERVAL", "1s"),
			TimerGrace:    getEnvAsDuration("TIMER_GRACE", "2s"),
		},
		Interview: InterviewConfig{
			PlanFile: getEnv("QUESTION_PLAN_FILE", ""),
			Plan: models.QuestionPlan{
				Role:          getEnv("INTERVIEW_ROLE", "Full Stack Developer"),
				Difficulties:  getEnvAsDifficulties("INTERVIEW_DIFFICULTIES", models.DefaultDifficulties),
				CountPerLevel: getEnvAsInt("QUESTIONS_PER_LEVEL", 2),
			},
		},
	}

	if cfg.Interview.PlanFile != "" {
		plan, err := LoadQuestionPlan(cfg.Interview.PlanFile, cfg.Interview.Plan)
		if err != nil {
			log.Printf("Ignoring question plan file: %v", err)
		} else {
			cfg.Interview.Plan = plan
		}
	}

	return cfg
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

func getEnvAsDifficulties(key string, defaultValue []models.Difficulty) []models.Difficulty {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return append([]models.Difficulty(nil), defaultValue...)
	}
	var out []models.Difficulty
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, models.Difficulty(part))
		}
	}
	if len(out) == 0 {
		return append([]models.Difficulty(nil), defaultValue...)
	}
	return out
}
