package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/video-stream/subtrans/internal/logging"
)

type Config struct {
	Port          int    `validate:"min=1,max=65535"`
	MediaPath     string `validate:"required"`
	DataPath      string `validate:"required"`
	DBPath        string `validate:"required"`
	OutputPath    string `validate:"required"`
	JWTSecret     string `validate:"min=16"`
	AdminUsername string `validate:"required"`
	AdminPassword string `validate:"required"`
	CORSOrigins   []string
	LogLevel      string `validate:"oneof=trace debug info warn warning error"`
	LogFormat     string `validate:"oneof=text json"`
	APIRateLimit  int    `validate:"min=1"` // requests per minute per client

	OpenAIKey   string
	OpenAIModel string
	GeminiKey   string
	GeminiModel string

	Tuning Tuning
}

// Tuning holds the translation pipeline knobs. Defaults can be overridden by the
// YAML file named in TRANSLATE_TUNING_FILE.
type Tuning struct {
	MergeStrategy      string  `yaml:"merge_strategy" validate:"oneof=sentence consecutive none"`
	MaxSegmentChars    int     `yaml:"max_segment_chars" validate:"min=10"`
	MaxSegmentDuration float64 `yaml:"max_segment_duration" validate:"gt=0"`
	SentenceEnd        string  `yaml:"sentence_end" validate:"required"`
	SubClause          string  `yaml:"sub_clause"`

	TokensPerBatch   int     `yaml:"tokens_per_batch" validate:"min=200"`
	CharsPerToken    float64 `yaml:"chars_per_token" validate:"gt=0"`
	MaxItemsPerBatch int     `yaml:"max_items_per_batch" validate:"min=1,max=1000"`
	SimplifiedIDs    bool    `yaml:"simplified_ids"`

	MaxRetryRounds int           `yaml:"max_retry_rounds" validate:"min=0,max=10"`
	RetryDelay     time.Duration `yaml:"retry_delay" validate:"min=0"`
	Concurrency    int           `yaml:"concurrency" validate:"min=1,max=64"`
	BatchInterval  time.Duration `yaml:"batch_interval" validate:"min=0"`
	CallTimeout    time.Duration `yaml:"call_timeout" validate:"min=0"`

	RepeatMinCheckLen int `yaml:"repeat_min_check_len" validate:"min=0"`
	RuneRepeat        int `yaml:"rune_repeat" validate:"min=0"`
	PatternMinLen     int `yaml:"pattern_min_len" validate:"min=1"`
	PatternRepeat     int `yaml:"pattern_repeat" validate:"min=0"`

	MaxCharsPerLine int `yaml:"max_chars_per_line" validate:"min=5"`
	MaxLines        int `yaml:"max_lines" validate:"min=1"`
}

// DefaultTuning mirrors the package defaults of the translation pipeline
func DefaultTuning() Tuning {
	return Tuning{
		MergeStrategy:      "sentence",
		MaxSegmentChars:    120,
		MaxSegmentDuration: 10,
		SentenceEnd:        "。？！.?!",
		SubClause:          "，,、；;：:",
		TokensPerBatch:     8000,
		CharsPerToken:      2.5,
		MaxItemsPerBatch:   100,
		MaxRetryRounds:     3,
		RetryDelay:         5 * time.Second,
		Concurrency:        5,
		BatchInterval:      time.Second,
		CallTimeout:        10 * time.Minute,
		RepeatMinCheckLen:  10,
		RuneRepeat:         5,
		PatternMinLen:      2,
		PatternRepeat:      4,
		MaxCharsPerLine:    35,
		MaxLines:           2,
	}
}

// Load reads .env (if present), the environment and the optional tuning file
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("PORT: %w", err)
	}
	rateLimit, err := strconv.Atoi(getEnv("API_RATE_LIMIT", "120"))
	if err != nil {
		return nil, fmt.Errorf("API_RATE_LIMIT: %w", err)
	}
	dataPath := getEnv("DATA_PATH", "/data")

	// JWT secret: require explicit setting or generate random
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return nil, fmt.Errorf("generate JWT secret: %w", err)
		}
		jwtSecret = hex.EncodeToString(b)
		logging.Warn("JWT_SECRET not set, using random secret; sessions will not survive restarts", nil)
	}

	// CORS origins: comma-separated list or "*" (default)
	corsOrigins := []string{"*"}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		corsOrigins = splitList(v)
	}

	tuning := DefaultTuning()
	if path := os.Getenv("TRANSLATE_TUNING_FILE"); path != "" {
		if err := loadTuning(path, &tuning); err != nil {
			return nil, err
		}
	}
	if v := os.Getenv("LLM_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("LLM_CONCURRENCY: %w", err)
		}
		tuning.Concurrency = n
	}

	cfg := &Config{
		Port:          port,
		MediaPath:     getEnv("MEDIA_PATH", "/media"),
		DataPath:      dataPath,
		DBPath:        getEnv("DB_PATH", dataPath+"/subtrans.db"),
		OutputPath:    getEnv("OUTPUT_PATH", dataPath+"/output"),
		JWTSecret:     jwtSecret,
		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "admin"),
		CORSOrigins:   corsOrigins,
		LogLevel:      strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:     strings.ToLower(getEnv("LOG_FORMAT", "text")),
		APIRateLimit:  rateLimit,
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		GeminiKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		Tuning:        tuning,
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadTuning overlays the YAML file onto t. Unknown keys are rejected.
func loadTuning(path string, t *Tuning) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open tuning file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(t); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse tuning file %s: %w", path, err)
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
