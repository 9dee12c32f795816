package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/TobiSchelling/newsdigest/internal/database"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Sources       Sources       `yaml:"sources"`
	Collection    Collection    `yaml:"collection"`
	Storage       Storage       `yaml:"storage"`
	Related       Related       `yaml:"related"`
	Summarization Summarization `yaml:"summarization"`
	Output        Output        `yaml:"output"`
	Server        Server        `yaml:"server"`
	Logging       Logging       `yaml:"logging"`
}

type Sources struct {
	Feeds []Feed     `yaml:"feeds"`
	APIs  APIsConfig `yaml:"apis"`
}

type Feed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type APIsConfig struct {
	NewsAPI   NewsAPIConfig   `yaml:"newsapi"`
	WorldNews WorldNewsConfig `yaml:"worldnews"`
}

type NewsAPIConfig struct {
	Enabled   bool   `yaml:"enabled"`
	APIKeyEnv string `yaml:"api_key_env"`
	BaseURL   string `yaml:"base_url"`
	Country   string `yaml:"country"`
	PageSize  int    `yaml:"page_size"`
}

type WorldNewsConfig struct {
	Enabled           bool   `yaml:"enabled"`
	APIKeyEnv         string `yaml:"api_key_env"`
	FallbackAPIKeyEnv string `yaml:"fallback_api_key_env"`
	BaseURL           string `yaml:"base_url"`
	SourceCountries   string `yaml:"source_countries"`
	Language          string `yaml:"language"`
	Number            int    `yaml:"number"`
}

type Collection struct {
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

type Storage struct {
	Postgres Postgres `yaml:"postgres"`
	SQLite   SQLite   `yaml:"sqlite"`
}

type Postgres struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	Database       string        `yaml:"database"`
	User           string        `yaml:"user"`
	Password       string        `yaml:"password"`
	PasswordEnv    string        `yaml:"password_env"`
	SSLMode        string        `yaml:"sslmode"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

type SQLite struct {
	Path string `yaml:"path"`
}

type Related struct {
	Threshold       float64                  `yaml:"threshold"`
	Limit           int                      `yaml:"limit"`
	Candidates      int                      `yaml:"candidates"`
	Fields          []string                 `yaml:"fields"`
	DefaultLanguage string                   `yaml:"default_language"`
	Models          map[string]LanguageModel `yaml:"models"`
}

// LanguageModel names where the vector-space model for one language comes
// from: a fastText .vec file, or an Ollama embedding model.
type LanguageModel struct {
	Vectors        string `yaml:"vectors"`
	MaxWords       int    `yaml:"max_words"`
	EmbeddingModel string `yaml:"embedding_model"`
}

type Summarization struct {
	Provider        string `yaml:"provider"`
	Model           string `yaml:"model"`
	APIKeyEnv       string `yaml:"api_key_env"`
	OllamaURL       string `yaml:"ollama_url"`
	OpenAIModel     string `yaml:"openai_model"`
	OpenAIAPIKeyEnv string `yaml:"openai_api_key_env"`
	MaxTokens       int    `yaml:"max_tokens"`
	TargetLanguage  string `yaml:"target_language"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

var validFields = map[string]bool{"title": true, "description": true, "content": true}

// ConfigDir returns the XDG config directory for newsdigest.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "newsdigest")
}

// DataDir returns the XDG data directory for newsdigest.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "newsdigest")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/newsdigest/config.yaml > ./config.yaml.
// It returns "" without error when nothing exists and no path was given,
// meaning the embedded default applies.
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", nil
}

// Load reads and parses a config YAML file. An empty path loads the embedded
// default. Environment overrides are applied afterwards.
func Load(path string) (*Config, error) {
	data := DefaultConfigYAML
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Sources: Sources{
			APIs: APIsConfig{
				NewsAPI: NewsAPIConfig{
					Enabled:   true,
					APIKeyEnv: "NEWSAPI_KEY",
					Country:   "us",
					PageSize:  10,
				},
				WorldNews: WorldNewsConfig{
					Enabled:           true,
					APIKeyEnv:         "WORLDNEWS_API_KEY",
					FallbackAPIKeyEnv: "WORLDNEWS_KEY",
					SourceCountries:   "br",
					Language:          "pt",
					Number:            10,
				},
			},
		},
		Collection: Collection{
			Interval: 10800 * time.Second,
			Timeout:  10 * time.Second,
		},
		Storage: Storage{
			Postgres: Postgres{
				Port:           5432,
				Database:       "news",
				PasswordEnv:    "POSTGRES_PASSWORD",
				SSLMode:        "disable",
				ConnectTimeout: database.DefaultConnectTimeout,
			},
		},
		Related: Related{
			Threshold:       0.7,
			Limit:           3,
			Candidates:      50,
			Fields:          []string{"title", "description"},
			DefaultLanguage: "pt",
		},
		Summarization: Summarization{
			Provider:        "groq",
			Model:           "llama-3.3-70b-versatile",
			APIKeyEnv:       "GROQ_API_KEY",
			OllamaURL:       "http://localhost:11434",
			OpenAIModel:     "gpt-4o-mini",
			OpenAIAPIKeyEnv: "OPENAI_API_KEY",
			MaxTokens:       1024,
			TargetLanguage:  "pt",
		},
		Server:  Server{Port: 5010},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// applyEnv layers the deployment environment variables over the file.
func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	pg := &c.Storage.Postgres
	if v, ok := get("POSTGRES_HOST"); ok {
		pg.Host = v
	}
	if v, ok := get("POSTGRES_PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil {
			pg.Port = port
		}
	}
	if v, ok := get("POSTGRES_DB"); ok {
		pg.Database = v
	}
	if v, ok := get("POSTGRES_USER"); ok {
		pg.User = v
	}
	if pg.PasswordEnv != "" {
		if v, ok := get(pg.PasswordEnv); ok {
			pg.Password = v
		}
	}
	if v, ok := get("INTERVAL_UPDATE"); ok {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			c.Collection.Interval = time.Duration(secs) * time.Second
		}
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.Logging.Level = v
	}
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	if c.Collection.Interval <= 0 {
		return fmt.Errorf("collection.interval must be positive")
	}
	r := c.Related
	if r.Threshold < 0 || r.Threshold > 1 {
		return fmt.Errorf("related.threshold must be within [0,1], got %v", r.Threshold)
	}
	if r.Limit <= 0 {
		return fmt.Errorf("related.limit must be positive")
	}
	if r.Candidates <= 0 {
		return fmt.Errorf("related.candidates must be positive")
	}
	if len(r.Fields) == 0 {
		return fmt.Errorf("related.fields must not be empty")
	}
	for _, f := range r.Fields {
		if !validFields[f] {
			return fmt.Errorf("related.fields: unknown field %q", f)
		}
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// DatabaseConfig maps the storage section onto the database package.
func (c *Config) DatabaseConfig() database.Config {
	pg := c.Storage.Postgres
	path := c.Storage.SQLite.Path
	if path == "" {
		path = filepath.Join(c.GetDataDir(), "news.db")
	}
	return database.Config{
		Postgres: database.PostgresConfig{
			Host:           pg.Host,
			Port:           pg.Port,
			Database:       pg.Database,
			User:           pg.User,
			Password:       pg.Password,
			SSLMode:        pg.SSLMode,
			ConnectTimeout: pg.ConnectTimeout,
		},
		SQLite: database.SQLiteConfig{Path: path},
	}
}

// NewsAPIKey returns the NewsAPI key from the configured env var.
func (c *Config) NewsAPIKey() string {
	return envValue(c.Sources.APIs.NewsAPI.APIKeyEnv)
}

// WorldNewsKey returns the World News API key, trying the fallback variable.
func (c *Config) WorldNewsKey() string {
	wn := c.Sources.APIs.WorldNews
	if v := envValue(wn.APIKeyEnv); v != "" {
		return v
	}
	return envValue(wn.FallbackAPIKeyEnv)
}

func envValue(name string) string {
	if name == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(name))
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
