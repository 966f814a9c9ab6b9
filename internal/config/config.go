package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Storage backends accepted in Storage.Backend.
const (
	BackendLocal = "local"
	BackendGCS   = "gcs"
	BackendS3    = "s3"
)

type Config struct {
	AppVersion         string
	APIVersion         string
	DefaultTimeout     time.Duration
	MaxFileSize        int64
	UploadPath         string
	LogPath            string
	CacheTimeout       time.Duration
	SessionTimeout     time.Duration
	DefaultLanguage    string
	SupportedLanguages []string
	Debug              bool
	MaxRetryAttempts   int
	DefaultPageSize    int
	MaxPageSize        int
	AllowedFileTypes   []string

	DatabaseURL       string
	Timezone          string
	SessionSecret     string
	EncryptionKey     string
	DiscordWebhookURL string
	AgentSettingsPath string
	Storage           Storage
	SMTP              SMTP
}

type Storage struct {
	Backend  string `toml:"backend" yaml:"backend"`
	Root     string `toml:"root" yaml:"root"`
	Region   string `toml:"region" yaml:"region"`
	Endpoint string `toml:"endpoint" yaml:"endpoint"`
}

type SMTP struct {
	Host     string `toml:"host" yaml:"host"`
	Port     int    `toml:"port" yaml:"port"`
	Username string `toml:"username" yaml:"username"`
	Password string `toml:"password" yaml:"password"`
	From     string `toml:"from" yaml:"from"`
}

// Default returns the built-in configuration table.
func Default() Config {
	return Config{
		AppVersion:         "2.0.0",
		APIVersion:         "v1",
		DefaultTimeout:     30 * time.Second,
		MaxFileSize:        10485760,
		UploadPath:         "/uploads/",
		LogPath:            "/logs/",
		CacheTimeout:       3600 * time.Second,
		SessionTimeout:     1800 * time.Second,
		DefaultLanguage:    "en",
		SupportedLanguages: []string{"en", "fr", "es", "de"},
		MaxRetryAttempts:   3,
		DefaultPageSize:    50,
		MaxPageSize:        1000,
		AllowedFileTypes:   []string{"jpg", "jpeg", "png", "gif", "pdf", "doc", "docx"},
		DatabaseURL:        "sqlite::memory:",
		Timezone:           "UTC",
		Storage:            Storage{Backend: BackendLocal, Root: "/uploads/"},
		SMTP:               SMTP{Port: 587},
	}
}

// Load builds the configuration from defaults, an optional file named by
// COLLECTORKIT_CONFIG and the environment, then validates it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// .env est optionnel lorsque les variables sont fournies par l'environnement (Docker, CI, etc.).
	}

	cfg := Default()
	if path := os.Getenv("COLLECTORKIT_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	var f fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(raw, &f)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &f)
	default:
		return fmt.Errorf("config: unsupported file type %q (expected .toml, .yaml or .yml)", path)
	}
	if err != nil {
		return fmt.Errorf("config: decode %s: %w", path, err)
	}
	return f.apply(c)
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(key); ok {
			*dst = splitList(v)
		}
	}
	var errs []string
	integer := func(key string, dst *int) bool {
		v, ok := lookup(key)
		if !ok {
			return false
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s=%q n'est pas un entier", key, v))
			return false
		}
		*dst = n
		return true
	}
	seconds := func(key string, dst *time.Duration) {
		var n int
		if integer(key, &n) {
			*dst = time.Duration(n) * time.Second
		}
	}

	str("APP_VERSION", &c.AppVersion)
	str("API_VERSION", &c.APIVersion)
	seconds("DEFAULT_TIMEOUT", &c.DefaultTimeout)
	if v, ok := lookup("MAX_FILE_SIZE"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("MAX_FILE_SIZE=%q n'est pas un entier", v))
		} else {
			c.MaxFileSize = n
		}
	}
	str("UPLOAD_PATH", &c.UploadPath)
	str("LOG_PATH", &c.LogPath)
	seconds("CACHE_TIMEOUT", &c.CacheTimeout)
	seconds("SESSION_TIMEOUT", &c.SessionTimeout)
	str("DEFAULT_LANGUAGE", &c.DefaultLanguage)
	list("SUPPORTED_LANGUAGES", &c.SupportedLanguages)
	if v, ok := lookup("DEBUG_MODE"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Sprintf("DEBUG_MODE=%q n'est pas un booléen", v))
		} else {
			c.Debug = b
		}
	}
	integer("MAX_RETRY_ATTEMPTS", &c.MaxRetryAttempts)
	integer("DEFAULT_PAGE_SIZE", &c.DefaultPageSize)
	integer("MAX_PAGE_SIZE", &c.MaxPageSize)
	list("ALLOWED_FILE_TYPES", &c.AllowedFileTypes)

	str("DATABASE_URL", &c.DatabaseURL)
	str("TIMEZONE", &c.Timezone)
	str("SESSION_SECRET", &c.SessionSecret)
	str("ENCRYPTION_KEY", &c.EncryptionKey)
	str("DISCORD_WEBHOOK_URL", &c.DiscordWebhookURL)
	str("AGENT_SETTINGS_PATH", &c.AgentSettingsPath)
	str("STORAGE_BACKEND", &c.Storage.Backend)
	str("STORAGE_ROOT", &c.Storage.Root)
	str("STORAGE_REGION", &c.Storage.Region)
	str("STORAGE_ENDPOINT", &c.Storage.Endpoint)
	str("SMTP_HOST", &c.SMTP.Host)
	integer("SMTP_PORT", &c.SMTP.Port)
	str("SMTP_USERNAME", &c.SMTP.Username)
	str("SMTP_PASSWORD", &c.SMTP.Password)
	str("SMTP_FROM", &c.SMTP.From)

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// validate applique toutes les règles métier sur la configuration chargée.
func (c *Config) validate() error {
	c.DefaultLanguage = strings.ToLower(strings.TrimSpace(c.DefaultLanguage))
	if c.DefaultLanguage == "" {
		return fmt.Errorf("config: DEFAULT_LANGUAGE est requis et ne peut pas être vide")
	}
	if len(c.SupportedLanguages) == 0 {
		return fmt.Errorf("config: SUPPORTED_LANGUAGES doit contenir au moins une langue")
	}
	for i, lang := range c.SupportedLanguages {
		c.SupportedLanguages[i] = strings.ToLower(strings.TrimSpace(lang))
	}
	if !slices.Contains(c.SupportedLanguages, c.DefaultLanguage) {
		return fmt.Errorf("config: DEFAULT_LANGUAGE %q absente de SUPPORTED_LANGUAGES %v", c.DefaultLanguage, c.SupportedLanguages)
	}

	if c.DefaultTimeout <= 0 {
		return fmt.Errorf("config: DEFAULT_TIMEOUT doit être positif")
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("config: MAX_FILE_SIZE doit être positif")
	}
	if c.MaxRetryAttempts < 1 {
		return fmt.Errorf("config: MAX_RETRY_ATTEMPTS doit être au moins 1")
	}
	if c.DefaultPageSize <= 0 || c.MaxPageSize <= 0 {
		return fmt.Errorf("config: DEFAULT_PAGE_SIZE et MAX_PAGE_SIZE doivent être positifs")
	}
	if c.DefaultPageSize > c.MaxPageSize {
		return fmt.Errorf("config: DEFAULT_PAGE_SIZE (%d) dépasse MAX_PAGE_SIZE (%d)", c.DefaultPageSize, c.MaxPageSize)
	}
	for i, ext := range c.AllowedFileTypes {
		c.AllowedFileTypes[i] = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
	}

	switch c.Storage.Backend {
	case BackendLocal, BackendGCS, BackendS3:
	case "":
		c.Storage.Backend = BackendLocal
	default:
		return fmt.Errorf("config: STORAGE_BACKEND %q inconnu (local, gcs ou s3)", c.Storage.Backend)
	}
	if c.Storage.Backend == BackendLocal && strings.TrimSpace(c.Storage.Root) == "" {
		c.Storage.Root = c.UploadPath
	}

	if strings.TrimSpace(c.DatabaseURL) == "" {
		// Valeur par défaut utile en local lorsque DATABASE_URL n'est pas fournie.
		c.DatabaseURL = "sqlite::memory:"
	}
	if !strings.HasPrefix(c.DatabaseURL, "sqlite:") {
		parsed, err := url.Parse(c.DatabaseURL)
		if err != nil {
			return fmt.Errorf("config: DATABASE_URL invalide (%q): %w", c.DatabaseURL, err)
		}
		if parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("config: DATABASE_URL invalide (%q): scheme ou host manquant", c.DatabaseURL)
		}
	}

	if c.Timezone == "" {
		c.Timezone = "UTC"
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
