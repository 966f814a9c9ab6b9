package config

import "time"

// fileConfig mirrors Config for file overlays. Pointers distinguish an
// absent key from a zero value; durations are whole seconds.
type fileConfig struct {
	AppVersion         *string  `toml:"app_version" yaml:"app_version"`
	APIVersion         *string  `toml:"api_version" yaml:"api_version"`
	DefaultTimeout     *int     `toml:"default_timeout" yaml:"default_timeout"`
	MaxFileSize        *int64   `toml:"max_file_size" yaml:"max_file_size"`
	UploadPath         *string  `toml:"upload_path" yaml:"upload_path"`
	LogPath            *string  `toml:"log_path" yaml:"log_path"`
	CacheTimeout       *int     `toml:"cache_timeout" yaml:"cache_timeout"`
	SessionTimeout     *int     `toml:"session_timeout" yaml:"session_timeout"`
	DefaultLanguage    *string  `toml:"default_language" yaml:"default_language"`
	SupportedLanguages []string `toml:"supported_languages" yaml:"supported_languages"`
	Debug              *bool    `toml:"debug" yaml:"debug"`
	MaxRetryAttempts   *int     `toml:"max_retry_attempts" yaml:"max_retry_attempts"`
	DefaultPageSize    *int     `toml:"default_page_size" yaml:"default_page_size"`
	MaxPageSize        *int     `toml:"max_page_size" yaml:"max_page_size"`
	AllowedFileTypes   []string `toml:"allowed_file_types" yaml:"allowed_file_types"`

	DatabaseURL       *string `toml:"database_url" yaml:"database_url"`
	Timezone          *string `toml:"timezone" yaml:"timezone"`
	SessionSecret     *string `toml:"session_secret" yaml:"session_secret"`
	EncryptionKey     *string `toml:"encryption_key" yaml:"encryption_key"`
	DiscordWebhookURL *string `toml:"discord_webhook_url" yaml:"discord_webhook_url"`
	AgentSettingsPath *string `toml:"agent_settings_path" yaml:"agent_settings_path"`

	Storage *Storage `toml:"storage" yaml:"storage"`
	SMTP    *SMTP    `toml:"smtp" yaml:"smtp"`
}

func (f fileConfig) apply(c *Config) error {
	setStr(&c.AppVersion, f.AppVersion)
	setStr(&c.APIVersion, f.APIVersion)
	setSeconds(&c.DefaultTimeout, f.DefaultTimeout)
	if f.MaxFileSize != nil {
		c.MaxFileSize = *f.MaxFileSize
	}
	setStr(&c.UploadPath, f.UploadPath)
	setStr(&c.LogPath, f.LogPath)
	setSeconds(&c.CacheTimeout, f.CacheTimeout)
	setSeconds(&c.SessionTimeout, f.SessionTimeout)
	setStr(&c.DefaultLanguage, f.DefaultLanguage)
	if f.SupportedLanguages != nil {
		c.SupportedLanguages = f.SupportedLanguages
	}
	if f.Debug != nil {
		c.Debug = *f.Debug
	}
	setInt(&c.MaxRetryAttempts, f.MaxRetryAttempts)
	setInt(&c.DefaultPageSize, f.DefaultPageSize)
	setInt(&c.MaxPageSize, f.MaxPageSize)
	if f.AllowedFileTypes != nil {
		c.AllowedFileTypes = f.AllowedFileTypes
	}

	setStr(&c.DatabaseURL, f.DatabaseURL)
	setStr(&c.Timezone, f.Timezone)
	setStr(&c.SessionSecret, f.SessionSecret)
	setStr(&c.EncryptionKey, f.EncryptionKey)
	setStr(&c.DiscordWebhookURL, f.DiscordWebhookURL)
	setStr(&c.AgentSettingsPath, f.AgentSettingsPath)
	if f.Storage != nil {
		c.Storage = *f.Storage
	}
	if f.SMTP != nil {
		c.SMTP = *f.SMTP
	}
	return nil
}

func setStr(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setSeconds(dst *time.Duration, v *int) {
	if v != nil {
		*dst = time.Duration(*v) * time.Second
	}
}
