package file

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/scieloorg/doaj-exporter/internal/core/domain"
)

// Environment variables overriding the settings file.
const (
	EnvAPIURL = "DOAJ_API_URL"
	EnvAPIKey = "DOAJ_API_KEY"
	EnvDomain = "ARTICLEMETA_DOMAIN"
)

// fileSettings mirrors the TOML settings schema. Zero values mean "keep the
// default".
type fileSettings struct {
	APIURL string `toml:"api_url"`
	APIKey string `toml:"api_key"`

	Connection string `toml:"connection"`
	Domain     string `toml:"domain"`

	StatePath string `toml:"state_path"`

	MaxRetries     int     `toml:"max_retries"`
	RetryBackoffMS int     `toml:"retry_backoff_ms"`
	BulkSize       int     `toml:"bulk_size"`
	MaxWorkers     int     `toml:"max_workers"`
	RequestRate    float64 `toml:"request_rate"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// LoadSettings resolves the process settings from defaults, the TOML file
// at path and environment overrides, in that order. If path is empty the
// default location ~/.doaj-exporter/config.toml is used; a missing file
// keeps the defaults.
func LoadSettings(path string) (domain.Settings, error) {
	settings := domain.DefaultSettings()

	resolved, explicit, err := settingsPath(path)
	if err != nil {
		return settings, err
	}

	data, err := os.ReadFile(resolved)
	switch {
	case err == nil:
		var fs fileSettings
		if err := toml.Unmarshal(data, &fs); err != nil {
			return settings, fmt.Errorf("%w: parsing %s: %v", domain.ErrConfig, resolved, err)
		}
		apply(&settings, fs)

	case os.IsNotExist(err) && !explicit:
		// No settings file at the default location: defaults apply.

	default:
		return settings, fmt.Errorf("%w: reading %s: %v", domain.ErrConfig, resolved, err)
	}

	applyEnv(&settings)

	if err := validate(settings); err != nil {
		return settings, err
	}
	return settings, nil
}

// settingsPath resolves the settings file location. The second return value
// reports whether the caller named the file explicitly, in which case its
// absence is an error.
func settingsPath(path string) (string, bool, error) {
	if path != "" {
		return path, true, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false, fmt.Errorf("%w: getting home directory: %v", domain.ErrConfig, err)
	}
	return filepath.Join(home, ".doaj-exporter", "config.toml"), false, nil
}

// apply folds non-zero file values over the defaults.
func apply(settings *domain.Settings, fs fileSettings) {
	if fs.APIURL != "" {
		settings.DOAJAPIURL = fs.APIURL
	}
	if fs.APIKey != "" {
		settings.DOAJAPIKey = fs.APIKey
	}
	if fs.Connection != "" {
		settings.Connection = domain.ConnectionKind(fs.Connection)
	}
	if fs.Domain != "" {
		settings.Domain = fs.Domain
	}
	if fs.StatePath != "" {
		settings.StatePath = fs.StatePath
	}
	if fs.MaxRetries > 0 {
		settings.MaxRetries = fs.MaxRetries
	}
	if fs.RetryBackoffMS > 0 {
		settings.RetryBackoff = time.Duration(fs.RetryBackoffMS) * time.Millisecond
	}
	if fs.BulkSize > 0 {
		settings.BulkSize = fs.BulkSize
	}
	if fs.MaxWorkers > 0 {
		settings.MaxWorkers = fs.MaxWorkers
	}
	if fs.RequestRate > 0 {
		settings.RequestRate = fs.RequestRate
	}
	if fs.TimeoutSeconds > 0 {
		settings.Timeout = time.Duration(fs.TimeoutSeconds) * time.Second
	}
}

// applyEnv folds environment overrides over the file values.
func applyEnv(settings *domain.Settings) {
	if v := os.Getenv(EnvAPIURL); v != "" {
		settings.DOAJAPIURL = v
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		settings.DOAJAPIKey = v
	}
	if v := os.Getenv(EnvDomain); v != "" {
		settings.Domain = v
	}
}

// validate rejects values no component could run with.
func validate(settings domain.Settings) error {
	switch settings.Connection {
	case domain.ConnectionRestful, domain.ConnectionThrift:
	default:
		return fmt.Errorf("%w: unknown connection kind %q", domain.ErrConfig, settings.Connection)
	}
	if settings.DOAJAPIURL == "" {
		return fmt.Errorf("%w: destination API URL is empty", domain.ErrConfig)
	}
	return nil
}
