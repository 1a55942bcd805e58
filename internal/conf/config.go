// config.go: settings struct for worktracker and the functions to load and save it.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/worktracker-go/internal/endpoints"
	"github.com/tphakala/worktracker-go/internal/intervention"
	"github.com/tphakala/worktracker-go/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// ServerSettings locates the tracker server.
type ServerSettings struct {
	BaseURL string `yaml:"baseurl" mapstructure:"baseurl"` // absolute URL that relative endpoints resolve against
}

// EndpointSettings holds one URL template per backend operation. An empty
// template switches the feature off.
type EndpointSettings struct {
	Detail                 string `yaml:"detail" mapstructure:"detail"`
	Assessment             string `yaml:"assessment" mapstructure:"assessment"`
	Interventions          string `yaml:"interventions" mapstructure:"interventions"`
	InterventionTransition string `yaml:"intervention_transition" mapstructure:"intervention_transition"`
	SetLocation            string `yaml:"set_location" mapstructure:"set_location"`
	AddToProject           string `yaml:"add_to_project" mapstructure:"add_to_project"`
	PhotoUpload            string `yaml:"photo_upload" mapstructure:"photo_upload"`
}

// Templates returns the settings keyed by endpoint kind.
func (e EndpointSettings) Templates() map[endpoints.Kind]string {
	return map[endpoints.Kind]string{
		endpoints.Detail:                 e.Detail,
		endpoints.Assessment:             e.Assessment,
		endpoints.Interventions:          e.Interventions,
		endpoints.InterventionTransition: e.InterventionTransition,
		endpoints.SetLocation:            e.SetLocation,
		endpoints.AddToProject:           e.AddToProject,
		endpoints.PhotoUpload:            e.PhotoUpload,
	}
}

// HTTPSettings configures the outbound client.
type HTTPSettings struct {
	Timeout   time.Duration     `yaml:"timeout" mapstructure:"timeout"`
	UserAgent string            `yaml:"useragent" mapstructure:"useragent"`
	RateLimit float64           `yaml:"ratelimit" mapstructure:"ratelimit"` // requests per second, 0 disables limiting
	Burst     int               `yaml:"burst" mapstructure:"burst"`
	Headers   map[string]string `yaml:"headers" mapstructure:"headers"` // sent on every request, e.g. session cookie or CSRF token
}

// UISettings configures the panel.
type UISettings struct {
	Locale string `yaml:"locale" mapstructure:"locale"` // cs or en
	// InterventionNotes holds note rules keyed by intervention type code
	InterventionNotes map[string]intervention.NoteRule `yaml:"interventionnotes" mapstructure:"interventionnotes"`
}

// SentrySettings controls error telemetry.
type SentrySettings struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	DSN     string `yaml:"dsn" mapstructure:"dsn"`
}

// MetricsSettings controls the Prometheus listener.
type MetricsSettings struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"` // true to expose /metrics
	Listen  string `yaml:"listen" mapstructure:"listen"`   // IP address and port to listen on
}

// Settings is the full configuration.
type Settings struct {
	Debug     bool                 `yaml:"debug" mapstructure:"debug"`
	Server    ServerSettings       `yaml:"server" mapstructure:"server"`
	Endpoints EndpointSettings     `yaml:"endpoints" mapstructure:"endpoints"`
	HTTP      HTTPSettings         `yaml:"http" mapstructure:"http"`
	UI        UISettings           `yaml:"ui" mapstructure:"ui"`
	Logging   logger.LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Sentry    SentrySettings       `yaml:"sentry" mapstructure:"sentry"`
	Metrics   MetricsSettings      `yaml:"metrics" mapstructure:"metrics"`
}

// EndpointSet builds the resolver from the server and endpoint settings.
func (s *Settings) EndpointSet() (*endpoints.Set, error) {
	return endpoints.New(s.Server.BaseURL, s.Endpoints.Templates())
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
	configFileFlag   string
)

// SetConfigFile makes Load read path instead of searching the default paths.
func SetConfigFile(path string) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	configFileFlag = path
}

// Load reads configuration from file, environment and defaults, validates it
// and stores it as the current settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper sets defaults, binds the environment and reads the config file
// when one exists. A missing file is not an error: the defaults apply.
func initViper() error {
	viper.SetConfigType("yaml")
	setDefaultConfig()

	if err := configureEnvironmentVariables(); err != nil {
		return err
	}

	if configFileFlag != "" {
		viper.SetConfigFile(configFileFlag)
	} else {
		viper.SetConfigName("config")
		configPaths, err := GetDefaultConfigPaths()
		if err != nil {
			return fmt.Errorf("error getting default config paths: %w", err)
		}
		for _, path := range configPaths {
			viper.AddConfigPath(path)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}
	return nil
}

// GetSettings returns the current settings, nil before Load.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// DefaultConfig returns the embedded default config file.
func DefaultConfig() ([]byte, error) {
	return fs.ReadFile(configFiles, "config.yaml")
}

// WriteDefaultConfig writes the embedded default config to path. An existing
// file is only replaced when force is set.
func WriteDefaultConfig(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists", path)
		}
	}
	data, err := DefaultConfig()
	if err != nil {
		return fmt.Errorf("error reading embedded config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}
	return writeAtomic(path, data)
}

// SaveYAMLConfig writes settings to configPath. It overwrites the existing
// file, not preserving comments or structure.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}
	return writeAtomic(configPath, yamlData)
}

// writeAtomic writes through a temporary file in the same directory and renames it into place.
func writeAtomic(path string, data []byte) error {
	tempFile, err := os.CreateTemp(filepath.Dir(path), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}
	if err := os.Rename(tempFileName, path); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}
	return nil
}
