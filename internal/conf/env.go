// env.go - Environment variable configuration and validation for worktracker
package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

// EnvPrefix is prepended to every bound environment variable.
const EnvPrefix = "WORKTRACKER"

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "WORKTRACKER_DEBUG", validateEnvBool},
		{"server.baseurl", "WORKTRACKER_SERVER_BASEURL", validateEnvURL},

		{"endpoints.detail", "WORKTRACKER_ENDPOINTS_DETAIL", nil},
		{"endpoints.assessment", "WORKTRACKER_ENDPOINTS_ASSESSMENT", nil},
		{"endpoints.interventions", "WORKTRACKER_ENDPOINTS_INTERVENTIONS", nil},
		{"endpoints.intervention_transition", "WORKTRACKER_ENDPOINTS_INTERVENTION_TRANSITION", nil},
		{"endpoints.set_location", "WORKTRACKER_ENDPOINTS_SET_LOCATION", nil},
		{"endpoints.add_to_project", "WORKTRACKER_ENDPOINTS_ADD_TO_PROJECT", nil},
		{"endpoints.photo_upload", "WORKTRACKER_ENDPOINTS_PHOTO_UPLOAD", nil},

		{"http.timeout", "WORKTRACKER_HTTP_TIMEOUT", validateEnvDuration},
		{"http.useragent", "WORKTRACKER_HTTP_USERAGENT", nil},
		{"http.ratelimit", "WORKTRACKER_HTTP_RATELIMIT", validateEnvNonNegativeFloat},
		{"http.burst", "WORKTRACKER_HTTP_BURST", validateEnvNonNegativeInt},

		{"ui.locale", "WORKTRACKER_UI_LOCALE", validateEnvLocale},

		{"logging.default_level", "WORKTRACKER_LOG_LEVEL", validateEnvLogLevel},

		{"sentry.enabled", "WORKTRACKER_SENTRY_ENABLED", validateEnvBool},
		{"sentry.dsn", "WORKTRACKER_SENTRY_DSN", validateEnvURL},

		{"metrics.enabled", "WORKTRACKER_METRICS_ENABLED", validateEnvBool},
		{"metrics.listen", "WORKTRACKER_METRICS_LISTEN", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("must be an absolute URL")
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fmt.Errorf("must be a positive duration such as 30s")
	}
	return nil
}

func validateEnvNonNegativeFloat(value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f < 0 {
		return fmt.Errorf("must be a non-negative number")
	}
	return nil
}

func validateEnvNonNegativeInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return fmt.Errorf("must be a non-negative integer")
	}
	return nil
}

func validateEnvLocale(value string) error {
	if _, err := language.Parse(value); err != nil {
		return fmt.Errorf("not a BCP 47 language tag")
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	switch strings.ToLower(value) {
	case "trace", "debug", "info", "warn", "warning", "error":
		return nil
	}
	return fmt.Errorf("must be one of trace, debug, info, warn, error")
}

// configureEnvironmentVariables sets up environment variable support for Viper
func configureEnvironmentVariables() error {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return bindEnvVars()
}
