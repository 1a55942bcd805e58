// conf/validate.go

package conf

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/text/language"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateServerSettings(&settings.Server); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateEndpointSettings(settings); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateHTTPSettings(&settings.HTTP); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateUISettings(&settings.UI); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateSentrySettings(&settings.Sentry); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateMetricsSettings(&settings.Metrics); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateServerSettings(settings *ServerSettings) error {
	if settings.BaseURL == "" {
		return nil
	}
	u, err := url.Parse(settings.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("server.baseurl %q must be an absolute URL", settings.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server.baseurl scheme must be http or https, got %q", u.Scheme)
	}
	return nil
}

// validateEndpointSettings checks that relative templates have a base URL to
// resolve against.
func validateEndpointSettings(settings *Settings) error {
	if settings.Server.BaseURL != "" {
		return nil
	}
	var relative []string
	for kind, tmpl := range settings.Endpoints.Templates() {
		if tmpl == "" {
			continue
		}
		if u, err := url.Parse(tmpl); err == nil && !u.IsAbs() {
			relative = append(relative, string(kind))
		}
	}
	if len(relative) > 0 {
		return fmt.Errorf("relative endpoint templates need server.baseurl: %s", strings.Join(sortedStrings(relative), ", "))
	}
	return nil
}

func validateHTTPSettings(settings *HTTPSettings) error {
	if settings.Timeout < 0 {
		return fmt.Errorf("http.timeout must not be negative")
	}
	if settings.RateLimit < 0 {
		return fmt.Errorf("http.ratelimit must not be negative")
	}
	if settings.RateLimit > 0 && settings.Burst < 1 {
		return fmt.Errorf("http.burst must be at least 1 when rate limiting is enabled")
	}
	return nil
}

func validateUISettings(settings *UISettings) error {
	if settings.Locale == "" {
		return nil
	}
	if _, err := language.Parse(settings.Locale); err != nil {
		return fmt.Errorf("ui.locale %q is not a valid language tag", settings.Locale)
	}
	return nil
}

func validateSentrySettings(settings *SentrySettings) error {
	if settings.Enabled && settings.DSN == "" {
		return fmt.Errorf("sentry.dsn is required when sentry is enabled")
	}
	return nil
}

func validateMetricsSettings(settings *MetricsSettings) error {
	if !settings.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(settings.Listen); err != nil {
		return fmt.Errorf("metrics.listen %q must be host:port", settings.Listen)
	}
	return nil
}
