// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("server.baseurl", "")

	viper.SetDefault("endpoints.detail", "/tracker/api/records/{id}/")
	viper.SetDefault("endpoints.assessment", "/tracker/api/records/{id}/assessment/")
	viper.SetDefault("endpoints.interventions", "/tracker/api/records/{id}/interventions/")
	viper.SetDefault("endpoints.intervention_transition", "/tracker/api/records/{id}/interventions/{intervention}/transition/")
	viper.SetDefault("endpoints.set_location", "/tracker/api/records/{id}/location/")
	viper.SetDefault("endpoints.add_to_project", "/tracker/api/projects/{project}/records/{id}/")
	viper.SetDefault("endpoints.photo_upload", "/tracker/api/photos/")

	viper.SetDefault("http.timeout", 30*time.Second)
	viper.SetDefault("http.useragent", "worktracker")
	viper.SetDefault("http.ratelimit", 5.0)
	viper.SetDefault("http.burst", 5)

	viper.SetDefault("ui.locale", "cs")

	viper.SetDefault("logging.default_level", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.file_output.enabled", false)
	viper.SetDefault("logging.file_output.path", "logs/worktracker.log")
	viper.SetDefault("logging.file_output.level", "debug")

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")

	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.listen", "127.0.0.1:8090")
}
