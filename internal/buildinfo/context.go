// Package buildinfo contains build-time metadata kept separate from user configuration
package buildinfo

import "fmt"

// UnknownValue is reported for metadata the build did not inject.
const UnknownValue = "unknown"

// Context contains build-time metadata that is not user-configurable.
// It is filled from -ldflags in main and passed down explicitly.
type Context struct {
	// Version holds the Git version tag from build
	Version string

	// BuildDate is the time when the binary was built
	BuildDate string
}

// NewContext returns a Context for the injected values.
func NewContext(version, buildDate string) *Context {
	return &Context{Version: version, BuildDate: buildDate}
}

// GetVersion returns the version or UnknownValue.
func (c *Context) GetVersion() string {
	if c == nil || c.Version == "" {
		return UnknownValue
	}
	return c.Version
}

// GetBuildDate returns the build date or UnknownValue.
func (c *Context) GetBuildDate() string {
	if c == nil || c.BuildDate == "" {
		return UnknownValue
	}
	return c.BuildDate
}

// Release is the Sentry release name.
func (c *Context) Release() string {
	return "worktracker@" + c.GetVersion()
}

// UserAgent is sent on every request to the tracker server.
func (c *Context) UserAgent() string {
	return fmt.Sprintf("worktracker/%s", c.GetVersion())
}
