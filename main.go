package main

import (
	"fmt"
	"os"

	"github.com/tphakala/worktracker-go/cmd"
	"github.com/tphakala/worktracker-go/internal/buildinfo"
)

// buildDate and version are set at build time with -ldflags
var (
	buildDate string
	version   string
)

func main() {
	build := buildinfo.NewContext(version, buildDate)

	rootCmd := cmd.RootCommand(build)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Command execution error: %v\n", err)
		os.Exit(1)
	}
}
