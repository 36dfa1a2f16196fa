package internal

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/parlorchat/parlor/pkg/config"
)

var (
	version   = "dev"
	gitCommit string
)

func GetConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".parlor", "config.json")
}

func GetCredentialsPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".parlor", "credentials.json")
}

func LoadConfig() (*config.Config, error) {
	return config.LoadConfig(GetConfigPath())
}

// FormatVersion returns the version string with optional git commit
func FormatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}

// GetVersion returns the version string
func GetVersion() string {
	return version
}
