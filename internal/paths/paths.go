// Package paths locates meetme's config, OAuth client secret and cached
// token on disk.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	appDirName = "meetme"
	configFile = "config.json"
	tokenFile  = "token.json"
	credsFile  = "credentials.json"

	// EnvConfigDir overrides every other lookup, e.g. for a server whose
	// files are mounted into a container.
	EnvConfigDir = "MEETME_CONFIG_DIR"
)

// ConfigDir resolves, in order: $MEETME_CONFIG_DIR, $XDG_CONFIG_HOME/meetme,
// an existing ~/.config/meetme, then the platform config dir.
func ConfigDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(EnvConfigDir)); dir != "" {
		return dir, nil
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appDirName), nil
	}
	if home, err := os.UserHomeDir(); err == nil {
		dotConfig := filepath.Join(home, ".config", appDirName)
		if _, err := os.Stat(dotConfig); err == nil {
			return dotConfig, nil
		}
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appDirName), nil
}

func ConfigPath() (string, error) {
	return inConfigDir(configFile)
}

func TokenPath() (string, error) {
	return inConfigDir(tokenFile)
}

// CredentialsPath is where the OAuth client secret downloaded from the
// Google Cloud console is expected.
func CredentialsPath() (string, error) {
	return inConfigDir(credsFile)
}

func inConfigDir(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}
