// Package env loads service credentials from .env files.
//
// This package is internal to TablePulse. It finds the nearest .env file
// walking up from the working directory and loads it into the process
// environment exactly once, so the service endpoint and access key can live
// next to the binary instead of in shell profiles.
package env

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

var (
	loadOnce   sync.Once
	loadedPath string
	loadErr    error
)

// Ensure loads the first .env file found from the current working directory
// up to the filesystem root. Subsequent calls are no-ops.
//
// Tests stay hermetic: under `go test` nothing is loaded unless
// TABLEPULSE_TEST_LOAD_DOTENV=1 is set, so a developer-local .env cannot
// leak into unit tests.
func Ensure() error {
	if runningUnderGoTest() && os.Getenv("TABLEPULSE_TEST_LOAD_DOTENV") != "1" {
		return nil
	}
	loadOnce.Do(func() {
		path, err := findDotEnv()
		if err != nil {
			loadErr = err
			slog.Debug("search for .env failed", "error", err)
			return
		}
		if path == "" {
			return
		}
		if err := godotenv.Load(path); err != nil {
			loadErr = err
			slog.Warn("failed to load .env", "dotenv", path, "error", err)
			return
		}
		loadedPath = path
		slog.Debug("loaded .env", "dotenv", path)
	})
	return loadErr
}

// LoadedPath returns the resolved .env path if one was loaded, otherwise "".
func LoadedPath() string {
	return loadedPath
}

func runningUnderGoTest() bool {
	if strings.HasSuffix(os.Args[0], ".test") {
		return true
	}
	for _, arg := range os.Args[1:] {
		if strings.HasPrefix(arg, "-test.") {
			return true
		}
	}
	return false
}

func findDotEnv() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(wd, ".env")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(wd)
		if parent == wd {
			return "", nil
		}
		wd = parent
	}
}
