package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// DotenvFiles are loaded by LoadDotenv in order. Earlier files win.
var DotenvFiles = []string{".env.local", ".env"}

// LoadDotenv loads DotenvFiles from dir into the environment. Variables that
// are already set are left alone and missing files are skipped.
func LoadDotenv(dir string) error {
	var files []string
	for _, name := range DotenvFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to open env file %s: %w", path, err)
		}
		files = append(files, path)
	}
	if len(files) == 0 {
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("failed to load env files: %w", err)
	}
	return nil
}
