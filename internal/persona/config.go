package persona

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

const (
	ConfigFileName = "personas.json"
	ConfigDir      = ".duet"

	// File permissions
	DirPermission  = 0755 // Directory permission (rwxr-xr-x)
	FilePermission = 0644 // File permission (rw-r--r--)
)

// File is the on-disk persona catalog override.
type File struct {
	Personas []Definition `json:"personas"`
}

// LoadFile loads persona overrides from the project's .duet directory.
// A missing file yields nil, nil.
func LoadFile(projectPath string) (*File, error) {
	return loadFile(filepath.Join(projectPath, ConfigDir, ConfigFileName))
}

// LoadFileWithFallback loads persona overrides from the current directory,
// falling back to the home directory if not found.
func LoadFileWithFallback() (*File, error) {
	f, err := LoadFile(".")
	if err != nil {
		return nil, err
	}
	if f != nil {
		log.Debug().Msg("Using project persona config")
		return f, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return loadFile(filepath.Join(homeDir, ConfigDir, ConfigFileName))
}

func loadFile(path string) (*File, error) {
	log.Debug().Str("path", path).Msg("Loading persona config")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug().Str("path", path).Msg("No persona config found")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read persona file: %w", err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse persona file %s: %w", path, err)
	}

	log.Debug().Int("personas", len(f.Personas)).Str("path", path).Msg("Loaded persona config")
	return &f, nil
}

// SaveFile writes the catalog to the project's .duet directory.
func SaveFile(projectPath string, c *Catalog) error {
	dir := filepath.Join(projectPath, ConfigDir)
	if err := os.MkdirAll(dir, DirPermission); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", ConfigDir, err)
	}

	data, err := json.MarshalIndent(File{Personas: c.List()}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal personas: %w", err)
	}

	path := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(path, data, FilePermission); err != nil {
		return fmt.Errorf("failed to write persona file: %w", err)
	}

	log.Debug().Str("path", path).Msg("Saved persona config")
	return nil
}

// LoadCatalog returns the built-in catalog with any overrides from f applied.
func LoadCatalog(f *File) (*Catalog, error) {
	base := DefaultCatalog()
	if f == nil || len(f.Personas) == 0 {
		return base, nil
	}
	c, err := base.Override(f.Personas...)
	if err != nil {
		return nil, fmt.Errorf("invalid persona config: %w", err)
	}
	return c, nil
}
