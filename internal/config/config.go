// Package config loads duet.json and applies environment overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/daikw/duet/internal/avatar"
	"github.com/daikw/duet/internal/persona"
	"github.com/daikw/duet/internal/session"
	"github.com/daikw/duet/internal/voice"
	"github.com/rs/zerolog/log"
)

// FileName is the config file looked up in the project and home .duet
// directories.
const FileName = "duet.json"

// Duration is a time.Duration written as "2s" in JSON.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n int64
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("duration must be a string like \"2s\": %w", err)
		}
		*d = Duration(time.Duration(n))
		return nil
	}
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// RoomConfig locates the real-time room service.
type RoomConfig struct {
	URL       string   `json:"url,omitempty"`
	APIKey    string   `json:"apiKey,omitempty"`
	APISecret string   `json:"apiSecret,omitempty"`
	Identity  string   `json:"identity,omitempty"`
	TokenTTL  Duration `json:"tokenTtl,omitempty"`
}

// AvatarConfig configures the avatar-rendering service.
type AvatarConfig struct {
	APIKey   string   `json:"apiKey,omitempty"`
	BaseURL  string   `json:"baseUrl,omitempty"`
	StartGap Duration `json:"startGap,omitempty"`
}

// LLMConfig configures reply generation.
type LLMConfig struct {
	APIKey string `json:"apiKey,omitempty"`
	Model  string `json:"model,omitempty"`
}

// TurnLogConfig selects where turns are recorded. An empty table logs them.
type TurnLogConfig struct {
	Table  string `json:"table,omitempty"`
	Region string `json:"region,omitempty"`
}

// ConversationConfig tunes the turn coordinator.
type ConversationConfig struct {
	Mode     string `json:"mode,omitempty"`
	MaxChain int    `json:"maxChain,omitempty"`
}

// Config is the duet configuration.
type Config struct {
	Room              RoomConfig         `json:"room"`
	Avatar            AvatarConfig       `json:"avatar"`
	LLM               LLMConfig          `json:"llm"`
	Voice             voice.Settings     `json:"voice"`
	TurnLog           TurnLogConfig      `json:"turnLog"`
	Conversation      ConversationConfig `json:"conversation"`
	NoiseCancellation string             `json:"noiseCancellation,omitempty"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		Room:         RoomConfig{Identity: "duet", TokenTTL: Duration(6 * time.Hour)},
		Avatar:       AvatarConfig{StartGap: Duration(avatar.DefaultStartGap)},
		Voice:        voice.Settings{Provider: voice.DefaultProvider},
		Conversation: ConversationConfig{Mode: string(session.ModeHandoff), MaxChain: session.DefaultMaxChain},
	}
}

// Loader finds the config file.
type Loader struct {
	projectPath string
	globalPath  string
}

// NewLoader returns a loader for .duet/duet.json in the project and in the
// home directory.
func NewLoader() *Loader {
	homeDir, _ := os.UserHomeDir()
	return &Loader{
		projectPath: filepath.Join(persona.ConfigDir, FileName),
		globalPath:  filepath.Join(homeDir, persona.ConfigDir, FileName),
	}
}

// Load reads the project config under workDir, then the global one, and
// applies environment overrides on top. With no file, defaults apply.
func (l *Loader) Load(workDir string) (*Config, error) {
	cfg := Default()

	path, err := l.find(workDir)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := loadInto(path, cfg); err != nil {
			return nil, err
		}
		log.Debug().Str("path", path).Msg("Loaded config")
	} else {
		log.Debug().Msg("No config file found, using defaults")
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath loads a config file given on the command line.
func (l *Loader) LoadFromPath(path string) (*Config, error) {
	if err := validateConfigPath(path); err != nil {
		return nil, err
	}
	cfg := Default()
	if err := loadInto(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) find(workDir string) (string, error) {
	for _, p := range []string{filepath.Join(workDir, l.projectPath), l.globalPath} {
		_, err := os.Stat(p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("failed to stat config %s: %w", p, err)
		}
	}
	return "", nil
}

// validateConfigPath rejects traversal and anything not named duet.json.
func validateConfigPath(path string) error {
	if strings.Contains(path, "..") {
		return fmt.Errorf("invalid config path: path traversal not allowed")
	}
	if filepath.Base(filepath.Clean(path)) != FileName {
		return fmt.Errorf("invalid config path: must be a %s file", FileName)
	}
	return nil
}

func loadInto(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	checkFilePermissions(path)
	return nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} with the variable's value, or "" if unset.
func expandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		if value, ok := os.LookupEnv(match[2 : len(match)-1]); ok {
			return value
		}
		log.Debug().Msg("Referenced environment variable not set in config")
		return ""
	})
}

func checkFilePermissions(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if mode := info.Mode().Perm(); mode&0077 != 0 {
		log.Warn().
			Str("path", path).
			Str("permissions", fmt.Sprintf("%04o", mode)).
			Msg("Config file may contain secrets but has permissive permissions. Consider: chmod 600")
	}
}

// applyEnv overrides file values with set environment variables.
func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"LIVEKIT_URL":        &c.Room.URL,
		"LIVEKIT_API_KEY":    &c.Room.APIKey,
		"LIVEKIT_API_SECRET": &c.Room.APISecret,
		"HEDRA_API_KEY":      &c.Avatar.APIKey,
		"GEMINI_API_KEY":     &c.LLM.APIKey,
		"DUET_LLM_MODEL":     &c.LLM.Model,
		"DUET_TTS_PROVIDER":  &c.Voice.Provider,
		"DUET_TURNLOG_TABLE": &c.TurnLog.Table,
		"DUET_MODE":          &c.Conversation.Mode,
		"DUET_NOISE_CANCEL":  &c.NoiseCancellation,
	}
	for name, dst := range strs {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("OPENAI_API_KEY"); v != "" && c.Voice.APIKey == "" && c.Voice.Provider == "openai" {
		c.Voice.APIKey = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		if c.TurnLog.Region == "" {
			c.TurnLog.Region = v
		}
		if c.Voice.Region == "" {
			c.Voice.Region = v
		}
	}
	if v := os.Getenv("DUET_MAX_CHAIN"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DUET_MAX_CHAIN %q: %w", v, err)
		}
		c.Conversation.MaxChain = n
	}
	if v := os.Getenv("DUET_AVATAR_START_GAP"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid DUET_AVATAR_START_GAP %q: %w", v, err)
		}
		c.Avatar.StartGap = Duration(d)
	}
	return nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if _, err := session.ParseMode(c.Conversation.Mode); err != nil {
		return err
	}
	if c.Conversation.MaxChain < 0 {
		return fmt.Errorf("conversation.maxChain must not be negative")
	}
	if c.Avatar.StartGap < 0 {
		return fmt.Errorf("avatar.startGap must not be negative")
	}
	return nil
}

// MaskSecrets returns a copy safe to print.
func (c *Config) MaskSecrets() *Config {
	if c == nil {
		return nil
	}
	masked := *c
	for _, s := range []*string{&masked.Room.APIKey, &masked.Room.APISecret, &masked.Avatar.APIKey, &masked.LLM.APIKey, &masked.Voice.APIKey} {
		if *s != "" {
			*s = fmt.Sprintf("[set, %d chars]", len(*s))
		}
	}
	return &masked
}

// Save writes cfg to path with owner-only permissions.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), persona.DirPermission); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
