// Package config loads the JSON configuration file, writing defaults on
// first run. Environment variables take highest precedence.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/user/schemabot/internal/types"
)

type Config struct {
	DataDir       string `json:"data_dir"`
	LogLevel      string `json:"log_level"`
	MaxConcurrent int    `json:"max_concurrent"`
	Warehouse     struct {
		// Project scopes catalog enumeration.
		Project string `json:"project"`
		// SchemaTable is the one table the chat trigger describes. Accepts
		// "table", "dataset.table" or "project.dataset.table".
		SchemaTable string `json:"schema_table"`
		// ImpersonateServiceAccount, when set, makes every warehouse call
		// use tokens minted for this identity instead of the ambient one.
		ImpersonateServiceAccount string `json:"impersonate_service_account"`
		// Dataset is the default dataset for short schema_table forms.
		Dataset string `json:"dataset"`
	} `json:"warehouse"`
	Chat struct {
		// Trigger is compared against inbound messages byte-for-byte.
		Trigger string `json:"trigger"`
	} `json:"chat"`
	Telegram struct {
		Token string `json:"token"`
	} `json:"telegram"`
	HTTP struct {
		Enabled bool   `json:"enabled"`
		Listen  string `json:"listen"`
	} `json:"http"`
}

// SchemaTableRef resolves the configured schema table into a fully
// qualified reference, filling missing parts from project and dataset.
func (c *Config) SchemaTableRef() (types.TableRef, error) {
	if c.Warehouse.SchemaTable == "" {
		return types.TableRef{}, fmt.Errorf("warehouse.schema_table is not configured")
	}
	return types.ParseTableRef(c.Warehouse.SchemaTable, c.Warehouse.Project, c.Warehouse.Dataset)
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		DataDir:       filepath.Join(os.Getenv("HOME"), ".schemabot"),
		LogLevel:      "info",
		MaxConcurrent: 2,
	}
	cfg.Chat.Trigger = "dq_lineage_exp"
	cfg.HTTP.Enabled = true
	cfg.HTTP.Listen = "127.0.0.1:8791"

	// Load from file if exists, otherwise write defaults
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	}

	// Override from env (highest precedence)
	if project := os.Getenv("SCHEMABOT_PROJECT"); project != "" {
		cfg.Warehouse.Project = project
	}
	if table := os.Getenv("SCHEMABOT_SCHEMA_TABLE"); table != "" {
		cfg.Warehouse.SchemaTable = table
	}
	if sa := os.Getenv("GOOGLE_IMPERSONATE_SERVICE_ACCOUNT"); sa != "" {
		cfg.Warehouse.ImpersonateServiceAccount = sa
	}
	if trigger := os.Getenv("SCHEMABOT_TRIGGER"); trigger != "" {
		cfg.Chat.Trigger = trigger
	}
	if tgToken := os.Getenv("TELEGRAM_BOT_TOKEN"); tgToken != "" {
		cfg.Telegram.Token = tgToken
	}

	return cfg, nil
}

// Save writes the config atomically: temp file then rename.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	data = append(data, '\n')
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

// ListValues returns the config as a flat dot-keyed map, masking secrets
// when mask is set.
func ListValues(cfg *Config, mask bool) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	var nested map[string]any
	if err := json.Unmarshal(data, &nested); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	flat := Flatten(nested)
	if mask {
		flat = MaskSecrets(flat)
	}
	return flat, nil
}

// GetValue loads the config at path and returns the value for one
// dot-separated key. Secrets come back masked.
func GetValue(path, key string) (any, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	values, err := ListValues(cfg, true)
	if err != nil {
		return nil, err
	}
	val, ok := values[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
	return val, nil
}

// SetValue sets one dot-separated key in the config file and saves it.
// Values are coerced against the existing field type via JSON round trip.
func SetValue(path, key, value string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	values, err := ListValues(cfg, false)
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return fmt.Errorf("unknown config key: %s", key)
	}
	values[key] = coerce(value)

	data, err := json.Marshal(Unflatten(values))
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	updated := &Config{}
	if err := json.Unmarshal(data, updated); err != nil {
		return fmt.Errorf("apply %s: %w", key, err)
	}
	return Save(path, updated)
}

// coerce interprets value as bool or number when it parses as one, string
// otherwise.
func coerce(value string) any {
	var v any
	if err := json.Unmarshal([]byte(value), &v); err != nil {
		return value
	}
	switch v.(type) {
	case bool, float64:
		return v
	default:
		return value
	}
}
