package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// dataKeySettings are sections whose keys are response JSON paths rather than
// setting names. gjson paths are case-sensitive but viper lowercases every key
// it loads, so these sections are read again from the file as written.
var dataKeySettings = []string{"expectjson", "expect_json", "expect-json"}

// restoreDataKeys replaces the lowercased data-key sections in settings with
// the original mappings from the config file at path.
func restoreDataKeys(path string, settings map[string]interface{}) error {
	raw, err := readRawSettings(path)
	if err != nil {
		return err
	}
	for key, val := range raw {
		name := strings.ToLower(strings.TrimSpace(key))
		if !slices.Contains(dataKeySettings, name) {
			continue
		}
		if _, isMap := val.(map[string]interface{}); isMap {
			settings[name] = val
		}
	}
	return nil
}

// readRawSettings decodes the top level of a JSON or YAML config file without
// touching key case. Other formats return nil.
func readRawSettings(path string) (map[string]interface{}, error) {
	var unmarshal func([]byte, any) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		unmarshal = json.Unmarshal
	case ".yaml", ".yml":
		unmarshal = yaml.Unmarshal
	default:
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]interface{}
	if err := unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return raw, nil
}
