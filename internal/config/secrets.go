package config

import (
	"alpaca-tools/internal/model"
	"errors"
	"fmt"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/ini.v1"
)

// DefaultSection is the section whose keys every other section inherits. Keys
// written before the first section header belong to it as well.
const DefaultSection = "DEFAULT"

// ErrConfigSectionNotFound is returned when the requested section is absent
// from the secrets file.
var ErrConfigSectionNotFound = errors.New("config section not found")

// LoadCredentials reads the key/secret/endpoint triple from section of the
// INI file at path. An empty section selects the default one. Keys of the
// default section are inherited by named sections. Key names are matched
// case-insensitively, section names exactly.
func LoadCredentials(path, section string) (model.Credentials, error) {
	var creds model.Credentials

	f, err := ini.LoadSources(ini.LoadOptions{InsensitiveKeys: true}, path)
	if err != nil {
		return creds, fmt.Errorf("read secrets file %s: %w", path, err)
	}

	values := f.Section(ini.DefaultSection).KeysHash()
	if section != "" && section != DefaultSection {
		sec, err := f.GetSection(section)
		if err != nil {
			return creds, fmt.Errorf("%w: section %q in secrets file %s", ErrConfigSectionNotFound, section, path)
		}
		for k, v := range sec.KeysHash() {
			values[k] = v
		}
	}

	if err := mapstructure.Decode(values, &creds); err != nil {
		return creds, fmt.Errorf("decode section %q of %s: %w", section, path, err)
	}
	return creds, nil
}
