package infrastructure

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Francouer/proto-guard/internal/domain"
)

// fileConfig mirrors the yaml layout. Scalar fields are pointers so that
// an absent key keeps its default while an explicit false or zero wins.
type fileConfig struct {
	Validator struct {
		StrictMode             *bool `yaml:"strict_mode"`
		CheckNamingConventions *bool `yaml:"check_naming_conventions"`
		CheckFieldNumbers      *bool `yaml:"check_field_numbers"`
		CheckReservedFields    *bool `yaml:"check_reserved_fields"`
		AllowProto2            *bool `yaml:"allow_proto2"`
		RequirePackage         *bool `yaml:"require_package"`
		MaxErrors              *int  `yaml:"max_errors"`
		IncludeWarnings        *bool `yaml:"include_warnings"`
	} `yaml:"validator"`
	Watch struct {
		DebounceInterval string   `yaml:"debounce_interval"`
		Extensions       []string `yaml:"extensions"`
		SkipHidden       *bool    `yaml:"skip_hidden"`
	} `yaml:"watch"`
	History struct {
		Path string `yaml:"path"`
	} `yaml:"history"`
	Output struct {
		Format string `yaml:"format"`
	} `yaml:"output"`
}

type ConfigRepositoryImpl struct {
	logger   domain.Logger
	fileRepo domain.FileRepository
}

// NewConfigRepository creates a new config repository
func NewConfigRepository(logger domain.Logger, fileRepo domain.FileRepository) domain.ConfigRepository {
	return &ConfigRepositoryImpl{
		logger:   logger,
		fileRepo: fileRepo,
	}
}

// Load reads the yaml config at path and merges it over the defaults.
// An empty path means no config file was requested and yields the
// defaults as they are.
func (c *ConfigRepositoryImpl) Load(path string) (*domain.Config, error) {
	cfg := domain.DefaultConfig()
	if path == "" {
		return &cfg, nil
	}

	if !c.fileRepo.FileExists(path) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	data, err := c.fileRepo.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	applyBool(&cfg.Validator.StrictMode, fc.Validator.StrictMode)
	applyBool(&cfg.Validator.CheckNamingConventions, fc.Validator.CheckNamingConventions)
	applyBool(&cfg.Validator.CheckFieldNumbers, fc.Validator.CheckFieldNumbers)
	applyBool(&cfg.Validator.CheckReservedFields, fc.Validator.CheckReservedFields)
	applyBool(&cfg.Validator.AllowProto2, fc.Validator.AllowProto2)
	applyBool(&cfg.Validator.RequirePackage, fc.Validator.RequirePackage)
	applyInt(&cfg.Validator.MaxErrors, fc.Validator.MaxErrors)
	applyBool(&cfg.Validator.IncludeWarnings, fc.Validator.IncludeWarnings)

	if fc.Watch.DebounceInterval != "" {
		d, err := time.ParseDuration(fc.Watch.DebounceInterval)
		if err != nil {
			return nil, fmt.Errorf("invalid debounce_interval %q: %w", fc.Watch.DebounceInterval, err)
		}
		cfg.Watch.DebounceInterval = d
	}
	if len(fc.Watch.Extensions) > 0 {
		cfg.Watch.Extensions = fc.Watch.Extensions
	}
	applyBool(&cfg.Watch.SkipHidden, fc.Watch.SkipHidden)

	if fc.History.Path != "" {
		cfg.History.Path = fc.History.Path
	}
	if fc.Output.Format != "" {
		cfg.Output.Format = fc.Output.Format
	}

	c.logger.Debug("loaded config from %s", path)

	return &cfg, nil
}

func applyBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func applyInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}
