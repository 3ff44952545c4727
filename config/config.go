package config

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/viant/afs"
	"github.com/viant/mlinspect/checks"
	"github.com/viant/mlinspect/inspections"
	"github.com/viant/mlinspect/instrumentation/source"
	"gopkg.in/yaml.v3"
)

// Inspection kinds
const (
	HistogramForColumns        = "HistogramForColumns"
	RowLineage                 = "RowLineage"
	MaterializeFirstOutputRows = "MaterializeFirstOutputRows"
	CompletenessOfColumns      = "CompletenessOfColumns"
	CountDistinctOfColumns     = "CountDistinctOfColumns"
)

// Check kinds
const (
	NoBiasIntroducedFor = "NoBiasIntroducedFor"
	NoIllegalFeatures   = "NoIllegalFeatures"
)

// Inspection configures one inspection
type Inspection struct {
	Kind    string   `yaml:"kind"`
	Columns []string `yaml:"columns,omitempty"`
	Rows    int      `yaml:"rows,omitempty"`
}

// Check configures one check, unset thresholds keep their defaults
type Check struct {
	Kind                            string   `yaml:"kind"`
	SensitiveColumns                []string `yaml:"sensitiveColumns,omitempty"`
	MinAllowedRelativeRatioChange   *float64 `yaml:"minAllowedRelativeRatioChange,omitempty"`
	MaxAllowedProbabilityDifference *float64 `yaml:"maxAllowedProbabilityDifference,omitempty"`
	IllegalFeatures                 []string `yaml:"illegalFeatures,omitempty"`
}

// Config describes an inspection run
type Config struct {
	Pipeline         string        `yaml:"pipeline,omitempty"`
	LogLevel         string        `yaml:"logLevel,omitempty"`
	LocatorCacheSize int           `yaml:"locatorCacheSize,omitempty"`
	DAG              string        `yaml:"dag,omitempty"` // URL receiving the extracted DAG
	Inspections      []*Inspection `yaml:"inspections,omitempty"`
	Checks           []*Check      `yaml:"checks,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel:         logrus.InfoLevel.String(),
		LocatorCacheSize: source.DefaultCacheSize,
	}
}

// Load reads a YAML config from any afs supported URL, unset fields keep their defaults
func Load(ctx context.Context, URL string) (*Config, error) {
	data, err := afs.New().DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %v: %w", URL, err)
	}
	cfg := DefaultConfig()
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config %v: %w", URL, err)
	}
	return cfg, nil
}

// Level returns the configured log level
func (c *Config) Level() (logrus.Level, error) {
	if c.LogLevel == "" {
		return logrus.InfoLevel, nil
	}
	return logrus.ParseLevel(c.LogLevel)
}

// Inspections creates the configured inspections
func (c *Config) Inspections() ([]inspections.Inspection, error) {
	var result []inspections.Inspection
	for _, item := range c.Inspections {
		switch item.Kind {
		case HistogramForColumns:
			result = append(result, inspections.NewHistogramForColumns(item.Columns...))
		case RowLineage:
			result = append(result, inspections.NewRowLineage(item.Rows))
		case MaterializeFirstOutputRows:
			result = append(result, inspections.NewMaterializeFirstOutputRows(item.Rows))
		case CompletenessOfColumns:
			result = append(result, inspections.NewCompletenessOfColumns(item.Columns...))
		case CountDistinctOfColumns:
			result = append(result, inspections.NewCountDistinctOfColumns(item.Columns...))
		default:
			return nil, fmt.Errorf("unsupported inspection: %v", item.Kind)
		}
	}
	return result, nil
}

// Checks creates the configured checks
func (c *Config) Checks() ([]checks.Check, error) {
	var result []checks.Check
	for _, item := range c.Checks {
		switch item.Kind {
		case NoBiasIntroducedFor:
			if len(item.SensitiveColumns) == 0 {
				return nil, fmt.Errorf("%v requires sensitiveColumns", item.Kind)
			}
			check := checks.NewNoBiasIntroducedFor(item.SensitiveColumns...)
			if item.MinAllowedRelativeRatioChange != nil {
				check.MinAllowedRelativeRatioChange = *item.MinAllowedRelativeRatioChange
			}
			if item.MaxAllowedProbabilityDifference != nil {
				check.MaxAllowedProbabilityDifference = *item.MaxAllowedProbabilityDifference
			}
			result = append(result, check)
		case NoIllegalFeatures:
			result = append(result, checks.NewNoIllegalFeatures(item.IllegalFeatures...))
		default:
			return nil, fmt.Errorf("unsupported check: %v", item.Kind)
		}
	}
	return result, nil
}
