package config

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/mlinspect/checks"
	"github.com/viant/mlinspect/instrumentation/source"
)

func TestLoad(t *testing.T) {
	URL, err := filepath.Abs(filepath.Join("testdata", "healthcare.yaml"))
	require.NoError(t, err)
	cfg, err := Load(context.Background(), URL)
	require.NoError(t, err)
	assert.Equal(t, "healthcare", cfg.Pipeline)
	assert.Equal(t, source.DefaultCacheSize, cfg.LocatorCacheSize)
	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, level)

	inspectionList, err := cfg.Inspections()
	require.NoError(t, err)
	var ids []string
	for _, inspection := range inspectionList {
		ids = append(ids, inspection.ID())
	}
	assert.Equal(t, []string{"RowLineage(5)", "MaterializeFirstOutputRows(5)"}, ids)

	checkList, err := cfg.Checks()
	require.NoError(t, err)
	require.Len(t, checkList, 2)
	bias := checkList[0].(*checks.NoBiasIntroducedFor)
	assert.Equal(t, []string{"age_group", "race"}, bias.SensitiveColumns)
	assert.Equal(t, -0.2, bias.MinAllowedRelativeRatioChange)
	assert.Equal(t, checks.DefaultMaxAllowedProbabilityDifference, bias.MaxAllowedProbabilityDifference)
	assert.Equal(t, []string{"income"}, checkList[1].(*checks.NoIllegalFeatures).Additional)
}

func TestConfig_Errors(t *testing.T) {
	testCases := []struct {
		description string
		config      *Config
	}{
		{description: "unknown inspection", config: &Config{Inspections: []*Inspection{{Kind: "Histogram"}}}},
		{description: "unknown check", config: &Config{Checks: []*Check{{Kind: "NoBias"}}}},
		{description: "bias check without columns", config: &Config{Checks: []*Check{{Kind: NoBiasIntroducedFor}}}},
		{description: "log level", config: &Config{LogLevel: "loud"}},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			_, inspectionErr := testCase.config.Inspections()
			_, checkErr := testCase.config.Checks()
			_, levelErr := testCase.config.Level()
			assert.True(t, inspectionErr != nil || checkErr != nil || levelErr != nil)
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
