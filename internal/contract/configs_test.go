package contract

import (
	"testing"

	"github.com/huangsam/cgmlens/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() *ConfigRawInput {
	return &ConfigRawInput{
		Output:         "text",
		Precision:      1,
		Color:          "no",
		Unit:           "mg/dL",
		CacheBackend:   "none",
		HistoryBackend: "none",
	}
}

func TestProcessAndValidate(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	n := func(v int) *int { return &v }

	tests := []struct {
		name        string
		mutate      func(*ConfigRawInput)
		expectError bool
		check       func(*testing.T, *Config)
	}{
		{
			name:   "valid minimal config",
			mutate: func(*ConfigRawInput) {},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, schema.TextOut, cfg.Output)
				assert.Equal(t, schema.UnitMgDL, cfg.Engine.Unit)
				assert.Equal(t, schema.DefaultConfidenceWeights(), cfg.Engine.ConfidenceWeights)
				assert.Equal(t, 10, cfg.Engine.MinQualifyingEvents)
			},
		},
		{
			name:   "mmol unit switches thresholds",
			mutate: func(in *ConfigRawInput) { in.Unit = "mmol/L" },
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, schema.UnitMmolL, cfg.Engine.Unit)
				assert.InDelta(t, 2.0, cfg.Engine.JumpArtifactThreshold, 1e-9)
			},
		},
		{
			name:        "invalid unit",
			mutate:      func(in *ConfigRawInput) { in.Unit = "grams" },
			expectError: true,
		},
		{
			name:        "invalid output",
			mutate:      func(in *ConfigRawInput) { in.Output = "xml" },
			expectError: true,
		},
		{
			name:        "parquet without file",
			mutate:      func(in *ConfigRawInput) { in.Output = "parquet" },
			expectError: true,
		},
		{
			name:        "invalid color",
			mutate:      func(in *ConfigRawInput) { in.Color = "maybe" },
			expectError: true,
		},
		{
			name:   "workers default to cpu count",
			mutate: func(*ConfigRawInput) {},
			check: func(t *testing.T, cfg *Config) {
				assert.Positive(t, cfg.Workers)
			},
		},
		{
			name:   "explicit workers",
			mutate: func(in *ConfigRawInput) { in.Workers = 3 },
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 3, cfg.Workers)
			},
		},
		{
			name:        "negative workers",
			mutate:      func(in *ConfigRawInput) { in.Workers = -1 },
			expectError: true,
		},
		{
			name:        "precision too high",
			mutate:      func(in *ConfigRawInput) { in.Precision = 9 },
			expectError: true,
		},
		{
			name: "window flags and min events",
			mutate: func(in *ConfigRawInput) {
				in.BaselineWindow = "-45,-5"
				in.ResponseWindow = "0,120"
				in.MinEvents = 6
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, schema.WindowSpec{StartOffsetMinutes: -45, EndOffsetMinutes: -5}, cfg.Engine.BaselineWindow)
				assert.Equal(t, schema.WindowSpec{StartOffsetMinutes: 0, EndOffsetMinutes: 120}, cfg.Engine.ResponseWindow)
				assert.Equal(t, 6, cfg.Engine.MinQualifyingEvents)
			},
		},
		{
			name:        "reversed window",
			mutate:      func(in *ConfigRawInput) { in.ResponseWindow = "120,0" },
			expectError: true,
		},
		{
			name: "engine overrides",
			mutate: func(in *ConfigRawInput) {
				in.Engine.CoverageWarnThreshold = f(0.8)
				in.Engine.FlatlineRunLength = n(4)
			},
			check: func(t *testing.T, cfg *Config) {
				assert.InDelta(t, 0.8, cfg.Engine.CoverageWarnThreshold, 1e-9)
				assert.Equal(t, 4, cfg.Engine.FlatlineRunLength)
			},
		},
		{
			name:        "fail threshold above warn",
			mutate:      func(in *ConfigRawInput) { in.Engine.CoverageFailThreshold = f(0.9) },
			expectError: true,
		},
		{
			name:        "flatline run too short",
			mutate:      func(in *ConfigRawInput) { in.Engine.FlatlineRunLength = n(1) },
			expectError: true,
		},
		{
			name: "custom weights summing to one",
			mutate: func(in *ConfigRawInput) {
				in.Weights = WeightsRawInput{DataCompleteness: f(0.25), MethodologyReliability: f(0.25), ConfoundControl: f(0.25), TimingAccuracy: f(0.25)}
			},
			check: func(t *testing.T, cfg *Config) {
				assert.InDelta(t, 0.25, cfg.Engine.ConfidenceWeights.TimingAccuracy, 1e-9)
			},
		},
		{
			name:        "weights not summing to one",
			mutate:      func(in *ConfigRawInput) { in.Weights.DataCompleteness = f(0.9) },
			expectError: true,
		},
		{
			name:        "invalid cache backend",
			mutate:      func(in *ConfigRawInput) { in.CacheBackend = "redis" },
			expectError: true,
		},
		{
			name: "mysql history without connection string",
			mutate: func(in *ConfigRawInput) {
				in.HistoryBackend = "mysql"
			},
			expectError: true,
		},
		{
			name: "same sqlite file for cache and history",
			mutate: func(in *ConfigRawInput) {
				in.CacheBackend = "sqlite"
				in.HistoryBackend = "sqlite"
				in.CacheDBConnect = "/tmp/shared.db"
				in.HistoryDBConnect = "/tmp/shared.db"
			},
			expectError: true,
		},
		{
			name:   "empty history backend defaults to none",
			mutate: func(in *ConfigRawInput) { in.HistoryBackend = "" },
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, schema.NoneBackend, cfg.HistoryBackend)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(input)
			cfg := &Config{}
			err := ProcessAndValidate(cfg, input)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestParseWindow(t *testing.T) {
	tests := []struct {
		input       string
		expected    schema.WindowSpec
		expectError bool
	}{
		{input: "-30,0", expected: schema.WindowSpec{StartOffsetMinutes: -30, EndOffsetMinutes: 0}},
		{input: " 0 , 180 ", expected: schema.WindowSpec{StartOffsetMinutes: 0, EndOffsetMinutes: 180}},
		{input: "0,0", expected: schema.WindowSpec{}},
		{input: "10,-10", expectError: true},
		{input: "10", expectError: true},
		{input: "a,b", expectError: true},
		{input: "1,2,3", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseWindow(tt.input)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestValidateDatabaseConnectionString(t *testing.T) {
	tests := []struct {
		name        string
		backend     schema.DatabaseBackend
		connStr     string
		expectError bool
	}{
		{"sqlite empty", schema.SQLiteBackend, "", false},
		{"none empty", schema.NoneBackend, "", false},
		{"mysql valid", schema.MySQLBackend, "user:pass@tcp(localhost:3306)/cgm", false},
		{"mysql missing tcp", schema.MySQLBackend, "user:pass@localhost/cgm", true},
		{"mysql empty", schema.MySQLBackend, "", true},
		{"postgres valid", schema.PostgreSQLBackend, "host=localhost dbname=cgm", false},
		{"postgres missing dbname", schema.PostgreSQLBackend, "host=localhost", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDatabaseConnectionString(tt.backend, tt.connStr)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigClone(t *testing.T) {
	cfg := &Config{SeriesPath: "series.json", Engine: schema.DefaultEngineConfig(schema.UnitMgDL)}
	clone := cfg.Clone()
	clone.SeriesPath = "other.json"
	clone.Engine.MinQualifyingEvents = 3

	assert.Equal(t, "series.json", cfg.SeriesPath)
	assert.Equal(t, 10, cfg.Engine.MinQualifyingEvents)
}

func TestRevalidateEngine(t *testing.T) {
	tests := []struct {
		name        string
		baseline    string
		response    string
		minEvents   int
		errContains string
		check       func(t *testing.T, eng schema.EngineConfig)
	}{
		{
			name: "no overrides keeps defaults",
			check: func(t *testing.T, eng schema.EngineConfig) {
				assert.Equal(t, schema.DefaultEngineConfig(schema.UnitMgDL), eng)
			},
		},
		{
			name:      "windows and min events applied",
			baseline:  "-45,-5",
			response:  "0,120",
			minEvents: 4,
			check: func(t *testing.T, eng schema.EngineConfig) {
				assert.Equal(t, schema.WindowSpec{StartOffsetMinutes: -45, EndOffsetMinutes: -5}, eng.BaselineWindow)
				assert.Equal(t, schema.WindowSpec{StartOffsetMinutes: 0, EndOffsetMinutes: 120}, eng.ResponseWindow)
				assert.Equal(t, 4, eng.MinQualifyingEvents)
			},
		},
		{name: "bad baseline", baseline: "soon", errContains: "invalid baseline window"},
		{name: "reversed response", response: "60,0", errContains: "invalid response window"},
		{name: "negative min events", minEvents: -1, errContains: "min-events must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Engine: schema.DefaultEngineConfig(schema.UnitMgDL)}
			err := RevalidateEngine(cfg, tt.baseline, tt.response, tt.minEvents)
			if tt.errContains != "" {
				assert.ErrorContains(t, err, tt.errContains)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg.Engine)
		})
	}
}

func TestProcessProfilingConfig(t *testing.T) {
	profile := &ProfileConfig{}
	ProcessProfilingConfig(profile, "")
	assert.False(t, profile.Enabled)

	ProcessProfilingConfig(profile, "run1")
	assert.True(t, profile.Enabled)
	assert.Equal(t, "run1", profile.Prefix)
}
