package cli

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/sprstat/internal/model"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBand(t *testing.T) {
	tests := []struct {
		in      string
		want    model.Band
		wantErr bool
	}{
		{"200-3000", model.Band{Lower: 200, Upper: 3000}, false},
		{"200:1600", model.Band{Lower: 200, Upper: 1600}, false},
		{" 150.5-900ms ", model.Band{Lower: 150.5, Upper: 900}, false},
		{"3000-200", model.Band{}, true},
		{"200", model.Band{}, true},
		{"a-b", model.Band{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseBand(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newTestViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	require.NoError(t, setDefaults(v, model.DefaultConfig()))
	v.SetEnvPrefix("SPRSTAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func TestDecodeConfig_Defaults(t *testing.T) {
	cfg, err := decodeConfig(newTestViper(t))
	require.NoError(t, err)
	assert.Equal(t, model.DefaultConfig(), cfg)
}

func TestDecodeConfig_Env(t *testing.T) {
	t.Setenv("SPRSTAT_OUTPUT_DIR", "/tmp/results")
	t.Setenv("SPRSTAT_EXCLUSION_OUTLIER_K", "3")
	t.Setenv("SPRSTAT_CACHE_MEMORY_TTL", "5m")
	t.Setenv("SPRSTAT_BOOTSTRAP_ITERATIONS", "500")

	cfg, err := decodeConfig(newTestViper(t))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/results", cfg.Output.Dir)
	assert.Equal(t, 3.0, cfg.Exclusion.OutlierK)
	assert.Equal(t, 5*time.Minute, cfg.Cache.MemoryTTL)
	assert.Equal(t, 500, cfg.Bootstrap.Iterations)
	assert.Equal(t, model.Band{Lower: 200, Upper: 3000}, cfg.Exclusion.WordBand)
}

func TestWriteDefaultConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sprstat", "config.yaml")
	require.NoError(t, writeDefaultConfig(path))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := decodeConfig(v)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultConfig(), cfg)
}
