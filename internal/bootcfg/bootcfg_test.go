package bootcfg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadNilBlobRoundTripsToDefaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	require.Equal(t, DefaultBootConfig(), cfg)
}

func TestLoadPartialDocumentOverridesOnlyNamedFields(t *testing.T) {
	cfg, err := Load([]byte("timer_hz: 1000\ntheme: midnight\n"))
	require.NoError(t, err)
	require.EqualValues(t, 1000, cfg.TimerHz)
	require.Equal(t, "midnight", cfg.Theme)
	require.EqualValues(t, DefaultBootConfig().NICRingSize, cfg.NICRingSize)
}

func TestLoadMalformedYAMLFallsBackToDefaults(t *testing.T) {
	cfg, err := Load([]byte("timer_hz: [this is not a scalar"))
	require.Error(t, err)
	require.Equal(t, DefaultBootConfig(), cfg)
}
