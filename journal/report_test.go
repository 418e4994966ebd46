package journal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunOrg(t *testing.T) {
	t.Parallel()

	run := Run{
		RunID:      "01J0000000000000000000000",
		Created:    time.Date(2025, 7, 1, 9, 30, 0, 0, time.UTC),
		Start:      time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		End:        time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		DateColumn: "m_date",
		Features:   []string{"c_trend_following_signal_21d", "c_investable_universe_63d"},
		Tickers:    []string{"AAPL", "MSFT"},
		Failed:     []string{"c_investable_universe_63d"},
	}
	s, err := RunOrg(run)
	require.NoError(t, err)

	for _, want := range []string{
		"* CROSS-SECTION RUN 01J0000000000000000000000",
		":START_DATE:  2020-01-01",
		":END_DATE:    2025-06-30",
		":TICKERS:     2",
		":CREATED:     [2025-07-01 Tue 09:30]",
		"| c_trend_following_signal_21d | ok |",
		"| c_investable_universe_63d | failed |",
		"AAPL, MSFT",
	} {
		assert.Contains(t, s, want)
	}
}

func TestWriteRunOrgDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.org")
	require.NoError(t, WriteRunOrg(path, Run{}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, "(run-id?)")
	assert.Contains(t, s, ":START_DATE:  (unset)")
	assert.False(t, strings.Contains(s, "** Tickers"))
}
