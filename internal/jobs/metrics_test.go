package jobmetrics

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	require.NoError(t, m.Track("ledger:relay").End(nil))
	boom := errors.New("boom")
	assert.Same(t, boom, m.Track("ledger:relay").End(boom))

	expected := `
# HELP vaultledger_jobs_failures_total Total failures observed for background jobs.
# TYPE vaultledger_jobs_failures_total counter
vaultledger_jobs_failures_total{job="ledger:relay"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "vaultledger_jobs_failures_total"))

	count, err := testutil.GatherAndCount(reg, "vaultledger_jobs_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestAddViolationsIgnoresEmptyCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.AddViolations("unbalanced", 0)
	m.AddViolations("entry_count", 3)

	count, err := testutil.GatherAndCount(reg, "vaultledger_ledger_integrity_violations_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NoError(t, m.Track("x").End(nil))
	m.AddViolations("unbalanced", 1)
}
