package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func newTestCSV(t *testing.T) (*CSV, string) {
	t.Helper()
	dir := t.TempDir()
	j, err := NewCSV(filepath.Join(dir, "trades.csv"), filepath.Join(dir, "closed.csv"), filepath.Join(dir, "values.csv"))
	require.NoError(t, err)
	return j, dir
}

func TestCSVJournalHeaders(t *testing.T) {
	t.Parallel()

	j, dir := newTestCSV(t)
	require.NoError(t, j.Close())

	assert.Equal(t, [][]string{tradeHeader}, readCSV(t, filepath.Join(dir, "trades.csv")))
	assert.Equal(t, [][]string{closedHeader}, readCSV(t, filepath.Join(dir, "closed.csv")))
	assert.Equal(t, [][]string{valueHeader}, readCSV(t, filepath.Join(dir, "values.csv")))
}

func TestCSVJournalRecords(t *testing.T) {
	t.Parallel()

	j, dir := newTestCSV(t)
	require.NoError(t, j.RecordTrade(sampleTrade("T1", t0)))
	require.NoError(t, j.RecordClosed(sampleClosed("T0", "T1", "-12.50")))
	require.NoError(t, j.RecordValue(ValueRecord{Time: t1, ValueSymbol: "USD", Value: d("100000.00")}))
	require.NoError(t, j.Close())

	trades := readCSV(t, filepath.Join(dir, "trades.csv"))
	require.Len(t, trades, 2)
	assert.Equal(t, []string{"T1", "2024-01-02T03:04:05Z", "USD", "1234.5", "BTC", "0.02500001", "USD", "1234.5", "signal"}, trades[1])

	closed := readCSV(t, filepath.Join(dir, "closed.csv"))
	require.Len(t, closed, 2)
	assert.Equal(t, "T0", closed[1][0])
	assert.Equal(t, "0.01", closed[1][3])
	assert.Equal(t, "-12.5", closed[1][9])

	values := readCSV(t, filepath.Join(dir, "values.csv"))
	require.Len(t, values, 2)
	assert.Equal(t, []string{"2024-01-02T04:05:06Z", "USD", "100000"}, values[1])
}

func TestCSVJournalBadPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := NewCSV(filepath.Join(dir, "trades.csv"), filepath.Join(dir, "missing", "closed.csv"), filepath.Join(dir, "values.csv"))
	assert.Error(t, err)
}
