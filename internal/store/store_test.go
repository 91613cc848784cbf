package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reactor.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordPaymentAccumulatesTotals(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.RecordPayment("11111111-1111-1111-1111-111111111111", 1990))
	require.NoError(t, s.RecordPayment("22222222-2222-2222-2222-222222222222", 2010))

	totals, err := s.GetSummary()
	require.NoError(t, err)
	require.Equal(t, int64(2), totals.TotalRequests)
	require.Equal(t, int64(4000), totals.TotalAmount)
}

func TestRecordPaymentDedupsByCorrelationID(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.RecordPayment("11111111-1111-1111-1111-111111111111", 1990))
	require.NoError(t, s.RecordPayment("11111111-1111-1111-1111-111111111111", 1990))

	totals, err := s.GetSummary()
	require.NoError(t, err)
	require.Equal(t, int64(1), totals.TotalRequests)
	require.Equal(t, int64(1990), totals.TotalAmount)
}

func TestGetSummaryOnEmptyStore(t *testing.T) {
	s := newTestStore(t)

	totals, err := s.GetSummary()
	require.NoError(t, err)
	require.Equal(t, Totals{}, totals)
}

func TestReopenPersistsTotals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reactor.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.RecordPayment("11111111-1111-1111-1111-111111111111", 500))
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	totals, err := s2.GetSummary()
	require.NoError(t, err)
	require.Equal(t, int64(1), totals.TotalRequests)
	require.Equal(t, int64(500), totals.TotalAmount)
}
