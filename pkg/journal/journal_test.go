package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleJournal() *Journal {
	j := New()
	j.Append(Entry{Email: "a@x.com", Action: "Update Profile", Details: "Capacity/CFs", Status: 200, Response: "{}", Outcome: OutcomeSuccess})
	j.Append(Entry{Email: "b@x.com", Action: "Add to Group", Details: "Team", Status: 500, Response: "boom", Outcome: OutcomeFailure})
	j.Append(Entry{Email: "c@x.com", Action: "Note", Details: "", Status: 0, Outcome: OutcomeInfo})
	return j
}

func TestJournal_Routing(t *testing.T) {
	t.Parallel()

	j := sampleJournal()
	require.Len(t, j.Successes(), 2)
	require.Len(t, j.Errors(), 1)
	require.Equal(t, 1, j.Infos())
	require.Equal(t, 3, j.Len())
	require.True(t, j.HasErrors())
	require.False(t, New().HasErrors())
}

func TestFlush_CSV(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "out")
	sink, err := NewSink("csv")
	require.NoError(t, err)

	paths, err := Flush(sampleJournal(), dir, sink)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "sync_success_log.csv"), paths.Success)
	require.Equal(t, filepath.Join(dir, "sync_error_log.csv"), paths.Error)

	f, err := os.Open(paths.Error)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"Email", "Action", "Details", "Status", "Response"},
		{"b@x.com", "Add to Group", "Team", "500", "boom"},
	}, rows)
}

func TestFlush_XLSX(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sink, err := NewSink("XLSX")
	require.NoError(t, err)

	paths, err := Flush(sampleJournal(), dir, sink)
	require.NoError(t, err)

	f, err := excelize.OpenFile(paths.Success)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, Columns, rows[0])
	require.Equal(t, []string{"a@x.com", "Update Profile", "Capacity/CFs", "200", "{}"}, rows[1])
}

func TestNewSink_Unknown(t *testing.T) {
	t.Parallel()

	_, err := NewSink("parquet")
	require.True(t, errors.Is(err, ErrUnknownFormat))
}
