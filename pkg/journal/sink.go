package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
	"github.com/xuri/excelize/v2"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"

	SuccessBaseName = "sync_success_log"
	ErrorBaseName   = "sync_error_log"
)

var ErrUnknownFormat = errors.New("unknown journal format")

// Sink persists one table of entries.
type Sink interface {
	Ext() string
	Write(path string, entries []Entry) error
}

func NewSink(format string) (Sink, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatCSV:
		return CSVSink{}, nil
	case FormatXLSX:
		return XLSXSink{}, nil
	default:
		return nil, errors.Wrapf(ErrUnknownFormat, "%q", format)
	}
}

// Paths names the files written by Flush.
type Paths struct {
	Success string
	Error   string
}

// Flush writes both logs into dir. Both files are always written, even when
// empty, so a clean run overwrites the error log of a previous one.
func Flush(j *Journal, dir string, sink Sink) (Paths, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Paths{}, errors.Wrap(err, "create journal dir")
	}
	p := Paths{
		Success: filepath.Join(dir, SuccessBaseName+"."+sink.Ext()),
		Error:   filepath.Join(dir, ErrorBaseName+"."+sink.Ext()),
	}
	if err := sink.Write(p.Success, j.Successes()); err != nil {
		return p, errors.Wrap(err, "write success log")
	}
	if err := sink.Write(p.Error, j.Errors()); err != nil {
		return p, errors.Wrap(err, "write error log")
	}
	return p, nil
}

type CSVSink struct{}

func (CSVSink) Ext() string { return FormatCSV }

func (CSVSink) Write(path string, entries []Entry) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create")
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close")
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(Columns); err != nil {
		return errors.Wrap(err, "write header")
	}
	for _, e := range entries {
		if err := w.Write(e.Record()); err != nil {
			return errors.Wrap(err, "write row")
		}
	}
	w.Flush()
	return errors.Wrap(w.Error(), "flush")
}

type XLSXSink struct{}

func (XLSXSink) Ext() string { return FormatXLSX }

func (XLSXSink) Write(path string, entries []Entry) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return errors.Wrap(err, "write header")
	}
	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.Wrap(err, "cell name")
		}
		row := []any{e.Email, e.Action, e.Details, e.Status, e.Response}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.Wrapf(err, "write row %d", i+1)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return errors.Wrap(err, "save")
	}
	return nil
}
