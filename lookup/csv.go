package lookup

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/warp/pd-rating/generic"
)

// =============================================================================
// CSV DATASET - Five delimited files, one per table
// =============================================================================
//
// Each table is read from "<table>.csv", or "<table>_rows.csv" as exported
// by the hosted database. Headers are matched case-insensitively and
// unknown columns (such as "id") are ignored.

// ReadDataset loads every table from fsys.
func ReadDataset(fsys fs.FS) (Dataset, error) {
	return DecodeDataset(CSVReader(fsys))
}

// LoadCSV reads and indexes the tables in fsys.
func LoadCSV(fsys fs.FS) (*Tables, error) {
	ds, err := ReadDataset(fsys)
	if err != nil {
		return nil, err
	}
	return Build(ds)
}

// CSVReader reads raw tables from CSV files in fsys.
func CSVReader(fsys fs.FS) TableReader {
	return func(table string) (*RawTable, error) {
		return readCSV(fsys, table)
	}
}

func readCSV(fsys fs.FS, table string) (*RawTable, error) {
	var f fs.File
	var err error
	for _, name := range []string{table + ".csv", table + "_rows.csv"} {
		f, err = fsys.Open(name)
		if err == nil {
			break
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
	}
	if err != nil {
		return nil, &generic.SchemaError{Table: table, Detail: "file not found"}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, &generic.SchemaError{Table: table, Detail: "missing header"}
		}
		return nil, fmt.Errorf("read %s header: %w", table, err)
	}
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	return NewRawTable(table, header, rows), nil
}

// WriteCSV writes a raw table as CSV.
func WriteCSV(w io.Writer, t *RawTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write %s: %w", t.Name, err)
	}
	return nil
}
