package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// WriteCSV writes equal-length columns under a header row to name in the run
// directory.
func (r *Run) WriteCSV(
	name string,
	header []string,
	cols ...[]float64,
) (err error) {
	if len(header) != len(cols) {
		return fmt.Errorf("report: %d headers for %d columns", len(header), len(cols))
	}
	n := -1
	for i, c := range cols {
		if n >= 0 && len(c) != n {
			return fmt.Errorf("report: column %q has %d rows, want %d", header[i], len(c), n)
		}
		n = len(c)
	}

	f, err := os.Create(r.Path(name))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	row := make([]string, len(cols))
	for i := 0; i < n; i++ {
		for j, c := range cols {
			row[j] = strconv.FormatFloat(c[i], 'g', -1, 64)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
