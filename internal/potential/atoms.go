package potential

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Atom is one scatterer of the specimen slice. Positions are in Angstroms.
type Atom struct {
	Z         int
	X, Y      float64
	Depth     float64
	Occupancy float64
}

func (a Atom) validate() error {
	switch {
	case a.Z <= 0:
		return fmt.Errorf("%w: atomic number %d", ErrInvalidParameter, a.Z)
	case !finite(a.X) || !finite(a.Y) || !finite(a.Depth):
		return fmt.Errorf("%w: position (%g, %g, %g)", ErrInvalidParameter, a.X, a.Y, a.Depth)
	case !(a.Occupancy >= 0 && a.Occupancy <= 1):
		return fmt.Errorf("%w: occupancy %g", ErrInvalidParameter, a.Occupancy)
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// LoadAtoms reads an atom list from a CSV file. See ReadAtoms.
func LoadAtoms(path string) ([]Atom, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	atoms, err := ReadAtoms(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return atoms, nil
}

// ReadAtoms parses rows of Z,x,y,z,occupancy. A first row whose leading
// field is not a number is taken as a header and skipped.
func ReadAtoms(r io.Reader) ([]Atom, error) {
	rows, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	first := 1
	if len(rows) > 0 && isHeader(rows[0]) {
		rows = rows[1:]
		first = 2
	}
	atoms := make([]Atom, 0, len(rows))
	for i, row := range rows {
		a, err := parseAtom(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+first, err)
		}
		atoms = append(atoms, a)
	}
	return atoms, nil
}

func isHeader(row []string) bool {
	if len(row) == 0 {
		return false
	}
	_, err := strconv.ParseFloat(strings.TrimSpace(row[0]), 64)
	return err != nil
}

func parseAtom(row []string) (Atom, error) {
	if len(row) != 5 {
		return Atom{}, fmt.Errorf("%w: want 5 fields, have %d", ErrInvalidParameter, len(row))
	}
	var v [5]float64
	for j, field := range row {
		f, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return Atom{}, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
		}
		v[j] = f
	}
	if v[0] != math.Trunc(v[0]) {
		return Atom{}, fmt.Errorf("%w: atomic number %g", ErrInvalidParameter, v[0])
	}
	a := Atom{Z: int(v[0]), X: v[1], Y: v[2], Depth: v[3], Occupancy: v[4]}
	return a, a.validate()
}

func readCSV(
	in io.Reader,
) (
	[][]string, error,
) {
	r := csv.NewReader(in)
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1
	r.Comment = '#'
	return r.ReadAll()
}
