// Package report renders and persists sweep results: CSV export with exact
// float round-tripping, a two-panel Bode plot image, and an on-terminal
// summary table.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/cwbudde/bodeplot/measure/response"
)

// ErrNoPoints is returned when asked to render an empty result.
var ErrNoPoints = errors.New("report: no measured points")

var csvHeader = []string{"frequency", "gain_dB", "phase_deg"}

// WriteCSV writes one header row and one row per point, in the order given.
// Floats use the shortest representation that round-trips exactly, so
// ReadCSV restores the same sequence.
func WriteCSV(w io.Writer, points []response.Point) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("report: writing CSV header: %w", err)
	}

	for _, p := range points {
		row := []string{
			formatFloat(p.Frequency),
			formatFloat(p.GainDB),
			formatFloat(p.PhaseDeg),
		}

		if err := cw.Write(row); err != nil {
			return fmt.Errorf("report: writing CSV row: %w", err)
		}
	}

	cw.Flush()

	return cw.Error()
}

// WriteCSVFile writes the points to the named file, creating or truncating
// it.
func WriteCSVFile(path string, points []response.Point) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: creating %s: %w", path, err)
	}

	if err := WriteCSV(f, points); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

// ReadCSV parses a CSV produced by WriteCSV back into the ordered point
// sequence.
func ReadCSV(r io.Reader) ([]response.Point, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("report: reading CSV: %w", err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("report: missing CSV header")
	}

	points := make([]response.Point, 0, len(rows)-1)

	for i, row := range rows[1:] {
		var p response.Point

		fields := []struct {
			dst *float64
			val string
		}{
			{&p.Frequency, row[0]},
			{&p.GainDB, row[1]},
			{&p.PhaseDeg, row[2]},
		}

		for _, f := range fields {
			v, err := strconv.ParseFloat(f.val, 64)
			if err != nil {
				return nil, fmt.Errorf("report: row %d: parsing %q: %w", i+2, f.val, err)
			}

			*f.dst = v
		}

		points = append(points, p)
	}

	return points, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
