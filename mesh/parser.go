package mesh

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ParsePointsFile reads an X;Y;Z point list from a file
func ParsePointsFile(path string) ([]Vec3, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: point file not found: %s", ErrInput, path)
		}
		return nil, fmt.Errorf("reading file: %w", err)
	}
	defer f.Close()
	return ParsePoints(f)
}

// ParsePoints reads semicolon or comma separated X;Y;Z rows. A leading
// non-numeric row is treated as a header and skipped.
func ParsePoints(r io.Reader) ([]Vec3, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading points: %w", err)
	}
	text := string(data)

	cr := csv.NewReader(strings.NewReader(text))
	cr.Comma = csvDelimiter
	if !strings.Contains(text, ";") {
		cr.Comma = ','
	}
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parsing points: %v", ErrInput, err)
	}

	var pts []Vec3
	for i, row := range rows {
		if len(row) < 3 {
			return nil, fmt.Errorf("%w: line %d: need 3 coordinates, got %d", ErrInput, i+1, len(row))
		}
		var xyz [3]float64
		var perr error
		for k := 0; k < 3; k++ {
			if xyz[k], perr = strconv.ParseFloat(strings.TrimSpace(row[k]), 64); perr != nil {
				break
			}
		}
		if perr != nil {
			if i == 0 {
				continue // header
			}
			return nil, fmt.Errorf("%w: line %d: %v", ErrInput, i+1, perr)
		}
		pts = append(pts, Vec3{X: xyz[0], Y: xyz[1], Z: xyz[2]})
	}
	return pts, nil
}

// FileCenterline is a CenterlineProvider reading point files from disk.
// EndpointsPath is optional.
type FileCenterline struct {
	CurvePath     string
	EndpointsPath string
}

// Centerline implements CenterlineProvider.
func (f FileCenterline) Centerline() ([]Vec3, []Vec3, error) {
	if f.CurvePath == "" {
		return nil, nil, fmt.Errorf("%w: centerline path is empty", ErrInput)
	}
	interior, err := ParsePointsFile(f.CurvePath)
	if err != nil {
		return nil, nil, fmt.Errorf("centerline: %w", err)
	}
	if f.EndpointsPath == "" {
		return interior, nil, nil
	}
	endpoints, err := ParsePointsFile(f.EndpointsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("endpoints: %w", err)
	}
	return interior, endpoints, nil
}

// ParseTubeFile reads a tube CSV file into records
func ParseTubeFile(path string) ([]TubeRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: tube CSV not found: %s", ErrInput, path)
		}
		return nil, fmt.Errorf("reading file: %w", err)
	}
	defer f.Close()
	return ReadTubeCSV(f)
}
