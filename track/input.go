package track

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

var axes = []string{"x", "y", "z"}

// Axis returns the name of the i-th coordinate: x, y, z, then d3, d4...
func Axis(i int) string {
	if i < len(axes) {
		return axes[i]
	}
	return "d" + strconv.Itoa(i)
}

// ReadCSV decodes one point per record, reading the first dims fields.
// A leading header record, recognized by a non numeric first field, is
// skipped.
func ReadCSV(r io.Reader, dims int) ([]Point, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	var points []Point
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return points, nil
		}
		if err != nil {
			return nil, err
		}
		if line == 1 && len(rec) > 0 {
			if _, err := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64); err != nil {
				continue
			}
		}
		if len(rec) < dims {
			return nil, fmt.Errorf("track: record %d has %d fields, expected at least %d", line, len(rec), dims)
		}
		p := make(Point, dims)
		for i := range p {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
			if err != nil {
				return nil, fmt.Errorf("track: record %d field %d: %w", line, i, err)
			}
			p[i] = v
		}
		points = append(points, p)
	}
}

// ReadJSONLines decodes one JSON object per line, reading the x, y and z
// keys. Blank lines are skipped.
func ReadJSONLines(r io.Reader, dims int) ([]Point, error) {
	var points []Point
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for line := 1; sc.Scan(); line++ {
		data := sc.Bytes()
		if len(strings.TrimSpace(string(data))) == 0 {
			continue
		}
		if !gjson.ValidBytes(data) {
			return nil, fmt.Errorf("track: line %d is not valid JSON", line)
		}
		parsed := gjson.ParseBytes(data)
		p := make(Point, dims)
		for i := range p {
			res := parsed.Get(Axis(i))
			if !res.Exists() || res.Type != gjson.Number {
				return nil, fmt.Errorf("track: line %d: missing numeric %q", line, Axis(i))
			}
			p[i] = res.Float()
		}
		points = append(points, p)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return points, nil
}

// WriteCSV writes the raw and filtered positions of each sample along with
// the filtered velocities.
func WriteCSV(w io.Writer, dims int, samples []Sample) error {
	cw := csv.NewWriter(w)
	hdr := []string{"index"}
	for _, prefix := range []string{"raw_", "", "v"} {
		for i := 0; i < dims; i++ {
			hdr = append(hdr, prefix+Axis(i))
		}
	}
	if err := cw.Write(hdr); err != nil {
		return err
	}
	for _, s := range samples {
		rec := make([]string, 0, len(hdr))
		rec = append(rec, strconv.Itoa(s.Index))
		for _, vals := range [][]float64{s.Raw, s.Position, s.Velocity} {
			for _, v := range vals {
				rec = append(rec, strconv.FormatFloat(v, 'f', 6, 64))
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
