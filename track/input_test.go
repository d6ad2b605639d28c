package track

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	in := "x,y,z\n1,2,3\n# comment\n 4, 5, 6,extra\n"
	points, err := ReadCSV(strings.NewReader(in), 3)
	require.NoError(t, err)
	assert.Equal(t, []Point{{1, 2, 3}, {4, 5, 6}}, points)

	// No header.
	points, err = ReadCSV(strings.NewReader("1.5,2\n"), 2)
	require.NoError(t, err)
	assert.Equal(t, []Point{{1.5, 2}}, points)

	_, err = ReadCSV(strings.NewReader("1,2\n"), 3)
	require.Error(t, err)
	_, err = ReadCSV(strings.NewReader("1,2,3\n1,b,3\n"), 3)
	require.Error(t, err)
}

func TestReadJSONLines(t *testing.T) {
	in := `{"x":1,"y":2,"z":3,"t":"2024-01-01"}

{"z":6,"y":5,"x":4}
`
	points, err := ReadJSONLines(strings.NewReader(in), 3)
	require.NoError(t, err)
	assert.Equal(t, []Point{{1, 2, 3}, {4, 5, 6}}, points)

	_, err = ReadJSONLines(strings.NewReader(`{"x":1,"y":2}`), 3)
	require.Error(t, err)
	_, err = ReadJSONLines(strings.NewReader(`{"x":"1","y":2,"z":3}`), 3)
	require.Error(t, err)
	_, err = ReadJSONLines(strings.NewReader(`{"x":1,`), 3)
	require.Error(t, err)
}

func TestAxis(t *testing.T) {
	assert.Equal(t, "x", Axis(0))
	assert.Equal(t, "z", Axis(2))
	assert.Equal(t, "d3", Axis(3))
}

func TestWriteCSV(t *testing.T) {
	samples := []Sample{{
		Index:    0,
		Raw:      Point{1, 2},
		Position: []float64{0.5, 1},
		Velocity: []float64{0.25, 0},
	}}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, 2, samples))
	assert.Equal(t, "index,raw_x,raw_y,x,y,vx,vy\n0,1.000000,2.000000,0.500000,1.000000,0.250000,0.000000\n", buf.String())
}
