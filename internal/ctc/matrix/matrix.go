// Package matrix provides the read-only frame-score matrix the decoder
// consumes: one row per time step, one column per vocabulary entry.
package matrix

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Matrix is a row-major T x V matrix of log-scores. It is never mutated
// after construction, so a single Matrix may be decoded concurrently by
// multiple decoder calls.
type Matrix struct {
	data []float64
	t, v int
}

// New wraps a flat, row-major buffer of length t*v as a T x V matrix
// without copying it.
func New(data []float64, t, v int) (*Matrix, error) {
	if t < 0 || v < 0 {
		return nil, fmt.Errorf("matrix: negative dimension T=%d V=%d", t, v)
	}
	if len(data) != t*v {
		return nil, fmt.Errorf("matrix: buffer length %d does not match T*V=%d*%d=%d", len(data), t, v, t*v)
	}
	return &Matrix{data: data, t: t, v: v}, nil
}

// T returns the number of time steps (rows).
func (m *Matrix) T() int { return m.t }

// V returns the vocabulary size (columns).
func (m *Matrix) V() int { return m.v }

// At returns L[t, v].
func (m *Matrix) At(t, v int) float64 {
	return m.data[t*m.v+v]
}

// Row returns the slice backing row t, shared with the matrix's own
// storage. Callers must not mutate it.
func (m *Matrix) Row(t int) []float64 {
	start := t * m.v
	return m.data[start : start+m.v]
}

// Load reads a whitespace-separated text dump: one row per line, one
// log-score per column, every row the same length. This is the text format
// the bundled acoustic-model fixtures ship in.
func Load(path string) (*Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("matrix: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads the same text format as Load from an arbitrary reader.
func Parse(r io.Reader) (*Matrix, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var data []float64
	rows, cols := 0, -1

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if cols == -1 {
			cols = len(fields)
		} else if len(fields) != cols {
			return nil, fmt.Errorf("matrix: row %d has %d columns, want %d", rows, len(fields), cols)
		}
		for _, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("matrix: row %d: %w", rows, err)
			}
			data = append(data, v)
		}
		rows++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if cols == -1 {
		cols = 0
	}
	return New(data, rows, cols)
}
