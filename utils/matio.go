package utils

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ReadMatrix loads a whitespace-separated dense matrix from a text file, one
// row per line. Every row must have the same number of entries.
func ReadMatrix(path string) (M *mat.Dense, err error) {
	var (
		file *os.File
		rows [][]float64
		nc   = -1
	)
	if file, err = os.Open(path); err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if nc == -1 {
			nc = len(fields)
		} else if len(fields) != nc {
			return nil, fmt.Errorf("ragged matrix in %s: row %d has %d entries, want %d",
				path, len(rows), len(fields), nc)
		}
		row := make([]float64, len(fields))
		for i, f := range fields {
			if row[i], err = strconv.ParseFloat(f, 64); err != nil {
				return nil, fmt.Errorf("bad entry %q in %s: %w", f, path, err)
			}
		}
		rows = append(rows, row)
	}
	if err = scanner.Err(); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty matrix file: %s", path)
	}
	M = mat.NewDense(len(rows), nc, nil)
	for i, row := range rows {
		M.SetRow(i, row)
	}
	return
}

// WriteMatrix stores a dense matrix in the text format ReadMatrix accepts.
func WriteMatrix(path string, M *mat.Dense) (err error) {
	var (
		file   *os.File
		nr, nc = M.Dims()
	)
	if file, err = os.Create(path); err != nil {
		return
	}
	defer file.Close()
	w := bufio.NewWriter(file)
	for i := 0; i < nr; i++ {
		for j := 0; j < nc; j++ {
			if j > 0 {
				fmt.Fprint(w, " ")
			}
			fmt.Fprintf(w, "%.17g", M.At(i, j))
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}
