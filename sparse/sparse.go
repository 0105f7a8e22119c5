// Package sparse provides a sparse square matrix and linear solvers for the
// banded symmetric systems produced by finite element assembly.
package sparse

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Matrix is a square sparse matrix storing only nonzero entries.  It
// implements mat.Matrix.
type Matrix struct {
	// nonzeroCol[row] maps col to value
	nonzeroCol []map[int]float64
	// nonzeroRow[col] maps row to value
	nonzeroRow []map[int]float64
	size       int
}

func NewMatrix(size int) *Matrix {
	return &Matrix{
		nonzeroCol: make([]map[int]float64, size),
		nonzeroRow: make([]map[int]float64, size),
		size:       size,
	}
}

func (m *Matrix) Dims() (int, int)    { return m.size, m.size }
func (m *Matrix) At(i, j int) float64 { return m.nonzeroCol[i][j] }
func (m *Matrix) T() mat.Matrix       { return mat.Transpose{Matrix: m} }

// Set stores v at (i, j); storing zero removes the entry.
func (m *Matrix) Set(i, j int, v float64) {
	if v == 0 {
		delete(m.nonzeroCol[i], j)
		delete(m.nonzeroRow[j], i)
		return
	}
	if m.nonzeroCol[i] == nil {
		m.nonzeroCol[i] = make(map[int]float64)
	}
	if m.nonzeroRow[j] == nil {
		m.nonzeroRow[j] = make(map[int]float64)
	}
	m.nonzeroCol[i][j] = v
	m.nonzeroRow[j][i] = v
}

// Add adds v to the entry at (i, j).
func (m *Matrix) Add(i, j int, v float64) { m.Set(i, j, m.At(i, j)+v) }

// NonzeroCols returns the nonzero entries of row as a col->value map.  The
// map must not be modified.
func (m *Matrix) NonzeroCols(row int) map[int]float64 { return m.nonzeroCol[row] }

// NonzeroRows returns the nonzero entries of col as a row->value map.  The
// map must not be modified.
func (m *Matrix) NonzeroRows(col int) map[int]float64 { return m.nonzeroRow[col] }

// sortedCols returns the column indices of the nonzeros in row in increasing
// order.
func (m *Matrix) sortedCols(row int) []int {
	cols := make([]int, 0, len(m.nonzeroCol[row]))
	for j := range m.nonzeroCol[row] {
		cols = append(cols, j)
	}
	sort.Ints(cols)
	return cols
}

// Mul returns m*b.
func (m *Matrix) Mul(b []float64) []float64 {
	if len(b) != m.size {
		panic(fmt.Sprintf("inconsistent lengths for matrix product: %v and %v", m.size, len(b)))
	}
	result := make([]float64, len(b))
	for i := 0; i < m.size; i++ {
		tot := 0.0
		for j, val := range m.nonzeroCol[i] {
			tot += b[j] * val
		}
		result[i] = tot
	}
	return result
}

// Clone returns a deep copy of m.
func (m *Matrix) Clone() *Matrix {
	clone := NewMatrix(m.size)
	for i, cols := range m.nonzeroCol {
		for j, v := range cols {
			clone.Set(i, j, v)
		}
	}
	return clone
}

// Bandwidth returns the largest |i-j| over all nonzero entries.
func (m *Matrix) Bandwidth() int {
	bw := 0
	for i, cols := range m.nonzeroCol {
		for j := range cols {
			if d := absInt(i - j); d > bw {
				bw = d
			}
		}
	}
	return bw
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
