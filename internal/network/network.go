// Package network holds the term co-occurrence matrix that feeds the thematic
// map pipeline.
//
// A TermNetwork is a square, symmetric, non-negative matrix indexed by term
// name. Off-diagonal cells count how often two terms appear in the same
// record; the diagonal holds each term's own occurrence count. Networks are
// built upstream (by a co-occurrence builder) and are read-only here.
package network

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// ErrInvalid is wrapped by every construction and validation failure.
var ErrInvalid = errors.New("invalid term network")

// symmetryTolerance bounds |w(i,j) - w(j,i)| for a network to count as symmetric.
const symmetryTolerance = 1e-9

// Known network fields. They name the bibliographic field the terms came from.
const (
	FieldKeywords       = "keywords"
	FieldAuthorKeywords = "author_keywords"
	FieldTitles         = "titles"
	FieldAbstracts      = "abstracts"
)

// Fields lists the recognized field names in display order.
var Fields = []string{FieldKeywords, FieldAuthorKeywords, FieldTitles, FieldAbstracts}

// IsField reports whether name is one of the recognized fields.
func IsField(name string) bool {
	for _, f := range Fields {
		if f == name {
			return true
		}
	}
	return false
}

// TermNetwork is a named co-occurrence matrix. Rows and columns share the
// same term index.
type TermNetwork struct {
	Field string

	terms []string
	index map[string]int
	m     *mat.Dense
}

// New builds a network from a row-major matrix. The number of rows must match
// the number of terms and rows must not be ragged. Shape, sign and symmetry
// are checked separately by Validate so callers can report them precisely.
func New(field string, terms []string, rows [][]float64) (*TermNetwork, error) {
	if len(terms) == 0 {
		return nil, fmt.Errorf("%w: no terms", ErrInvalid)
	}
	if len(rows) != len(terms) {
		return nil, fmt.Errorf("%w: %d terms but %d rows", ErrInvalid, len(terms), len(rows))
	}
	cols := len(rows[0])
	if cols == 0 {
		return nil, fmt.Errorf("%w: empty rows", ErrInvalid)
	}
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d (%s) has %d columns, want %d", ErrInvalid, i, terms[i], len(row), cols)
		}
		data = append(data, row...)
	}
	return fromDense(field, terms, mat.NewDense(len(rows), cols, data)), nil
}

// FromMatrix wraps an existing gonum matrix. The matrix is copied.
func FromMatrix(field string, terms []string, m mat.Matrix) (*TermNetwork, error) {
	r, c := m.Dims()
	if len(terms) == 0 || r == 0 || c == 0 {
		return nil, fmt.Errorf("%w: no terms", ErrInvalid)
	}
	if r != len(terms) {
		return nil, fmt.Errorf("%w: %d terms but %d rows", ErrInvalid, len(terms), r)
	}
	return fromDense(field, terms, mat.DenseCopyOf(m)), nil
}

func fromDense(field string, terms []string, m *mat.Dense) *TermNetwork {
	names := append([]string(nil), terms...)
	index := make(map[string]int, len(names))
	for i, t := range names {
		if _, ok := index[t]; !ok {
			index[t] = i
		}
	}
	return &TermNetwork{Field: field, terms: names, index: index, m: m}
}

// Validate checks that the network is square, has unique term names and holds
// finite, non-negative, symmetric weights.
func (n *TermNetwork) Validate() error {
	if n == nil || n.m == nil {
		return fmt.Errorf("%w: nil network", ErrInvalid)
	}
	r, c := n.m.Dims()
	if r != c {
		return fmt.Errorf("%w: matrix is %dx%d, not square", ErrInvalid, r, c)
	}
	if len(n.index) != len(n.terms) {
		return fmt.Errorf("%w: duplicate term names", ErrInvalid)
	}
	for i := 0; i < r; i++ {
		for j := i; j < c; j++ {
			v := n.m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: non-finite weight at (%s, %s)", ErrInvalid, n.terms[i], n.terms[j])
			}
			if v < 0 {
				return fmt.Errorf("%w: negative weight %g at (%s, %s)", ErrInvalid, v, n.terms[i], n.terms[j])
			}
			if w := n.m.At(j, i); math.Abs(v-w) > symmetryTolerance {
				if w < 0 {
					return fmt.Errorf("%w: negative weight %g at (%s, %s)", ErrInvalid, w, n.terms[j], n.terms[i])
				}
				return fmt.Errorf("%w: asymmetric weights at (%s, %s): %g != %g", ErrInvalid, n.terms[i], n.terms[j], v, w)
			}
		}
	}
	return nil
}

// Len returns the number of terms.
func (n *TermNetwork) Len() int { return len(n.terms) }

// Dims returns the matrix shape.
func (n *TermNetwork) Dims() (r, c int) { return n.m.Dims() }

// Terms returns a copy of the term names in matrix order.
func (n *TermNetwork) Terms() []string { return append([]string(nil), n.terms...) }

// Term returns the name of term i.
func (n *TermNetwork) Term(i int) string { return n.terms[i] }

// Index returns the position of term, if present.
func (n *TermNetwork) Index(term string) (int, bool) {
	i, ok := n.index[term]
	return i, ok
}

// At returns the co-occurrence weight between terms i and j.
func (n *TermNetwork) At(i, j int) float64 { return n.m.At(i, j) }

// Occurrence returns the diagonal entry for term i.
func (n *TermNetwork) Occurrence(i int) float64 { return n.m.At(i, i) }

// Matrix exposes the underlying matrix as a read-only view.
func (n *TermNetwork) Matrix() mat.Matrix { return n.m }

// Rows copies the matrix out as row slices (for persistence).
func (n *TermNetwork) Rows() [][]float64 {
	r, _ := n.m.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = mat.Row(nil, i, n.m)
	}
	return rows
}

// Top keeps the k most frequent terms (by diagonal occurrence). Ties keep the
// earlier term. Kept terms stay in their original order. A k of zero or one
// that covers the whole network returns the receiver unchanged.
func (n *TermNetwork) Top(k int) *TermNetwork {
	if k <= 0 || k >= len(n.terms) {
		return n
	}
	order := make([]int, len(n.terms))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return n.Occurrence(order[a]) > n.Occurrence(order[b])
	})
	keep := append([]int(nil), order[:k]...)
	sort.Ints(keep)

	terms := make([]string, k)
	sub := mat.NewDense(k, k, nil)
	for a, i := range keep {
		terms[a] = n.terms[i]
		for b, j := range keep {
			sub.Set(a, b, n.m.At(i, j))
		}
	}
	return fromDense(n.Field, terms, sub)
}
