package network

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndAccessors(t *testing.T) {
	n, err := New(FieldKeywords, []string{"a", "b"}, [][]float64{
		{3, 1},
		{1, 2},
	})
	require.NoError(t, err)
	require.NoError(t, n.Validate())

	assert.Equal(t, 2, n.Len())
	assert.Equal(t, []string{"a", "b"}, n.Terms())
	assert.Equal(t, 3.0, n.Occurrence(0))
	assert.Equal(t, 1.0, n.At(1, 0))

	i, ok := n.Index("b")
	assert.True(t, ok)
	assert.Equal(t, 1, i)
	_, ok = n.Index("B")
	assert.False(t, ok)

	assert.Equal(t, [][]float64{{3, 1}, {1, 2}}, n.Rows())
}

func TestTermsReturnsCopy(t *testing.T) {
	n, err := New(FieldKeywords, []string{"a"}, [][]float64{{1}})
	require.NoError(t, err)
	terms := n.Terms()
	terms[0] = "mutated"
	assert.Equal(t, "a", n.Term(0))
}

func TestNewRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name  string
		terms []string
		rows  [][]float64
	}{
		{name: "no terms", terms: nil, rows: nil},
		{name: "row count mismatch", terms: []string{"a", "b"}, rows: [][]float64{{1, 0}}},
		{name: "ragged rows", terms: []string{"a", "b"}, rows: [][]float64{{1, 0}, {0}}},
		{name: "empty rows", terms: []string{"a"}, rows: [][]float64{{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(FieldKeywords, tt.terms, tt.rows)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		terms   []string
		rows    [][]float64
		wantErr string
	}{
		{
			name:    "not square",
			terms:   []string{"a", "b"},
			rows:    [][]float64{{1, 0, 0}, {0, 1, 0}},
			wantErr: "not square",
		},
		{
			name:    "negative weight",
			terms:   []string{"a", "b"},
			rows:    [][]float64{{1, -1}, {-1, 1}},
			wantErr: "negative",
		},
		{
			name:    "negative lower triangle",
			terms:   []string{"a", "b"},
			rows:    [][]float64{{1, 1}, {-1, 1}},
			wantErr: "negative",
		},
		{
			name:    "asymmetric",
			terms:   []string{"a", "b"},
			rows:    [][]float64{{1, 2}, {1, 1}},
			wantErr: "asymmetric",
		},
		{
			name:    "duplicate terms",
			terms:   []string{"a", "a"},
			rows:    [][]float64{{1, 0}, {0, 1}},
			wantErr: "duplicate",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := New(FieldKeywords, tt.terms, tt.rows)
			require.NoError(t, err)
			err = n.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	var nilNet *TermNetwork
	assert.ErrorIs(t, nilNet.Validate(), ErrInvalid)
}

func TestTopKeepsMostFrequentInOriginalOrder(t *testing.T) {
	n, err := New(FieldKeywords, []string{"a", "b", "c", "d"}, [][]float64{
		{1, 1, 0, 1},
		{1, 5, 2, 0},
		{0, 2, 3, 1},
		{1, 0, 1, 5},
	})
	require.NoError(t, err)

	top := n.Top(2)
	assert.Equal(t, []string{"b", "d"}, top.Terms())
	assert.Equal(t, [][]float64{{5, 0}, {0, 5}}, top.Rows())
	assert.Equal(t, FieldKeywords, top.Field)

	top3 := n.Top(3)
	assert.Equal(t, []string{"b", "c", "d"}, top3.Terms())
	assert.Equal(t, 2.0, top3.At(0, 1))

	assert.Same(t, n, n.Top(0))
	assert.Same(t, n, n.Top(10))
}

func TestIsField(t *testing.T) {
	for _, f := range Fields {
		assert.True(t, IsField(f), f)
	}
	assert.False(t, IsField("references"))
}
