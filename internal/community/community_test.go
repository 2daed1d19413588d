package community

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// twoBlocks returns six terms: a dense triangle (a,b,c), a dense pair (d,e)
// weakly tied to the triangle, and an isolated term f.
func twoBlocks() ([]string, *mat.SymDense) {
	terms := []string{"a", "b", "c", "d", "e", "f"}
	sim := mat.NewSymDense(len(terms), nil)
	set := func(i, j int, w float64) { sim.SetSym(i, j, w) }
	set(0, 1, 0.9)
	set(0, 2, 0.8)
	set(1, 2, 0.85)
	set(3, 4, 0.95)
	set(2, 3, 0.01)
	for i := range terms {
		set(i, i, 1)
	}
	return terms, sim
}

func assertBlocks(t *testing.T, p *Partition) {
	t.Helper()
	require.NoError(t, p.Validate())
	m := p.Membership
	assert.Equal(t, m[0], m[1])
	assert.Equal(t, m[0], m[2])
	assert.Equal(t, m[3], m[4])
	assert.NotEqual(t, m[0], m[3])
	assert.NotEqual(t, m[5], m[0])
	assert.NotEqual(t, m[5], m[3])

	// Largest community gets id 1.
	assert.Equal(t, 1, m[0])
	assert.Equal(t, 2, m[3])
	assert.Equal(t, 3, m[5])
	assert.Equal(t, []int{1, 2, 3}, p.ClusterIDs())
	assert.Equal(t, ColorFor(1), p.Color(0))
	assert.Equal(t, ColorFor(2), p.Color(4))
}

func TestLouvainFindsBlocks(t *testing.T) {
	terms, sim := twoBlocks()
	p, err := NewLouvain(0).Detect(context.Background(), terms, sim, 42)
	require.NoError(t, err)

	assert.Equal(t, AlgorithmLouvain, p.Algorithm)
	assert.Equal(t, terms, p.Terms)
	assertBlocks(t, p)
	assert.Greater(t, p.Modularity, 0.0)
}

func TestLouvainDeterministicForSeed(t *testing.T) {
	terms, sim := twoBlocks()
	l := NewLouvain(1)
	first, err := l.Detect(context.Background(), terms, sim, 7)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := l.Detect(context.Background(), terms, sim, 7)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestLouvainWithoutEdges(t *testing.T) {
	terms := []string{"x", "y", "z"}
	sim := mat.NewSymDense(3, nil)
	for i := range terms {
		sim.SetSym(i, i, 0.5)
	}
	p, err := NewLouvain(1).Detect(context.Background(), terms, sim, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, p.Membership)
	assert.Equal(t, 0.0, p.Modularity)
}

func TestLouvainHonorsCancellation(t *testing.T) {
	terms, sim := twoBlocks()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLouvain(1).Detect(ctx, terms, sim, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLabelPropagationFindsBlocks(t *testing.T) {
	terms, sim := twoBlocks()
	p, err := NewLabelPropagation(0).Detect(context.Background(), terms, sim, 3)
	require.NoError(t, err)
	assert.Equal(t, AlgorithmLabelPropagation, p.Algorithm)
	assertBlocks(t, p)

	again, err := NewLabelPropagation(0).Detect(context.Background(), terms, sim, 3)
	require.NoError(t, err)
	assert.Equal(t, p, again)
}

func TestDetectRejectsShapeMismatch(t *testing.T) {
	sim := mat.NewSymDense(2, nil)
	for _, d := range []Detector{NewLouvain(1), NewLabelPropagation(10)} {
		_, err := d.Detect(context.Background(), []string{"a", "b", "c"}, sim, 1)
		assert.Error(t, err, d.Name())
		_, err = d.Detect(context.Background(), nil, sim, 1)
		assert.Error(t, err, d.Name())
	}
}

func TestNewSelectsByName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{name: "", want: AlgorithmLouvain},
		{name: "Louvain", want: AlgorithmLouvain},
		{name: "label_propagation", want: AlgorithmLabelPropagation},
		{name: "lpa", want: AlgorithmLabelPropagation},
	}
	for _, tt := range tests {
		d, err := New(tt.name, Options{})
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, d.Name())
	}

	_, err := New("walktrap", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "walktrap")
}

func TestPartitionValidate(t *testing.T) {
	tests := []struct {
		name string
		p    *Partition
		ok   bool
	}{
		{name: "nil", p: nil},
		{name: "length mismatch", p: &Partition{Terms: []string{"a"}, Membership: []int{1, 2}}},
		{name: "color mismatch", p: &Partition{Terms: []string{"a"}, Membership: []int{1}, Colors: []string{"#fff", "#000"}}},
		{name: "zero id", p: &Partition{Terms: []string{"a"}, Membership: []int{0}}},
		{name: "no colors", p: &Partition{Terms: []string{"a", "b"}, Membership: []int{4, 2}}, ok: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestClusterIDsSortedAndDistinct(t *testing.T) {
	p := &Partition{Terms: []string{"a", "b", "c", "d"}, Membership: []int{7, 3, 7, 5}}
	assert.Equal(t, []int{3, 5, 7}, p.ClusterIDs())
	assert.Equal(t, "", p.Color(0))
}

func TestColorForCyclesPalette(t *testing.T) {
	assert.Equal(t, clusterPalette[0], ColorFor(1))
	assert.Equal(t, clusterPalette[0], ColorFor(len(clusterPalette)+1))
	assert.Equal(t, "#71717a", ColorFor(0))
}
