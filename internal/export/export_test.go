package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/szz00712/bibliometrix/internal/thematic"
)

func sampleResult() *thematic.Result {
	return &thematic.Result{
		Clusters: []thematic.ClusterRecord{
			{ID: 1, Centrality: 0.25, Density: 62.5, RCentrality: 1.5, RDensity: 2, Label: "t1", Frequency: 6, Color: "#8b5cf6", Words: "t1 4\nt2 2", Quadrant: thematic.QuadrantMotor},
			{ID: 2, Centrality: 0, Density: 20, RCentrality: 1.5, RDensity: 1, Label: "t3, x", Frequency: 5, Color: "#06b6d4", Words: "t3 5", Quadrant: thematic.QuadrantBasic},
		},
		Words: []thematic.WordRecord{
			{Occurrences: 4, Word: "t1", Cluster: 1, Color: "#8b5cf6", ClusterLabel: "t1"},
			{Occurrences: 5, Word: "t3", Cluster: 2, Color: "#06b6d4", ClusterLabel: "t3, x"},
		},
		NClust: 2,
	}
}

func TestWriteClustersCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteClustersCSV(&buf, sampleResult().Clusters))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, ClusterColumns, records[0])
	assert.Equal(t, []string{"1", "0.25", "62.5", "1.5", "2", "t1", "6", "#8b5cf6", "t1 4\nt2 2", "motor"}, records[1])
	assert.Equal(t, "t3, x", records[2][5])
}

func TestWriteWordsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWordsCSV(&buf, sampleResult().Words))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "occurrences,word,cluster,color,cluster_label", lines[0])
	assert.Equal(t, "4,t1,1,#8b5cf6,t1", lines[1])
	assert.Equal(t, `5,t3,2,#06b6d4,"t3, x"`, lines[2])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleResult()))

	var decoded thematic.Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 2, decoded.NClust)
	assert.Contains(t, buf.String(), "\n  \"clusters\"")
}

func TestWriteDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	paths, err := WriteDir(dir, sampleResult())
	require.NoError(t, err)
	require.Len(t, paths, 3)
	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
}
