package thematic

import (
	"sort"
)

// BuildWordTable lists every aligned word occurring at least minFreq times,
// with its cluster id (the partition's), color and the cluster's label.
// Rows without a color are dropped. Rows are sorted by cluster id; words
// within a cluster keep the similarity-matrix order.
func BuildWordTable(clusters []ClusterRecord, a *Aligned, occ []float64, minFreq float64) []WordRecord {
	labels := make(map[int]string, len(clusters))
	for _, c := range clusters {
		labels[c.SourceID] = c.Label
	}

	rows := make([]WordRecord, 0, a.Len())
	for k, word := range a.Words {
		if occ[k] < minFreq || a.Colors[k] == "" {
			continue
		}
		label, ok := labels[a.Groups[k]]
		if !ok {
			continue
		}
		rows = append(rows, WordRecord{
			Occurrences:  occ[k],
			Word:         word,
			Cluster:      a.Groups[k],
			Color:        a.Colors[k],
			ClusterLabel: label,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Cluster < rows[j].Cluster })
	return rows
}

// selectSurvivors keeps the clusters whose label still appears in the word
// table and renumbers them 1..M in order of their partition id. Both the
// cluster records and the word rows get the new ids. Clusters without aligned
// members never reach here; ComputeClusters drops them.
func selectSurvivors(clusters []ClusterRecord, words []WordRecord) ([]ClusterRecord, []WordRecord) {
	present := make(map[string]struct{}, len(words))
	for _, w := range words {
		present[w.ClusterLabel] = struct{}{}
	}

	ordered := append([]ClusterRecord(nil), clusters...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].SourceID < ordered[j].SourceID })

	renumber := make(map[int]int, len(ordered))
	survivors := make([]ClusterRecord, 0, len(ordered))
	for _, c := range ordered {
		if _, ok := present[c.Label]; !ok {
			continue
		}
		c.ID = len(survivors) + 1
		renumber[c.SourceID] = c.ID
		survivors = append(survivors, c)
	}

	out := make([]WordRecord, 0, len(words))
	for _, w := range words {
		id, ok := renumber[w.Cluster]
		if !ok {
			continue
		}
		w.Cluster = id
		out = append(out, w)
	}
	return survivors, out
}
