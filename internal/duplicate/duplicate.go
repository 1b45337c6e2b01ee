// Package duplicate implements C6, the Duplicate Engine: exact grouping by
// content hash, then similar grouping by clustering chosen timestamps and
// comparing perceptual hashes within each cluster via a union-find
// structure for transitive merging. It runs once per job, after every file
// in the job has a C5 result.
package duplicate

import (
	"encoding/hex"
	"sort"
	"time"

	"mediaparser/internal/hash"

	"github.com/google/uuid"
)

// Confidence mirrors timestamp.Tier's string values; kept as its own type
// since group confidence and timestamp confidence are independent concepts
// that happen to share a vocabulary.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Kind classifies a similar group per spec.md §4.6 step 7.
type Kind string

const (
	KindBurst    Kind = "burst"
	KindPanorama Kind = "panorama"
	KindSimilar  Kind = "similar"
)

// incomparableDistance is the sentinel Hamming distance used when one or
// both perceptual hashes are missing — guaranteed to exceed every
// threshold in the grouping rules.
const incomparableDistance = 1 << 30

// File is the minimal read-only view C6 needs of a processed file. id is
// opaque to this package — callers pass back whatever key identifies rows
// in their own store.
type File struct {
	ID             int64
	ContentHash    string
	PerceptualHash string // empty when absent
	ChosenTimestamp time.Time
	HasTimestamp    bool
	Discarded       bool
}

// Grouping is the exact/similar group assignment C6 computes for one file.
type Grouping struct {
	FileID               int64
	ExactGroupID         string
	ExactGroupConfidence Confidence
	SimilarGroupID       string
	SimilarGroupConfidence Confidence
	SimilarGroupKind     Kind
}

// Run executes both passes over files and returns one Grouping per file
// that ended up in a group (files in neither an exact nor similar group are
// simply absent from the result, per spec.md's nullable group fields).
func Run(files []File, clusterWindow time.Duration) []Grouping {
	groups := make(map[int64]*Grouping)

	exactOf := runExactPass(files, groups)
	runSimilarPass(files, exactOf, groups, clusterWindow)

	out := make([]Grouping, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FileID < out[j].FileID })
	return out
}

func getGroup(groups map[int64]*Grouping, id int64) *Grouping {
	g, ok := groups[id]
	if !ok {
		g = &Grouping{FileID: id}
		groups[id] = g
	}
	return g
}

// runExactPass buckets by content hash (spec.md §4.6 Pass A) and returns a
// set of file IDs already placed in an exact group, so Pass B can exclude
// them from timestamp clustering.
func runExactPass(files []File, groups map[int64]*Grouping) map[int64]bool {
	buckets := make(map[string][]int64)
	for _, f := range files {
		if f.Discarded || f.ContentHash == "" {
			continue
		}
		buckets[f.ContentHash] = append(buckets[f.ContentHash], f.ID)
	}

	exactOf := make(map[int64]bool)
	for hashVal, ids := range buckets {
		if len(ids) < 2 {
			continue
		}
		for _, id := range ids {
			g := getGroup(groups, id)
			g.ExactGroupID = hashVal
			g.ExactGroupConfidence = ConfidenceHigh
			exactOf[id] = true
		}
	}
	return exactOf
}

// unionFind is a standard path-compressing, union-by-rank structure keyed
// by slice index into the cluster being processed.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.rank[ra] < uf.rank[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	if uf.rank[ra] == uf.rank[rb] {
		uf.rank[ra]++
	}
}

// runSimilarPass implements spec.md §4.6 Pass B.
func runSimilarPass(files []File, exactOf map[int64]bool, groups map[int64]*Grouping, clusterWindow time.Duration) {
	eligible := make([]File, 0, len(files))
	for _, f := range files {
		if f.Discarded || exactOf[f.ID] || !f.HasTimestamp || f.PerceptualHash == "" {
			continue
		}
		eligible = append(eligible, f)
	}
	if len(eligible) < 2 {
		return
	}

	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].ChosenTimestamp.Before(eligible[j].ChosenTimestamp)
	})

	var clusters [][]File
	current := []File{eligible[0]}
	for i := 1; i < len(eligible); i++ {
		gap := eligible[i].ChosenTimestamp.Sub(eligible[i-1].ChosenTimestamp)
		if gap > clusterWindow {
			if len(current) >= 2 {
				clusters = append(clusters, current)
			}
			current = []File{eligible[i]}
		} else {
			current = append(current, eligible[i])
		}
	}
	if len(current) >= 2 {
		clusters = append(clusters, current)
	}

	for _, cluster := range clusters {
		processCluster(cluster, groups)
	}
}

// processCluster runs the pairwise-distance merge described in spec.md
// §4.6 steps 4-7 for one timestamp cluster.
func processCluster(cluster []File, groups map[int64]*Grouping) {
	n := len(cluster)
	uf := newUnionFind(n)

	// distances records each pair's Hamming distance. It is only consulted
	// for pairs that unioned into the same root at the end, where the
	// smallest distance in the group decides the group's confidence.
	type pairKey struct{ a, b int }
	distances := make(map[pairKey]int)
	var exactPairs []pairKey
	var similarPairs []pairKey

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d, err := hash.HammingDistance64Hex(cluster[i].PerceptualHash, cluster[j].PerceptualHash)
			if err != nil {
				d = incomparableDistance
			}
			switch {
			case d <= 5:
				uf.union(i, j)
				exactPairs = append(exactPairs, pairKey{i, j})
			case d <= 20:
				uf.union(i, j)
				similarPairs = append(similarPairs, pairKey{i, j})
			}
			distances[pairKey{i, j}] = d
		}
	}

	// Partition indices by union-find root.
	rootMembers := make(map[int][]int)
	for i := 0; i < n; i++ {
		root := uf.find(i)
		rootMembers[root] = append(rootMembers[root], i)
	}

	exactPairSet := make(map[pairKey]bool, len(exactPairs))
	for _, p := range exactPairs {
		exactPairSet[p] = true
	}

	for root, members := range rootMembers {
		if len(members) < 2 {
			continue
		}
		isExactGroup := false
		minDistance := incomparableDistance
		for _, i := range members {
			for _, j := range members {
				if i >= j {
					continue
				}
				k := pairKey{i, j}
				if exactPairSet[k] {
					isExactGroup = true
				}
				if d, ok := distances[k]; ok && d < minDistance {
					minDistance = d
				}
			}
		}

		if isExactGroup {
			assignExactGroup(cluster, members, groups)
		} else {
			assignSimilarGroup(cluster, members, minDistance, groups)
		}
		_ = root
	}

	_ = similarPairs
}

func assignExactGroup(cluster []File, members []int, groups map[int64]*Grouping) {
	// Reuse an existing exact_group_id among members if any already carries
	// one (e.g. from a prior transitive merge in a different cluster pass);
	// otherwise mint a fresh token, per spec.md §4.6 step 5.
	var id string
	for _, i := range members {
		if g, ok := groups[cluster[i].ID]; ok && g.ExactGroupID != "" {
			id = g.ExactGroupID
			break
		}
	}
	if id == "" {
		id = uuid.NewString()
	}
	for _, i := range members {
		g := getGroup(groups, cluster[i].ID)
		g.ExactGroupID = id
		g.ExactGroupConfidence = ConfidenceHigh
	}
}

func assignSimilarGroup(cluster []File, members []int, minDistance int, groups map[int64]*Grouping) {
	var confidence Confidence
	switch {
	case minDistance <= 10:
		confidence = ConfidenceHigh
	case minDistance <= 15:
		confidence = ConfidenceMedium
	default:
		confidence = ConfidenceLow
	}

	var id string
	for _, i := range members {
		if g, ok := groups[cluster[i].ID]; ok && g.SimilarGroupID != "" {
			id = g.SimilarGroupID
			break
		}
	}
	if id == "" {
		id = groupToken()
	}

	kind := classifyKind(cluster, members)

	for _, i := range members {
		g := getGroup(groups, cluster[i].ID)
		g.SimilarGroupID = id
		g.SimilarGroupConfidence = confidence
		g.SimilarGroupKind = kind
	}
}

// classifyKind implements spec.md §4.6 step 7: inspect the maximum adjacent
// time gap among the group's chosen timestamps.
func classifyKind(cluster []File, members []int) Kind {
	timestamps := make([]time.Time, 0, len(members))
	for _, i := range members {
		f := cluster[i]
		if !f.HasTimestamp {
			return KindSimilar
		}
		timestamps = append(timestamps, f.ChosenTimestamp)
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i].Before(timestamps[j]) })

	var maxGap time.Duration
	for i := 1; i < len(timestamps); i++ {
		gap := timestamps[i].Sub(timestamps[i-1])
		if gap > maxGap {
			maxGap = gap
		}
	}

	switch {
	case maxGap < 2*time.Second:
		return KindBurst
	case maxGap < 30*time.Second:
		return KindPanorama
	default:
		return KindSimilar
	}
}

// groupToken mints the 16-character hex token spec.md §4.6 names for
// similar groups, derived from a fresh UUID rather than a custom random
// source — uuid is already a dependency of this package for the exact-group
// tokens assignExactGroup mints.
func groupToken() string {
	u := uuid.New()
	return hex.EncodeToString(u[:8])
}
