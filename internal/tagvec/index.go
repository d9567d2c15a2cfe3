// Package tagvec maps tags to stable integer ids and compares the resulting
// sparse binary vectors.
package tagvec

import (
	"fmt"
	"math"
	"sort"
)

// Vector is a sparse binary vector: the sorted, deduplicated ids of the tags
// that are set. Because ids are never renumbered, a vector built against an
// older index stays valid as the index grows.
type Vector []int

// Index is a bidirectional tag <-> id mapping. Ids are assigned in insertion
// order starting at zero.
type Index struct {
	tagToID map[string]int
	idToTag []string
}

// New returns an empty index.
func New() *Index {
	return &Index{tagToID: make(map[string]int)}
}

// Restore rebuilds an index from a persisted id-ordered tag list. It fails if
// the list contains duplicates or empty tags.
func Restore(tags []string) (*Index, error) {
	idx := New()
	for i, t := range tags {
		if t == "" {
			return nil, fmt.Errorf("empty tag at id %d", i)
		}
		if _, dup := idx.tagToID[t]; dup {
			return nil, fmt.Errorf("duplicate tag %q at id %d", t, i)
		}
		idx.tagToID[t] = i
		idx.idToTag = append(idx.idToTag, t)
	}
	return idx, nil
}

// Dim is the number of distinct tags seen so far.
func (x *Index) Dim() int { return len(x.idToTag) }

// ID returns the id of tag.
func (x *Index) ID(tag string) (int, bool) {
	id, ok := x.tagToID[tag]
	return id, ok
}

// Tag returns the tag with the given id.
func (x *Index) Tag(id int) (string, bool) {
	if id < 0 || id >= len(x.idToTag) {
		return "", false
	}
	return x.idToTag[id], true
}

// Tags returns the id-ordered tag list, suitable for Restore.
func (x *Index) Tags() []string {
	out := make([]string, len(x.idToTag))
	copy(out, x.idToTag)
	return out
}

// Add registers tags, assigning new ids to unseen ones, and returns their vector.
func (x *Index) Add(tags []string) Vector {
	ids := make([]int, 0, len(tags))
	for _, t := range tags {
		id, ok := x.tagToID[t]
		if !ok {
			id = len(x.idToTag)
			x.tagToID[t] = id
			x.idToTag = append(x.idToTag, t)
		}
		ids = append(ids, id)
	}
	return normalize(ids)
}

// Vectorize builds the vector of tags without growing the index. Unknown tags
// cannot match any stored vector and are left out.
func (x *Index) Vectorize(tags []string) Vector {
	ids := make([]int, 0, len(tags))
	for _, t := range tags {
		if id, ok := x.tagToID[t]; ok {
			ids = append(ids, id)
		}
	}
	return normalize(ids)
}

func normalize(ids []int) Vector {
	sort.Ints(ids)
	out := ids[:0]
	for _, id := range ids {
		if len(out) > 0 && out[len(out)-1] == id {
			continue
		}
		out = append(out, id)
	}
	return Vector(out)
}

// Overlap counts the ids set in both vectors.
func Overlap(a, b Vector) int {
	n, i, j := 0, 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			n++
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return n
}

// Cosine computes cosine similarity between two binary vectors.
func Cosine(a, b Vector) float64 {
	return CosineN(Overlap(a, b), len(a), len(b))
}

// CosineN is the cosine of two binary sets of sizeA and sizeB sharing hits
// members. Sizes may count members the index has never seen.
func CosineN(hits, sizeA, sizeB int) float64 {
	if hits == 0 || sizeA <= 0 || sizeB <= 0 {
		return 0
	}
	return float64(hits) / math.Sqrt(float64(sizeA)*float64(sizeB))
}

// Jaccard computes |a∩b| / |a∪b|, zero when both are empty.
func Jaccard(a, b Vector) float64 {
	return JaccardN(Overlap(a, b), len(a), len(b))
}

// JaccardN is the Jaccard index of two sets of sizeA and sizeB sharing hits
// members.
func JaccardN(hits, sizeA, sizeB int) float64 {
	union := sizeA + sizeB - hits
	if union <= 0 {
		return 0
	}
	return float64(hits) / float64(union)
}
