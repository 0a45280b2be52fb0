package bm25

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/kirillkom/electoral-rag/internal/core/domain"
)

const (
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

// snapshot is immutable once published.
type snapshot struct {
	docs     []domain.Document
	postings map[string]*roaring.Bitmap
	termFreq []map[string]int
	docLen   []int
	avgLen   float64
}

// Index is a BM25 index over an ordered corpus. Document ids are positions
// in the corpus. Builds are serialized and published with a single pointer
// swap, so readers always see a complete corpus and its postings together.
type Index struct {
	k1 float64
	b  float64

	buildMu sync.Mutex
	current atomic.Pointer[snapshot]
}

type Option func(*Index)

func WithParameters(k1, b float64) Option {
	return func(idx *Index) {
		if k1 > 0 {
			idx.k1 = k1
		}
		if b >= 0 && b <= 1 {
			idx.b = b
		}
	}
}

func New(opts ...Option) *Index {
	idx := &Index{k1: DefaultK1, b: DefaultB}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Build replaces the corpus. An empty corpus still marks the index as built.
func (idx *Index) Build(docs []domain.Document) {
	idx.buildMu.Lock()
	defer idx.buildMu.Unlock()
	idx.current.Store(buildSnapshot(docs))
}

// Append rebuilds over the previous corpus followed by docs.
func (idx *Index) Append(docs []domain.Document) {
	idx.buildMu.Lock()
	defer idx.buildMu.Unlock()

	var corpus []domain.Document
	if prev := idx.current.Load(); prev != nil {
		corpus = make([]domain.Document, 0, len(prev.docs)+len(docs))
		corpus = append(corpus, prev.docs...)
	}
	corpus = append(corpus, docs...)
	idx.current.Store(buildSnapshot(corpus))
}

func (idx *Index) Built() bool {
	return idx.current.Load() != nil
}

func (idx *Index) Len() int {
	snap := idx.current.Load()
	if snap == nil {
		return 0
	}
	return len(snap.docs)
}

func (idx *Index) Corpus() []domain.Document {
	snap := idx.current.Load()
	if snap == nil {
		return nil
	}
	out := make([]domain.Document, len(snap.docs))
	copy(out, snap.docs)
	return out
}

func (idx *Index) Tokenize(text string) []string {
	return Tokenize(text)
}

// Score returns a BM25 score for every document id. The map is empty when
// the query has no tokens or the corpus is empty.
func (idx *Index) Score(query string) map[int]float64 {
	snap := idx.current.Load()
	tokens := Tokenize(query)
	if snap == nil || len(snap.docs) == 0 || len(tokens) == 0 {
		return map[int]float64{}
	}
	return idx.score(snap, tokens)
}

// TopN returns at most n documents ordered by descending score. Ties keep
// corpus order.
func (idx *Index) TopN(query string, n int) []domain.Document {
	snap := idx.current.Load()
	tokens := Tokenize(query)
	if n <= 0 || snap == nil || len(snap.docs) == 0 || len(tokens) == 0 {
		return nil
	}

	scores := idx.score(snap, tokens)
	ids := make([]int, len(snap.docs))
	for i := range ids {
		ids[i] = i
	}
	sort.SliceStable(ids, func(i, j int) bool {
		return scores[ids[i]] > scores[ids[j]]
	})
	if n > len(ids) {
		n = len(ids)
	}

	out := make([]domain.Document, 0, n)
	for _, id := range ids[:n] {
		out = append(out, snap.docs[id])
	}
	return out
}

func (idx *Index) score(snap *snapshot, tokens []string) map[int]float64 {
	scores := make(map[int]float64, len(snap.docs))
	for id := range snap.docs {
		scores[id] = 0
	}

	total := float64(len(snap.docs))
	for _, token := range tokens {
		posting, ok := snap.postings[token]
		if !ok {
			continue
		}
		df := float64(posting.GetCardinality())
		idf := math.Log(1 + (total-df+0.5)/(df+0.5))

		it := posting.Iterator()
		for it.HasNext() {
			id := int(it.Next())
			tf := float64(snap.termFreq[id][token])
			norm := 1.0
			if snap.avgLen > 0 {
				norm = 1 - idx.b + idx.b*float64(snap.docLen[id])/snap.avgLen
			}
			scores[id] += idf * tf * (idx.k1 + 1) / (tf + idx.k1*norm)
		}
	}
	return scores
}

func buildSnapshot(docs []domain.Document) *snapshot {
	snap := &snapshot{
		docs:     make([]domain.Document, len(docs)),
		postings: make(map[string]*roaring.Bitmap),
		termFreq: make([]map[string]int, len(docs)),
		docLen:   make([]int, len(docs)),
	}
	copy(snap.docs, docs)

	totalLen := 0
	for id, doc := range docs {
		tokens := Tokenize(doc.Content)
		tf := make(map[string]int, len(tokens))
		for _, token := range tokens {
			tf[token]++
		}
		for token := range tf {
			posting, ok := snap.postings[token]
			if !ok {
				posting = roaring.New()
				snap.postings[token] = posting
			}
			posting.Add(uint32(id))
		}
		snap.termFreq[id] = tf
		snap.docLen[id] = len(tokens)
		totalLen += len(tokens)
	}
	if len(docs) > 0 {
		snap.avgLen = float64(totalLen) / float64(len(docs))
	}
	return snap
}
