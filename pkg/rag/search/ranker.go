package search

import (
	"math"
	"sort"
	"strings"

	"nau-assistant/pkg/knowledge"
)

// ScoredChunk is a chunk with its relevance to one query.
type ScoredChunk struct {
	Chunk      knowledge.Chunk `json:"chunk"`
	Similarity float64         `json:"similarity"`
	Priority   int             `json:"priority"`
}

// PriorityRule boosts chunks whose source contains one of SourceMarkers when
// the query contains one of QueryKeywords.
type PriorityRule struct {
	QueryKeywords []string
	SourceMarkers []string
}

// Config encapsulates ranking parameters
type Config struct {
	RelevanceFloor  float64
	TopK            int
	CandidateFactor int // candidates examined = TopK * CandidateFactor, 0 means all
	BasePriority    int
	BoostPriority   int
	Rules           []PriorityRule
}

// DefaultConfig returns default ranking configuration
func DefaultConfig() Config {
	return Config{
		RelevanceFloor:  0.2,
		TopK:            8,
		CandidateFactor: 2,
		BasePriority:    1,
		BoostPriority:   10,
		Rules:           DefaultRules(),
	}
}

// DefaultRules is the ordered query-intent table. Only the first rule whose
// keywords appear in the query is applied.
func DefaultRules() []PriorityRule {
	return []PriorityRule{
		{QueryKeywords: []string{"tuition", "fee", "cost"}, SourceMarkers: []string{"tuition-and-fees"}},
		{QueryKeywords: []string{"housing", "dorm", "live"}, SourceMarkers: []string{"housing"}},
		{QueryKeywords: []string{"meal", "food", "dining"}, SourceMarkers: []string{"dining"}},
		{QueryKeywords: []string{"program", "major", "degree"}, SourceMarkers: []string{"programs", "academics"}},
		{QueryKeywords: []string{"apply", "admission", "application"}, SourceMarkers: []string{"admissions", "apply"}},
	}
}

// Ranker orders chunks of a store by blended priority and similarity.
type Ranker struct {
	config Config
}

func NewRanker(config Config) *Ranker {
	if config.BasePriority < 1 {
		config.BasePriority = 1
	}
	if config.BoostPriority < config.BasePriority {
		config.BoostPriority = config.BasePriority
	}
	return &Ranker{config: config}
}

func (r *Ranker) Config() Config {
	return r.config
}

// Rank returns at most topK chunks whose similarity exceeds the relevance
// floor, sorted by (priority, similarity) descending. topK <= 0 uses the
// configured default. A nil store or empty result yields nil.
func (r *Ranker) Rank(query string, queryVector []float32, store *knowledge.Store, topK int) []ScoredChunk {
	if store == nil || len(queryVector) == 0 {
		return nil
	}
	if topK <= 0 {
		topK = r.config.TopK
	}

	chunks := store.Chunks()
	scored := make([]ScoredChunk, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Vector) != len(queryVector) {
			continue
		}
		scored = append(scored, ScoredChunk{
			Chunk:      c,
			Similarity: CosineSimilarity(queryVector, c.Vector),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	if r.config.CandidateFactor > 0 {
		if window := topK * r.config.CandidateFactor; len(scored) > window {
			scored = scored[:window]
		}
	}

	markers := r.markersFor(query)
	results := scored[:0]
	for _, sc := range scored {
		if !(sc.Similarity > r.config.RelevanceFloor) {
			continue
		}
		sc.Priority = r.config.BasePriority
		if containsAny(sc.Chunk.Source, markers) {
			sc.Priority = r.config.BoostPriority
		}
		results = append(results, sc)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Priority != results[j].Priority {
			return results[i].Priority > results[j].Priority
		}
		return results[i].Similarity > results[j].Similarity
	})

	if len(results) > topK {
		results = results[:topK]
	}
	if len(results) == 0 {
		return nil
	}
	return results
}

func (r *Ranker) markersFor(query string) []string {
	q := strings.ToLower(query)
	for _, rule := range r.config.Rules {
		if containsAny(q, rule.QueryKeywords) {
			return rule.SourceMarkers
		}
	}
	return nil
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// the lengths differ, either vector has zero magnitude or a component is not
// finite.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0.0
	}
	return math.Max(-1, math.Min(1, sim))
}

// Sources returns the distinct sources of the given chunks in rank order.
func Sources(chunks []ScoredChunk) []string {
	seen := make(map[string]struct{}, len(chunks))
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if _, ok := seen[c.Chunk.Source]; ok {
			continue
		}
		seen[c.Chunk.Source] = struct{}{}
		out = append(out, c.Chunk.Source)
	}
	return out
}
