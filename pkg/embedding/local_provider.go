package embedding

import (
	"context"
	"hash/fnv"
	"regexp"
	"strings"
)

const DefaultLocalDimension = 384

// LocalProvider is an offline embedder that hashes word unigrams and bigrams
// into a fixed number of buckets. It needs no model server and is stable
// across processes, which makes it suitable for development snapshots and
// tests. Its vectors are not comparable with any neural model.
type LocalProvider struct {
	dimension    int
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

var _ Provider = (*LocalProvider)(nil)

func NewLocalProvider(dimension int) *LocalProvider {
	if dimension <= 0 {
		dimension = DefaultLocalDimension
	}
	return &LocalProvider{
		dimension:    dimension,
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`),
		stopwords:    defaultStopwords(),
	}
}

func (p *LocalProvider) Dimension() int { return p.dimension }

func (p *LocalProvider) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, p.dimension)
	tokens := p.tokenize(text)
	for i, tok := range tokens {
		p.add(vec, tok, 1)
		if i > 0 {
			p.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}
	return normalizeVector(vec), nil
}

func (p *LocalProvider) add(vec []float32, term string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(term))
	sum := h.Sum64()
	idx := int(sum % uint64(p.dimension))
	// the top bit picks the sign so collisions tend to cancel
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

func (p *LocalProvider) tokenize(text string) []string {
	raw := p.tokenPattern.FindAllString(strings.ToLower(text), -1)
	tokens := raw[:0]
	for _, tok := range raw {
		if _, stop := p.stopwords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "can", "do", "does",
		"for", "from", "how", "i", "in", "is", "it", "me", "my", "of", "on",
		"or", "the", "to", "what", "when", "where", "which", "who", "with", "you",
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
