package embedding

import (
	"context"
	"math"
)

// Provider turns text into a vector. Chunks and queries must be embedded by
// the same provider and model or similarity scores are meaningless.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// normalizeVector scales vec to unit length. Zero vectors are returned as is.
func normalizeVector(vec []float32) []float32 {
	var magnitude float64
	for _, v := range vec {
		magnitude += float64(v) * float64(v)
	}
	magnitude = math.Sqrt(magnitude)
	if magnitude == 0 {
		return vec
	}

	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = float32(float64(v) / magnitude)
	}
	return normalized
}
