package knowledge

import (
	"context"
	"fmt"
	"time"
)

// Embedder turns text into a vector. It is satisfied by embedding.Provider.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

const FallbackOrigin = "fallback"

// FallbackRecords is the built-in corpus used when no snapshot can be loaded.
func FallbackRecords() []Record {
	return []Record{
		{
			Content: "North American University (NAU) is a private, non-profit university located in Stafford, Texas. NAU offers undergraduate and graduate programs in Business Administration, Computer Science, and Education.",
			Source:  "https://www.na.edu/about/",
			Title:   "About NAU",
		},
		{
			Content: "Tuition for international undergraduate students at North American University is as follows: 1 to 11 credits: $1,125 per credit; 12 to 16 credits per academic semester: $13,500; Each additional credit over 16 credits: $1,125 per credit; Summer tuition (per class): $873.",
			Source:  "https://www.na.edu/admissions/tuition-and-fees/",
			Title:   "Tuition and Fees",
		},
		{
			Content: "Housing options at NAU include: Housing On Campus 2 Bed-Room only for men: $2,500.00 per semester, Housing On Campus 3 Bed-Room only for men: $2,100.00 per semester, Housing On Campus 4 Bed-Room only for men: $1,900.00 per semester, Housing on Hotel 2 Bed-Room: $3,600.00 per semester, Housing on Hotel 3 Bedroom: $3,000.00 per semester, Housing on Apartment 2 Bedroom: $3,200.00 per semester, Summer Housing: $1,250.00.",
			Source:  "https://www.na.edu/campus-life/housing/",
			Title:   "Housing Options",
		},
		{
			Content: "Meal service options at NAU include: 19-Meal per Week: $2,500.00 per semester, 14-Meal per Week: $1,900.00 per semester, 10-Meal per Week: $1,300.00 per semester.",
			Source:  "https://www.na.edu/campus-life/dining-services/",
			Title:   "Dining Services",
		},
		{
			Content: "North American University offers scholarships and financial aid to qualified students. These include merit-based scholarships, need-based grants, and work-study opportunities. International students may be eligible for certain scholarships as well.",
			Source:  "https://www.na.edu/admissions/financial-aid/",
			Title:   "Financial Aid",
		},
		{
			Content: "To apply to North American University, students need to submit an application form, official transcripts, and proof of English proficiency (for international students). Application deadlines vary by semester.",
			Source:  "https://www.na.edu/admissions/",
			Title:   "Admissions",
		},
	}
}

// BuildFallback embeds the fallback corpus. If embedding fails the chunks are
// kept without vectors: the store is never empty, but nothing ranks against it.
// The returned error reports the embedding failure and is informational.
func BuildFallback(ctx context.Context, embedder Embedder) (*Store, error) {
	records := FallbackRecords()
	chunks := make([]Chunk, len(records))
	for i, rec := range records {
		chunks[i] = Chunk{
			ID:      fmt.Sprintf("fallback-%d", i),
			Content: rec.Content,
			Source:  rec.Source,
			Title:   rec.Title,
		}
	}

	store := &Store{
		chunks:   chunks,
		origin:   FallbackOrigin,
		fallback: true,
		loadedAt: time.Now(),
	}

	if embedder == nil {
		return store, fmt.Errorf("no embedder configured for fallback corpus")
	}

	vectors := make([][]float32, len(chunks))
	for i := range chunks {
		vec, err := embedder.Embed(ctx, chunks[i].Content)
		if err != nil {
			return store, fmt.Errorf("embed fallback chunk %d: %w", i, err)
		}
		vectors[i] = vec
	}
	for i := range chunks {
		chunks[i].Vector = vectors[i]
	}
	if len(vectors) > 0 {
		store.dimension = len(vectors[0])
	}
	return store, nil
}
