package knowledge

import (
	"context"
	"fmt"
	"time"

	"nau-assistant/pkg/apperror"

	"github.com/hashicorp/go-multierror"
)

// DefaultSource is cited for records that carry no source of their own.
const DefaultSource = "https://www.na.edu"

// Record is one chunk entry of a persisted snapshot.
type Record struct {
	Content string `json:"content"`
	Source  string `json:"source,omitempty"`
	Title   string `json:"title,omitempty"`
}

// Snapshot is the persisted form of a store: ordered records and a parallel
// array of vectors.
type Snapshot struct {
	Records    []Record
	Vectors    [][]float32
	Origin     string
	ModifiedAt time.Time
}

// Loader reads a snapshot from storage.
type Loader interface {
	Load(ctx context.Context) (*Snapshot, error)
}

// Build validates a snapshot and turns it into a Store. Every problem found is
// reported in a single DataUnavailable error.
func Build(snap *Snapshot) (*Store, error) {
	const op = "knowledge.Build"

	if snap == nil {
		return nil, apperror.Wrap(apperror.KindDataUnavailable, op, fmt.Errorf("nil snapshot"))
	}

	var result *multierror.Error
	if len(snap.Records) == 0 {
		result = multierror.Append(result, fmt.Errorf("snapshot has no chunks"))
	}
	if len(snap.Records) != len(snap.Vectors) {
		result = multierror.Append(result, fmt.Errorf("chunk count %d does not match vector count %d", len(snap.Records), len(snap.Vectors)))
	}

	dimension := 0
	if len(snap.Vectors) > 0 {
		dimension = len(snap.Vectors[0])
	}
	for i, vec := range snap.Vectors {
		if len(vec) == 0 {
			result = multierror.Append(result, fmt.Errorf("vector %d is empty", i))
			continue
		}
		if len(vec) != dimension {
			result = multierror.Append(result, fmt.Errorf("vector %d has dimension %d, want %d", i, len(vec), dimension))
		}
	}
	for i, rec := range snap.Records {
		if rec.Content == "" {
			result = multierror.Append(result, fmt.Errorf("chunk %d has no content", i))
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, apperror.Wrap(apperror.KindDataUnavailable, op, err)
	}

	chunks := make([]Chunk, len(snap.Records))
	for i, rec := range snap.Records {
		source := rec.Source
		if source == "" {
			source = DefaultSource
		}
		chunks[i] = Chunk{
			ID:      fmt.Sprintf("chunk-%d", i),
			Content: rec.Content,
			Source:  source,
			Title:   rec.Title,
			Vector:  snap.Vectors[i],
		}
	}

	return &Store{
		chunks:    chunks,
		dimension: dimension,
		origin:    snap.Origin,
		loadedAt:  time.Now(),
	}, nil
}

// Load reads and builds a store in one step.
func Load(ctx context.Context, loader Loader) (*Store, error) {
	snap, err := loader.Load(ctx)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindDataUnavailable, "knowledge.Load", err)
	}
	return Build(snap)
}
