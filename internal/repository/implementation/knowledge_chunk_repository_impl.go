package implementation

import (
	"context"
	"fmt"
	"time"

	"nau-assistant/internal/model"
	"nau-assistant/pkg/knowledge"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// KnowledgeChunkRepository reads and replaces the knowledge snapshot stored in
// Postgres. It is a knowledge.Loader.
type KnowledgeChunkRepository struct {
	db *gorm.DB
}

var _ knowledge.Loader = (*KnowledgeChunkRepository)(nil)

func NewKnowledgeChunkRepository(db *gorm.DB) *KnowledgeChunkRepository {
	return &KnowledgeChunkRepository{db: db}
}

func (r *KnowledgeChunkRepository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Exec(`CREATE EXTENSION IF NOT EXISTS vector;`).Error; err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}
	return r.db.WithContext(ctx).AutoMigrate(&model.KnowledgeChunk{})
}

func (r *KnowledgeChunkRepository) Load(ctx context.Context) (*knowledge.Snapshot, error) {
	var rows []model.KnowledgeChunk
	if err := r.db.WithContext(ctx).Order("position ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query knowledge_chunks: %w", err)
	}

	snap := &knowledge.Snapshot{
		Records: make([]knowledge.Record, len(rows)),
		Vectors: make([][]float32, len(rows)),
		Origin:  "postgres:knowledge_chunks",
	}
	for i, row := range rows {
		snap.Records[i] = knowledge.Record{
			Content: row.Content,
			Source:  row.Source,
			Title:   row.Title,
		}
		snap.Vectors[i] = row.Embedding.Slice()
		if row.CreatedAt.After(snap.ModifiedAt) {
			snap.ModifiedAt = row.CreatedAt
		}
	}
	return snap, nil
}

// ReplaceAll swaps the table contents for snap inside one transaction.
func (r *KnowledgeChunkRepository) ReplaceAll(ctx context.Context, snap *knowledge.Snapshot) error {
	if len(snap.Records) != len(snap.Vectors) {
		return fmt.Errorf("chunk count %d does not match vector count %d", len(snap.Records), len(snap.Vectors))
	}

	now := time.Now()
	rows := make([]model.KnowledgeChunk, len(snap.Records))
	for i, rec := range snap.Records {
		rows[i] = model.KnowledgeChunk{
			Position:  i,
			Content:   rec.Content,
			Source:    rec.Source,
			Title:     rec.Title,
			Embedding: pgvector.NewVector(snap.Vectors[i]),
			CreatedAt: now,
		}
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.KnowledgeChunk{}).Error; err != nil {
			return fmt.Errorf("clear knowledge_chunks: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, 200).Error; err != nil {
			return fmt.Errorf("insert knowledge_chunks: %w", err)
		}
		return nil
	})
}
