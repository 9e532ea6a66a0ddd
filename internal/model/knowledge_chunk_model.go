package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// KnowledgeChunk is one row of the persisted knowledge snapshot. Rows are
// read in Position order.
type KnowledgeChunk struct {
	Id        uint            `gorm:"primaryKey"`
	Position  int             `gorm:"not null;index"`
	Content   string          `gorm:"type:text;not null"`
	Source    string          `gorm:"type:text"`
	Title     string          `gorm:"type:text"`
	Embedding pgvector.Vector `gorm:"type:vector"`
	CreatedAt time.Time       `gorm:"autoCreateTime"`
}

func (KnowledgeChunk) TableName() string {
	return "knowledge_chunks"
}
