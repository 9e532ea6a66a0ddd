package integration

import (
	"context"
	"log"
	"os"
	"testing"

	"nau-assistant/internal/repository/implementation"
	"nau-assistant/pkg/database"
	"nau-assistant/pkg/knowledge"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The test replaces the contents of knowledge_chunks, so it only runs
// against a database named by its own variable.
func TestKnowledgeChunkRepository(t *testing.T) {
	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("INTEGRATION_DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: INTEGRATION_DB_CONNECTION_STRING not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	require.NoError(t, err)
	ctx := context.Background()
	repo := implementation.NewKnowledgeChunkRepository(db)
	require.NoError(t, repo.Migrate(ctx))

	snap := &knowledge.Snapshot{
		Records: []knowledge.Record{
			{Content: "Tuition is $13,500 per semester.", Source: "https://www.na.edu/admissions/tuition-and-fees/", Title: "Tuition"},
			{Content: "Housing starts at $1,900.", Source: "https://www.na.edu/campus-life/housing/"},
			{Content: "Dining plans are included with housing."},
		},
		Vectors: [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
	}

	t.Run("Should round trip a snapshot in position order", func(t *testing.T) {
		require.NoError(t, repo.ReplaceAll(ctx, snap))

		store, err := knowledge.Load(ctx, repo)
		require.NoError(t, err)

		assert.Equal(t, 3, store.Len())
		assert.Equal(t, 3, store.Dimension())
		assert.Equal(t, "Tuition", store.Chunks()[0].Title)
		assert.Equal(t, []float32{0, 0, 1}, store.Chunks()[2].Vector)
		assert.Equal(t, knowledge.DefaultSource, store.Chunks()[2].Source)
	})

	t.Run("Should replace rather than append", func(t *testing.T) {
		require.NoError(t, repo.ReplaceAll(ctx, snap))
		require.NoError(t, repo.ReplaceAll(ctx, snap))

		loaded, err := repo.Load(ctx)
		require.NoError(t, err)
		assert.Len(t, loaded.Records, 3)
	})
}
