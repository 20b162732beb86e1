package store_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/mediassist/internal/testutil"
	"github.com/xhad/mediassist/internal/types"
	"github.com/xhad/mediassist/pkg/store"
)

var chunks = []string{
	"Patient has mild fever.",
	"Blood pressure is within the normal range.",
	"The patient reports a persistent dry cough.",
	"Prescribed paracetamol for the fever.",
	"No known drug allergies.",
}

func TestMemoryIndex_Search(t *testing.T) {
	ctx := context.Background()
	emb := testutil.NewEmbedder()

	index, err := store.NewMemoryBuilder(emb, 3).Build(ctx, chunks)
	require.NoError(t, err)
	assert.Equal(t, len(chunks), index.Len())
	assert.Equal(t, len(chunks), emb.Documents)

	queries := []string{"fever", "blood pressure", "cough", "allergies", "unrelated words entirely"}
	for _, q := range queries {
		for k := 1; k <= len(chunks)+2; k++ {
			results, err := index.Search(ctx, q, k)
			require.NoError(t, err)

			assert.LessOrEqual(t, len(results), k)
			for i, r := range results {
				assert.Contains(t, chunks, r.Text)
				assert.Equal(t, chunks[r.Position], r.Text)
				if i > 0 {
					assert.GreaterOrEqual(t, results[i-1].Score, r.Score)
				}
			}
		}
	}

	results, err := index.Search(ctx, "blood pressure", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, chunks[1], results[0].Text)
}

func TestMemoryIndex_DefaultLimit(t *testing.T) {
	ctx := context.Background()
	index, err := store.NewMemoryBuilder(testutil.NewEmbedder(), 0).Build(ctx, chunks)
	require.NoError(t, err)

	results, err := index.Search(ctx, "fever", 0)
	require.NoError(t, err)
	assert.Len(t, results, store.DefaultSearchLimit)
}

func TestMemoryIndex_TiesAreDeterministic(t *testing.T) {
	ctx := context.Background()
	same := []string{"identical text", "identical text", "identical text", "other"}
	index, err := store.NewMemoryBuilder(testutil.NewEmbedder(), 3).Build(ctx, same)
	require.NoError(t, err)

	first, err := index.Search(ctx, "identical text", 3)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := index.Search(ctx, "identical text", 3)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, []int{0, 1, 2}, []int{first[0].Position, first[1].Position, first[2].Position})
}

func TestMemoryIndex_SearchBeforeBuild(t *testing.T) {
	ctx := context.Background()

	var nilIndex *store.MemoryIndex
	var zero store.MemoryIndex

	for _, q := range []string{"", "fever", "anything at all"} {
		for _, k := range []int{-1, 0, 1, 10} {
			_, err := nilIndex.Search(ctx, q, k)
			assert.ErrorIs(t, err, types.ErrEmptyIndex)

			_, err = zero.Search(ctx, q, k)
			assert.ErrorIs(t, err, types.ErrEmptyIndex)
		}
	}
}

func TestMemoryBuilder_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := store.NewMemoryBuilder(testutil.NewEmbedder(), 3).Build(ctx, nil)
	assert.ErrorIs(t, err, types.ErrNoText)

	failing := testutil.NewEmbedder()
	failing.Err = errors.New("embedding service down")
	_, err = store.NewMemoryBuilder(failing, 3).Build(ctx, chunks)
	assert.ErrorContains(t, err, "embedding service down")
}

func TestMemoryIndex_RebuildReplaces(t *testing.T) {
	ctx := context.Background()
	builder := store.NewMemoryBuilder(testutil.NewEmbedder(), 10)

	_, err := builder.Build(ctx, []string{"first upload about fever"})
	require.NoError(t, err)

	second := make([]string, 4)
	for i := range second {
		second[i] = fmt.Sprintf("second upload note %d", i)
	}
	index, err := builder.Build(ctx, second)
	require.NoError(t, err)

	results, err := index.Search(ctx, "first upload about fever", 10)
	require.NoError(t, err)
	for _, r := range results {
		assert.Contains(t, second, r.Text)
	}
}
