package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func unitVec(x, y float32) []float32 { return []float32{x, y} }

func TestCollectionNameScopedPerProjectAndKind(t *testing.T) {
	a := CollectionName("/repo/a", KindFiles)
	b := CollectionName("/repo/b", KindFiles)
	c := CollectionName("/repo/a", KindFunctions)

	require.NotEqual(t, a, b)
	require.NotEqual(t, a, c)
	require.Equal(t, a, CollectionName("/repo/a", KindFiles))
}

func TestUpsertAndQueryReturnsBestMatchFirst(t *testing.T) {
	s := New()
	ctx := context.Background()

	docs := []Document{
		{ID: "1", Text: "readme", Embedding: unitVec(1, 0), Metadata: map[string]any{"relative_path": "README.md"}},
		{ID: "2", Text: "other", Embedding: unitVec(0, 1), Metadata: map[string]any{"relative_path": "other.go"}},
	}
	require.NoError(t, s.Upsert(ctx, "/repo", KindFiles, docs))

	hits, err := s.Query(ctx, "/repo", KindFiles, unitVec(1, 0), 2, nil)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Equal(t, "1", hits[0].ID)
	require.Greater(t, hits[0].Score, hits[1].Score)
}

func TestUpsertReplacesExistingID(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "/repo", KindFiles, []Document{
		{ID: "1", Text: "v1", Embedding: unitVec(1, 0), Metadata: map[string]any{}},
	}))
	require.NoError(t, s.Upsert(ctx, "/repo", KindFiles, []Document{
		{ID: "1", Text: "v2", Embedding: unitVec(1, 0), Metadata: map[string]any{}},
	}))

	require.Equal(t, 1, s.Count("/repo", KindFiles))
	hits, err := s.Query(ctx, "/repo", KindFiles, unitVec(1, 0), 1, nil)
	require.NoError(t, err)
	require.Equal(t, "v2", hits[0].Text)
}

func TestDeleteByIDs(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "/repo", KindFiles, []Document{
		{ID: "1", Text: "a", Embedding: unitVec(1, 0), Metadata: map[string]any{}},
	}))
	require.NoError(t, s.DeleteByIDs(ctx, "/repo", KindFiles, []string{"1"}))
	require.Equal(t, 0, s.Count("/repo", KindFiles))
}

func TestDeleteWhere(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "/repo", KindFiles, []Document{
		{ID: "1", Text: "a", Embedding: unitVec(1, 0), Metadata: map[string]any{"relative_path": "a.go"}},
		{ID: "2", Text: "b", Embedding: unitVec(0, 1), Metadata: map[string]any{"relative_path": "b.go"}},
	}))
	require.NoError(t, s.DeleteWhere(ctx, "/repo", KindFiles, Predicate{"relative_path": "a.go"}))
	require.Equal(t, 1, s.Count("/repo", KindFiles))
}

func TestEncodeDecodeListRoundTrip(t *testing.T) {
	items := []string{"alpha", "beta", "gamma"}
	encoded := EncodeList(items)
	require.Equal(t, items, DecodeList(encoded))
	require.Nil(t, DecodeList(""))
}

func TestEncodeMetadataScalars(t *testing.T) {
	m := EncodeMetadata(map[string]any{
		"name":    "f",
		"ok":      true,
		"count":   3,
		"score":   1.5,
		"modules": []string{"a", "b"},
	})
	require.Equal(t, "f", m["name"])
	require.Equal(t, "true", m["ok"])
	require.Equal(t, "3", m["count"])
	require.Equal(t, "1.5", m["score"])
	require.Equal(t, []string{"a", "b"}, DecodeList(m["modules"]))
}

func TestQueryEmptyCollectionReturnsNil(t *testing.T) {
	s := New()
	hits, err := s.Query(context.Background(), "/repo", KindFiles, unitVec(1, 0), 5, nil)
	require.NoError(t, err)
	require.Nil(t, hits)
}
