package database

import (
	"testing"

	"github.com/siherrmann/mesher/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// axisEmbedding creates a normalized 384-dimension embedding pointing along
// one axis, so cosine similarities between test nodes are exact.
func axisEmbedding(axis int) []float32 {
	embedding := make([]float32, 384)
	embedding[axis] = 1.0
	return embedding
}

func TestContentsNewContentsDBHandler(t *testing.T) {
	database := initDB(t)

	t.Run("Valid call NewContentsDBHandler", func(t *testing.T) {
		contentsDbHandler, err := NewContentsDBHandler(database, 384, true)
		assert.NoError(t, err, "Expected NewContentsDBHandler to not return an error")
		require.NotNil(t, contentsDbHandler, "Expected NewContentsDBHandler to return a non-nil instance")
		require.NotNil(t, contentsDbHandler.db, "Expected NewContentsDBHandler to have a non-nil database instance")
		require.NotNil(t, contentsDbHandler.db.Instance, "Expected NewContentsDBHandler to have a non-nil database connection instance")
	})

	t.Run("Invalid call NewContentsDBHandler with nil database", func(t *testing.T) {
		_, err := NewContentsDBHandler(nil, 384, false)
		assert.Error(t, err, "Expected error when creating ContentsDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil", "Expected specific error message for nil database connection")
	})
}

func TestContentsUpsert(t *testing.T) {
	database := initDB(t)

	contentsDbHandler, err := NewContentsDBHandler(database, 384, true)
	require.NoError(t, err, "Expected NewContentsDBHandler to not return an error")

	t.Run("Insert content node", func(t *testing.T) {
		node := &model.ContentNode{
			ID:        "post-1",
			Title:     "Brewing guide",
			Content:   "How to brew filter coffee at home.",
			Embedding: axisEmbedding(0),
			NodeType:  model.NodeTypeContent,
			Community: 2,
			PageRank:  0.25,
			Metadata:  map[string]interface{}{"author": "Test Author"},
		}

		err := contentsDbHandler.UpsertContent("request-upsert", node)
		assert.NoError(t, err, "Expected UpsertContent to not return an error")
		assert.Equal(t, 384, len(node.Embedding), "Expected embedding to be preserved")
		assert.Equal(t, model.NodeTypeContent, node.NodeType, "Expected node type to be preserved")
		assert.Equal(t, "Test Author", node.Metadata["author"], "Expected metadata to be preserved")
	})

	t.Run("Upsert existing content node updates it", func(t *testing.T) {
		node := &model.ContentNode{
			ID:        "post-1",
			Title:     "Brewing guide, revised",
			Content:   "How to brew filter coffee at home, updated.",
			Embedding: axisEmbedding(1),
			NodeType:  model.NodeTypeContent,
			Community: 3,
			PageRank:  0.5,
			Metadata:  map[string]interface{}{},
		}

		err := contentsDbHandler.UpsertContent("request-upsert", node)
		assert.NoError(t, err, "Expected UpsertContent on existing node to not return an error")

		stored, err := contentsDbHandler.SelectContent("request-upsert", "post-1")
		require.NoError(t, err, "Expected SelectContent to not return an error")
		assert.Equal(t, "Brewing guide, revised", stored.Title, "Expected title to be updated")
		assert.Equal(t, 3, stored.Community, "Expected community to be updated")
		assert.Equal(t, 0.5, stored.PageRank, "Expected page rank to be updated")

		nodes, err := contentsDbHandler.SelectContentsByRequest("request-upsert")
		require.NoError(t, err, "Expected SelectContentsByRequest to not return an error")
		assert.Len(t, nodes, 1, "Expected upsert to replace instead of duplicating the node")
	})

	t.Run("Same node id under a different request is a separate row", func(t *testing.T) {
		node := &model.ContentNode{
			ID:        "post-1",
			Title:     "Brewing guide",
			Embedding: axisEmbedding(0),
			NodeType:  model.NodeTypeContent,
			Metadata:  map[string]interface{}{},
		}

		err := contentsDbHandler.UpsertContent("request-other", node)
		assert.NoError(t, err, "Expected UpsertContent under a second request to not return an error")

		nodes, err := contentsDbHandler.SelectContentsByRequest("request-upsert")
		require.NoError(t, err, "Expected SelectContentsByRequest to not return an error")
		assert.Len(t, nodes, 1, "Expected the original request to keep a single node")
	})

	// Cleanup
	contentsDbHandler.DeleteContentsByRequest("request-upsert")
	contentsDbHandler.DeleteContentsByRequest("request-other")
}

func TestContentsSelect(t *testing.T) {
	database := initDB(t)

	contentsDbHandler, err := NewContentsDBHandler(database, 384, true)
	require.NoError(t, err, "Expected NewContentsDBHandler to not return an error")

	nodeIDs := []string{"post-a", "post-b", "post-c"}
	for i, id := range nodeIDs {
		node := &model.ContentNode{
			ID:        id,
			Title:     "Title " + id,
			Content:   "Content " + id,
			Embedding: axisEmbedding(i),
			NodeType:  model.NodeTypeContent,
			Metadata:  map[string]interface{}{},
		}
		err := contentsDbHandler.UpsertContent("request-select", node)
		require.NoError(t, err, "Expected UpsertContent to not return an error")
	}

	t.Run("Select single content node", func(t *testing.T) {
		node, err := contentsDbHandler.SelectContent("request-select", "post-b")
		assert.NoError(t, err, "Expected SelectContent to not return an error")
		require.NotNil(t, node, "Expected SelectContent to return a node")
		assert.Equal(t, "post-b", node.ID, "Expected the requested node id")
		assert.Equal(t, "Title post-b", node.Title, "Expected the stored title")
		assert.Equal(t, 384, len(node.Embedding), "Expected the stored embedding")
	})

	t.Run("Select missing content node returns error", func(t *testing.T) {
		_, err := contentsDbHandler.SelectContent("request-select", "post-missing")
		assert.Error(t, err, "Expected error when selecting a missing node")
	})

	t.Run("Select all content nodes of a request in insertion order", func(t *testing.T) {
		nodes, err := contentsDbHandler.SelectContentsByRequest("request-select")
		assert.NoError(t, err, "Expected SelectContentsByRequest to not return an error")
		require.Len(t, nodes, 3, "Expected all nodes of the request")
		for i, node := range nodes {
			assert.Equal(t, nodeIDs[i], node.ID, "Expected nodes in insertion order")
		}
	})

	t.Run("Select content nodes of unknown request returns empty", func(t *testing.T) {
		nodes, err := contentsDbHandler.SelectContentsByRequest("request-unknown")
		assert.NoError(t, err, "Expected SelectContentsByRequest to not return an error for unknown request")
		assert.Empty(t, nodes, "Expected no nodes for unknown request")
	})

	// Cleanup
	contentsDbHandler.DeleteContentsByRequest("request-select")
}

func TestContentsSelectBySimilarity(t *testing.T) {
	database := initDB(t)

	contentsDbHandler, err := NewContentsDBHandler(database, 384, true)
	require.NoError(t, err, "Expected NewContentsDBHandler to not return an error")

	// Similarity search spans all requests, so start from an empty table.
	_, err = database.Instance.Exec(`TRUNCATE contents;`)
	require.NoError(t, err, "Expected truncating contents to not return an error")

	// Orthogonal axis embeddings have cosine similarity 0 with each other,
	// so one query axis matches exactly one node.
	for i, id := range []string{"post-x", "post-y", "post-z"} {
		node := &model.ContentNode{
			ID:        id,
			Title:     "Title " + id,
			Embedding: axisEmbedding(i),
			NodeType:  model.NodeTypeContent,
			Metadata:  map[string]interface{}{},
		}
		err := contentsDbHandler.UpsertContent("request-similarity", node)
		require.NoError(t, err, "Expected UpsertContent to not return an error")
	}

	t.Run("Most similar node first with similarity attached", func(t *testing.T) {
		// Query leaning towards axis 1, with a smaller axis 0 component.
		query := make([]float32, 384)
		query[0] = 0.3
		query[1] = 0.9

		nodes, err := contentsDbHandler.SelectContentsBySimilarity(query, 10, 0.0)
		assert.NoError(t, err, "Expected SelectContentsBySimilarity to not return an error")
		require.NotEmpty(t, nodes, "Expected similar nodes")
		assert.Equal(t, "post-y", nodes[0].ID, "Expected the closest node first")
		require.NotNil(t, nodes[0].Similarity, "Expected similarity score on results")
		assert.InDelta(t, 0.948, *nodes[0].Similarity, 0.01, "Expected cosine similarity of the query with axis 1")
	})

	t.Run("Threshold filters dissimilar nodes", func(t *testing.T) {
		nodes, err := contentsDbHandler.SelectContentsBySimilarity(axisEmbedding(0), 10, 0.5)
		assert.NoError(t, err, "Expected SelectContentsBySimilarity to not return an error")
		require.Len(t, nodes, 1, "Expected only the matching axis node above the threshold")
		assert.Equal(t, "post-x", nodes[0].ID, "Expected the matching axis node")
	})

	t.Run("Limit caps the result count", func(t *testing.T) {
		query := make([]float32, 384)
		query[0] = 1.0
		query[1] = 1.0
		query[2] = 1.0

		nodes, err := contentsDbHandler.SelectContentsBySimilarity(query, 2, 0.0)
		assert.NoError(t, err, "Expected SelectContentsBySimilarity to not return an error")
		assert.Len(t, nodes, 2, "Expected the limit to cap the result count")
	})

	// Cleanup
	contentsDbHandler.DeleteContentsByRequest("request-similarity")
}

func TestContentsDeleteAndCount(t *testing.T) {
	database := initDB(t)

	contentsDbHandler, err := NewContentsDBHandler(database, 384, true)
	require.NoError(t, err, "Expected NewContentsDBHandler to not return an error")

	// Counting spans all requests, so start from an empty table.
	_, err = database.Instance.Exec(`TRUNCATE contents;`)
	require.NoError(t, err, "Expected truncating contents to not return an error")

	for i, id := range []string{"post-1", "post-2"} {
		node := &model.ContentNode{
			ID:        id,
			Title:     "Title " + id,
			Embedding: axisEmbedding(i),
			NodeType:  model.NodeTypeContent,
			Metadata:  map[string]interface{}{},
		}
		err := contentsDbHandler.UpsertContent("request-delete", node)
		require.NoError(t, err, "Expected UpsertContent to not return an error")
	}

	t.Run("Count contents", func(t *testing.T) {
		count, err := contentsDbHandler.CountContents()
		assert.NoError(t, err, "Expected CountContents to not return an error")
		assert.Equal(t, int64(2), count, "Expected both inserted nodes counted")
	})

	t.Run("Delete contents by request", func(t *testing.T) {
		deleted, err := contentsDbHandler.DeleteContentsByRequest("request-delete")
		assert.NoError(t, err, "Expected DeleteContentsByRequest to not return an error")
		assert.Equal(t, 2, deleted, "Expected both nodes of the request deleted")

		count, err := contentsDbHandler.CountContents()
		assert.NoError(t, err, "Expected CountContents to not return an error")
		assert.Equal(t, int64(0), count, "Expected no nodes after deletion")
	})

	t.Run("Delete contents of unknown request deletes nothing", func(t *testing.T) {
		deleted, err := contentsDbHandler.DeleteContentsByRequest("request-unknown")
		assert.NoError(t, err, "Expected DeleteContentsByRequest to not return an error for unknown request")
		assert.Equal(t, 0, deleted, "Expected nothing deleted for unknown request")
	})
}
