package database

import (
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/mesher/helper"
	"github.com/siherrmann/mesher/model"
	loadSql "github.com/siherrmann/mesher/sql"
)

// ContentsDBHandlerFunctions defines the interface for contents database operations.
type ContentsDBHandlerFunctions interface {
	UpsertContent(requestID string, node *model.ContentNode) error
	SelectContent(requestID string, nodeID string) (*model.ContentNode, error)
	SelectContentsByRequest(requestID string) ([]*model.ContentNode, error)
	SelectContentsBySimilarity(embedding []float32, limit int, threshold float64) ([]*model.ContentNode, error)
	DeleteContentsByRequest(requestID string) (int, error)
	CountContents() (int64, error)
}

// ContentsDBHandler handles content-node database operations
type ContentsDBHandler struct {
	db *helper.Database
}

// NewContentsDBHandler creates a new contents database handler.
// It initializes the database connection and loads content-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewContentsDBHandler(db *helper.Database, embeddingDim int, force bool) (*ContentsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	contentsDbHandler := &ContentsDBHandler{
		db: db,
	}

	err := loadSql.LoadContentsSql(contentsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load contents sql", err)
	}

	err = contentsDbHandler.CreateTable(embeddingDim)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ContentsDBHandler")

	return contentsDbHandler, nil
}

// CreateTable creates the 'contents' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *ContentsDBHandler) CreateTable(embeddingDim int) error {
	_, err := h.db.Instance.Exec(`SELECT init_contents($1);`, embeddingDim)
	if err != nil {
		return helper.NewError("initialize contents table", err)
	}

	h.db.Logger.Info("Checked/created table contents")

	return nil
}

// UpsertContent inserts a content node or updates it when the request and
// node id pair already exists
func (h *ContentsDBHandler) UpsertContent(requestID string, node *model.ContentNode) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM upsert_content($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		requestID,
		node.ID,
		node.Title,
		node.Content,
		pgvector.NewVector(node.Embedding),
		string(node.NodeType),
		node.Community,
		node.PageRank,
		node.Metadata,
	)

	var rowID int
	var rowRequestID string
	var nodeType string
	var embedding pgvector.Vector
	var createdAt time.Time
	err := row.Scan(
		&rowID,
		&rowRequestID,
		&node.ID,
		&node.Title,
		&node.Content,
		&embedding,
		&nodeType,
		&node.Community,
		&node.PageRank,
		&node.Metadata,
		&createdAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	node.Embedding = embedding.Slice()
	node.NodeType = model.NodeType(nodeType)

	return nil
}

// SelectContent retrieves one content node of a request
func (h *ContentsDBHandler) SelectContent(requestID string, nodeID string) (*model.ContentNode, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_content($1, $2)`,
		requestID,
		nodeID,
	)

	node := &model.ContentNode{}
	var rowID int
	var rowRequestID string
	var nodeType string
	var embedding pgvector.Vector
	var createdAt time.Time
	err := row.Scan(
		&rowID,
		&rowRequestID,
		&node.ID,
		&node.Title,
		&node.Content,
		&embedding,
		&nodeType,
		&node.Community,
		&node.PageRank,
		&node.Metadata,
		&createdAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	node.Embedding = embedding.Slice()
	node.NodeType = model.NodeType(nodeType)

	return node, nil
}

// SelectContentsByRequest retrieves all content nodes of a request in
// insertion order
func (h *ContentsDBHandler) SelectContentsByRequest(requestID string) ([]*model.ContentNode, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_contents_by_request($1)`,
		requestID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var nodes []*model.ContentNode
	for rows.Next() {
		node := &model.ContentNode{}
		var rowID int
		var rowRequestID string
		var nodeType string
		var embedding pgvector.Vector
		var createdAt time.Time
		err := rows.Scan(
			&rowID,
			&rowRequestID,
			&node.ID,
			&node.Title,
			&node.Content,
			&embedding,
			&nodeType,
			&node.Community,
			&node.PageRank,
			&node.Metadata,
			&createdAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		node.Embedding = embedding.Slice()
		node.NodeType = model.NodeType(nodeType)
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, helper.NewError("iterate rows", err)
	}

	return nodes, nil
}

// SelectContentsBySimilarity retrieves the content nodes most similar to an
// embedding across all requests, with their similarity score attached
func (h *ContentsDBHandler) SelectContentsBySimilarity(embedding []float32, limit int, threshold float64) ([]*model.ContentNode, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_contents_by_similarity($1, $2, $3)`,
		pgvector.NewVector(embedding),
		limit,
		threshold,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var nodes []*model.ContentNode
	for rows.Next() {
		node := &model.ContentNode{}
		var rowID int
		var rowRequestID string
		var nodeType string
		var nodeEmbedding pgvector.Vector
		var createdAt time.Time
		var similarity float64
		err := rows.Scan(
			&rowID,
			&rowRequestID,
			&node.ID,
			&node.Title,
			&node.Content,
			&nodeEmbedding,
			&nodeType,
			&node.Community,
			&node.PageRank,
			&node.Metadata,
			&createdAt,
			&similarity,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		node.Embedding = nodeEmbedding.Slice()
		node.NodeType = model.NodeType(nodeType)
		node.Similarity = &similarity
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, helper.NewError("iterate rows", err)
	}

	return nodes, nil
}

// DeleteContentsByRequest deletes all content nodes of a request and returns
// the deleted count
func (h *ContentsDBHandler) DeleteContentsByRequest(requestID string) (int, error) {
	var deleted int
	err := h.db.Instance.QueryRow(
		`SELECT delete_contents_by_request($1)`,
		requestID,
	).Scan(&deleted)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return deleted, nil
}

// CountContents returns the total number of stored content nodes
func (h *ContentsDBHandler) CountContents() (int64, error) {
	var count int64
	err := h.db.Instance.QueryRow(`SELECT count_contents()`).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}
