package model

import (
	"os"
	"path/filepath"
)

// NodeType represents the kind of content a mesh node carries
type NodeType string

const (
	NodeTypeContent NodeType = "content"
	NodeTypeTopic   NodeType = "topic"
	NodeTypeCustom  NodeType = "custom"
)

// ContentItem represents a single piece of content supplied by the caller.
// It is immutable input to the analysis pipeline.
type ContentItem struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata,omitempty"`
}

// NewContentItemFromFile reads a file and creates a ContentItem with the file content.
// The title defaults to the filename without extension, the id to the file path.
func NewContentItemFromFile(filePath string, metadata Metadata) (*ContentItem, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	// Get filename without extension for default title
	filename := filepath.Base(filePath)
	title := filename[:len(filename)-len(filepath.Ext(filename))]
	if title == "" {
		title = filename
	}

	return &ContentItem{
		ID:       filePath,
		Title:    title,
		Content:  string(content),
		Metadata: metadata,
	}, nil
}

// ContentNode represents a vertex in the content mesh. One node is created
// per ContentItem when the mesh is built. Community and PageRank are analysis
// annotations attached after construction; Community is -1 when the node is
// not assigned to any community.
type ContentNode struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content,omitempty"`
	Embedding []float32 `json:"embedding,omitempty"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	NodeType  NodeType  `json:"node_type"`
	Community int       `json:"community"`
	PageRank  float64   `json:"page_rank"`
	// Results
	Similarity *float64 `json:"similarity,omitempty"`
}

// NewContentNode creates a mesh node from a content item and its embedding
func NewContentNode(item *ContentItem, embedding []float32) *ContentNode {
	return &ContentNode{
		ID:        item.ID,
		Title:     item.Title,
		Content:   item.Content,
		Embedding: embedding,
		Metadata:  item.Metadata,
		NodeType:  NodeTypeContent,
		Community: -1,
	}
}
