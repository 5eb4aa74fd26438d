package pipeline

import (
	"context"

	"github.com/siherrmann/mesher/model"
)

// ChunkFunc is a function that splits text into chunks.
// Chunks carry their positions within the original text.
type ChunkFunc func(text string) ([]model.TextChunk, error)

// EmbedFunc is a function that generates an embedding for text.
// Implementations must be deterministic for the same model and text so that
// content-hash caching stays valid.
type EmbedFunc func(text string) ([]float32, error)

// ClassifyFunc scores the emotional tone of text in [0,1], where 0 is
// strongly negative and 1 is strongly positive. Used by the engagement
// analysis; failures there degrade to a neutral score instead of aborting.
type ClassifyFunc func(text string) (float64, error)

// Pipeline combines chunking, embedding and optional tone classification
type Pipeline struct {
	Chunker    ChunkFunc
	Embedder   EmbedFunc
	Classifier ClassifyFunc // Optional
}

// NewPipeline creates a new processing pipeline
func NewPipeline(chunker ChunkFunc, embedder EmbedFunc) *Pipeline {
	return &Pipeline{
		Chunker:  chunker,
		Embedder: embedder,
	}
}

// SetClassifier sets the tone classification function
func (p *Pipeline) SetClassifier(classifier ClassifyFunc) {
	p.Classifier = classifier
}

// EmbedDocument chunks a document, embeds every chunk and mean-pools the
// chunk embeddings into a single document vector. Returns the document
// vector and the chunks with their embeddings attached.
func (p *Pipeline) EmbedDocument(ctx context.Context, text string) ([]float32, []model.TextChunk, error) {
	chunks, err := p.Chunker(text)
	if err != nil {
		return nil, nil, err
	}

	if len(chunks) == 0 {
		return nil, nil, nil
	}

	for i := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		embedding, err := p.Embedder(chunks[i].Text)
		if err != nil {
			return nil, nil, err
		}
		chunks[i].Embedding = embedding
	}

	if len(chunks) == 1 {
		return chunks[0].Embedding, chunks, nil
	}

	// Mean pooling over chunk embeddings
	pooled := make([]float32, len(chunks[0].Embedding))
	for _, chunk := range chunks {
		for j := range chunk.Embedding {
			pooled[j] += chunk.Embedding[j]
		}
	}
	for j := range pooled {
		pooled[j] /= float32(len(chunks))
	}

	return pooled, chunks, nil
}
