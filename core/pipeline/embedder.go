package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/knights-analytics/hugot"
	"github.com/patrickmn/go-cache"
	"github.com/siherrmann/mesher/helper"
	"golang.org/x/sync/errgroup"
)

// DefaultEmbedder creates an embedder using a real sentence transformer model.
// Uses the all-MiniLM-L6-v2 model which produces 384-dimensional embeddings.
func DefaultEmbedder() (EmbedFunc, error) {
	// Prepare model (download if needed)
	modelName := "sentence-transformers/all-MiniLM-L6-v2"
	modelPath, err := helper.PrepareModel(modelName, "")
	if err != nil {
		return nil, err
	}

	// Initialize hugot session with Go backend
	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	// Create sentence transformers pipeline configuration
	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "embedder-pipeline",
	}
	sentencePipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create sentence pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create sentence pipeline: %w", err)
	}

	return func(text string) ([]float32, error) {
		// Generate embedding for the text
		result, err := sentencePipeline.RunPipeline([]string{text})
		if err != nil {
			return nil, fmt.Errorf("failed to generate embedding: %w", err)
		}

		if len(result.Embeddings) == 0 {
			return nil, fmt.Errorf("no embedding generated")
		}

		// Extract the first (and only) embedding
		embedding := result.Embeddings[0]
		return embedding, nil
	}, nil
}

// CachingEmbedder wraps an embedder with a content-hash cache. Embeddings
// are deterministic per model and text, so the SHA-256 of the text is a
// valid cache key for the given TTL.
func CachingEmbedder(embedder EmbedFunc, store *cache.Cache, ttl time.Duration) EmbedFunc {
	return func(text string) ([]float32, error) {
		hash := sha256.Sum256([]byte(text))
		key := "embedding:" + hex.EncodeToString(hash[:])

		if cached, found := store.Get(key); found {
			if embedding, ok := cached.([]float32); ok {
				return embedding, nil
			}
		}

		embedding, err := embedder(text)
		if err != nil {
			return nil, err
		}

		store.Set(key, embedding, ttl)
		return embedding, nil
	}
}

// EmbedBatch embeds all texts with bounded concurrency. Results keep the
// input order regardless of completion order. The first error aborts the
// whole batch.
func EmbedBatch(ctx context.Context, embedder EmbedFunc, texts []string, concurrency int) ([][]float32, error) {
	if concurrency <= 0 {
		concurrency = 1
	}

	embeddings := make([][]float32, len(texts))

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)

	for i, text := range texts {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			embedding, err := embedder(text)
			if err != nil {
				return helper.NewError(fmt.Sprintf("embed text %d", i), err)
			}

			embeddings[i] = embedding
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return embeddings, nil
}
