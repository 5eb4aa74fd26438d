package model

// TokenToCharRatio is the rough number of characters per token used for
// token estimates on chunks.
const TokenToCharRatio = 4

// TextChunk represents a contiguous substring of a document produced by
// chunking. Chunks are transient: they live for one embedding call and are
// mean-pooled into a document embedding afterwards.
type TextChunk struct {
	Text          string    `json:"text"`
	StartPos      int       `json:"start_pos"`
	EndPos        int       `json:"end_pos"`
	ChunkIndex    int       `json:"chunk_index"`
	CharCount     int       `json:"char_count"`
	TokenEstimate int       `json:"token_estimate"`
	Embedding     []float32 `json:"embedding,omitempty"`
	Metadata      Metadata  `json:"metadata,omitempty"`
}

// NewTextChunk creates a chunk with derived character and token counts
func NewTextChunk(text string, startPos int, chunkIndex int) TextChunk {
	return TextChunk{
		Text:          text,
		StartPos:      startPos,
		EndPos:        startPos + len(text),
		ChunkIndex:    chunkIndex,
		CharCount:     len(text),
		TokenEstimate: len(text) / TokenToCharRatio,
		Metadata:      Metadata{},
	}
}
