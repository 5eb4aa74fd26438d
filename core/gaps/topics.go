package gaps

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"

	"github.com/siherrmann/mesher/core/pipeline"
	"github.com/siherrmann/mesher/core/similarity"
	"github.com/siherrmann/mesher/helper"
)

// TopicMethod selects the topic modeling algorithm
type TopicMethod string

const (
	TopicMethodLDA       TopicMethod = "lda"
	TopicMethodNMF       TopicMethod = "nmf"
	TopicMethodEmbedding TopicMethod = "embedding"
)

const (
	topicTopWords = 10
	ldaIterations = 200
	nmfIterations = 100
	ldaAlpha      = 0.1
	ldaBeta       = 0.01
	randomSeed    = 42
)

// Topic is one discovered topic: its top words with weights and a coherence
// score. Coherence is a simplified co-occurrence PMI proxy, not a standard
// coherence metric; its absolute values do not transfer to other coherence
// implementations.
type Topic struct {
	ID        int       `json:"id"`
	Words     []string  `json:"words"`
	Weights   []float64 `json:"weights"`
	Coherence float64   `json:"coherence"`
	Size      int       `json:"size"`
}

// Summary joins the topic's top words into a single text usable for
// embedding comparison
func (t *Topic) Summary() string {
	return strings.Join(t.Words, " ")
}

// corpusMatrix is the tokenized corpus with its vocabulary
type corpusMatrix struct {
	documents  [][]int  // Per document, vocabulary indices of its tokens
	vocabulary []string // Index to term
	vocabIndex map[string]int
}

func buildCorpusMatrix(texts []string) *corpusMatrix {
	matrix := &corpusMatrix{vocabIndex: make(map[string]int)}
	for _, text := range texts {
		var document []int
		for _, word := range pipeline.ContentWords(text) {
			index, ok := matrix.vocabIndex[word]
			if !ok {
				index = len(matrix.vocabulary)
				matrix.vocabIndex[word] = index
				matrix.vocabulary = append(matrix.vocabulary, word)
			}
			document = append(document, index)
		}
		matrix.documents = append(matrix.documents, document)
	}
	return matrix
}

// ModelTopics discovers topics in a corpus with the selected method. LDA runs
// collapsed Gibbs sampling, NMF multiplicative updates on a TF-IDF matrix,
// and the embedding method clusters document embeddings with k-means and
// picks top terms by frequency per cluster. Errors on an empty corpus or an
// unknown method.
func ModelTopics(engine *similarity.Engine, method TopicMethod, texts []string, embeddings [][]float32, topicCount int) ([]*Topic, error) {
	if len(texts) == 0 {
		return nil, helper.NewError("model topics", fmt.Errorf("corpus is empty"))
	}
	if topicCount < 1 {
		topicCount = 1
	}
	if topicCount > len(texts) {
		topicCount = len(texts)
	}

	matrix := buildCorpusMatrix(texts)
	if len(matrix.vocabulary) == 0 {
		return nil, helper.NewError("model topics", fmt.Errorf("corpus contains no usable terms"))
	}

	var topics []*Topic
	var err error
	switch method {
	case TopicMethodLDA:
		topics = ldaTopics(matrix, topicCount)
	case TopicMethodNMF:
		topics = nmfTopics(matrix, topicCount)
	case TopicMethodEmbedding:
		topics, err = embeddingTopics(engine, matrix, texts, embeddings, topicCount)
	default:
		return nil, helper.NewError("model topics", fmt.Errorf("unknown topic method %v", method))
	}
	if err != nil {
		return nil, err
	}

	for _, topic := range topics {
		topic.Coherence = topicCoherence(topic.Words, matrix)
	}

	return topics, nil
}

// ldaTopics runs latent Dirichlet allocation via collapsed Gibbs sampling
func ldaTopics(matrix *corpusMatrix, topicCount int) []*Topic {
	vocabSize := len(matrix.vocabulary)
	rng := rand.New(rand.NewSource(randomSeed))

	// Count matrices and the initial random topic assignment per token
	docTopic := make([][]int, len(matrix.documents))
	topicWord := make([][]int, topicCount)
	topicTotal := make([]int, topicCount)
	assignments := make([][]int, len(matrix.documents))

	for k := range topicWord {
		topicWord[k] = make([]int, vocabSize)
	}
	for d, document := range matrix.documents {
		docTopic[d] = make([]int, topicCount)
		assignments[d] = make([]int, len(document))
		for i, word := range document {
			topic := rng.Intn(topicCount)
			assignments[d][i] = topic
			docTopic[d][topic]++
			topicWord[topic][word]++
			topicTotal[topic]++
		}
	}

	probabilities := make([]float64, topicCount)
	for iteration := 0; iteration < ldaIterations; iteration++ {
		for d, document := range matrix.documents {
			for i, word := range document {
				current := assignments[d][i]
				docTopic[d][current]--
				topicWord[current][word]--
				topicTotal[current]--

				total := 0.0
				for k := 0; k < topicCount; k++ {
					probabilities[k] = (float64(docTopic[d][k]) + ldaAlpha) *
						(float64(topicWord[k][word]) + ldaBeta) /
						(float64(topicTotal[k]) + ldaBeta*float64(vocabSize))
					total += probabilities[k]
				}

				sample := rng.Float64() * total
				next := topicCount - 1
				for k := 0; k < topicCount; k++ {
					sample -= probabilities[k]
					if sample <= 0 {
						next = k
						break
					}
				}

				assignments[d][i] = next
				docTopic[d][next]++
				topicWord[next][word]++
				topicTotal[next]++
			}
		}
	}

	topics := make([]*Topic, topicCount)
	for k := 0; k < topicCount; k++ {
		weights := make([]float64, vocabSize)
		for w := 0; w < vocabSize; w++ {
			weights[w] = (float64(topicWord[k][w]) + ldaBeta) /
				(float64(topicTotal[k]) + ldaBeta*float64(vocabSize))
		}
		topics[k] = topWordsTopic(k, weights, matrix.vocabulary)
		topics[k].Size = topicTotal[k]
	}

	return topics
}

// nmfTopics factorizes the TF-IDF matrix V ≈ W×H with multiplicative updates
// and reads topics off the rows of H
func nmfTopics(matrix *corpusMatrix, topicCount int) []*Topic {
	docCount := len(matrix.documents)
	vocabSize := len(matrix.vocabulary)

	tfidf := tfidfMatrix(matrix)
	rng := rand.New(rand.NewSource(randomSeed))

	w := make([][]float64, docCount)
	for d := range w {
		w[d] = make([]float64, topicCount)
		for k := range w[d] {
			w[d][k] = rng.Float64() + 0.1
		}
	}
	h := make([][]float64, topicCount)
	for k := range h {
		h[k] = make([]float64, vocabSize)
		for v := range h[k] {
			h[k][v] = rng.Float64() + 0.1
		}
	}

	const epsilon = 1e-10
	for iteration := 0; iteration < nmfIterations; iteration++ {
		// H update: H ∘ (Wᵀ V) / (Wᵀ W H)
		wtv := matrixMultiplyTranspose(w, tfidf, topicCount, vocabSize)
		wtw := make([][]float64, topicCount)
		for i := range wtw {
			wtw[i] = make([]float64, topicCount)
			for j := range wtw[i] {
				for d := 0; d < docCount; d++ {
					wtw[i][j] += w[d][i] * w[d][j]
				}
			}
		}
		for k := 0; k < topicCount; k++ {
			for v := 0; v < vocabSize; v++ {
				denominator := epsilon
				for j := 0; j < topicCount; j++ {
					denominator += wtw[k][j] * h[j][v]
				}
				h[k][v] *= wtv[k][v] / denominator
			}
		}

		// W update: W ∘ (V Hᵀ) / (W H Hᵀ)
		hht := make([][]float64, topicCount)
		for i := range hht {
			hht[i] = make([]float64, topicCount)
			for j := range hht[i] {
				for v := 0; v < vocabSize; v++ {
					hht[i][j] += h[i][v] * h[j][v]
				}
			}
		}
		for d := 0; d < docCount; d++ {
			for k := 0; k < topicCount; k++ {
				numerator := 0.0
				for v := 0; v < vocabSize; v++ {
					numerator += tfidf[d][v] * h[k][v]
				}
				denominator := epsilon
				for j := 0; j < topicCount; j++ {
					denominator += w[d][j] * hht[j][k]
				}
				w[d][k] *= numerator / denominator
			}
		}
	}

	topics := make([]*Topic, topicCount)
	for k := 0; k < topicCount; k++ {
		topics[k] = topWordsTopic(k, h[k], matrix.vocabulary)
		size := 0
		for d := 0; d < docCount; d++ {
			best := 0
			for j := 1; j < topicCount; j++ {
				if w[d][j] > w[d][best] {
					best = j
				}
			}
			if best == k {
				size++
			}
		}
		topics[k].Size = size
	}

	return topics
}

// embeddingTopics clusters document embeddings with k-means and derives each
// topic's words from term frequencies of its member documents
func embeddingTopics(engine *similarity.Engine, matrix *corpusMatrix, texts []string, embeddings [][]float32, topicCount int) ([]*Topic, error) {
	if len(embeddings) != len(texts) {
		return nil, helper.NewError("embedding topics",
			fmt.Errorf("got %d embeddings for %d documents", len(embeddings), len(texts)))
	}

	labels, info, err := engine.ClusterEmbeddings(embeddings, topicCount, similarity.ClusterConfig{
		Algorithm:     similarity.AlgorithmKMeans,
		MaxIterations: 100,
		Seed:          randomSeed,
	})
	if err != nil {
		return nil, helper.NewError("embedding topics", err)
	}

	topics := make([]*Topic, 0, len(info))
	for _, cluster := range info {
		counts := make([]float64, len(matrix.vocabulary))
		total := 0.0
		for d, label := range labels {
			if label != cluster.ID {
				continue
			}
			for _, word := range matrix.documents[d] {
				counts[word]++
				total++
			}
		}
		if total > 0 {
			for v := range counts {
				counts[v] /= total
			}
		}

		topic := topWordsTopic(cluster.ID, counts, matrix.vocabulary)
		topic.Size = cluster.Size
		topics = append(topics, topic)
	}

	return topics, nil
}

// tfidfMatrix computes the dense TF-IDF matrix of the corpus
func tfidfMatrix(matrix *corpusMatrix) [][]float64 {
	docCount := len(matrix.documents)
	vocabSize := len(matrix.vocabulary)

	documentFrequency := make([]int, vocabSize)
	for _, document := range matrix.documents {
		seen := make(map[int]bool, len(document))
		for _, word := range document {
			if !seen[word] {
				documentFrequency[word]++
				seen[word] = true
			}
		}
	}

	tfidf := make([][]float64, docCount)
	for d, document := range matrix.documents {
		tfidf[d] = make([]float64, vocabSize)
		if len(document) == 0 {
			continue
		}
		for _, word := range document {
			tfidf[d][word]++
		}
		for v := range tfidf[d] {
			if tfidf[d][v] == 0 {
				continue
			}
			tf := tfidf[d][v] / float64(len(document))
			idf := math.Log(float64(docCount)/float64(documentFrequency[v])) + 1
			tfidf[d][v] = tf * idf
		}
	}

	return tfidf
}

// matrixMultiplyTranspose computes Wᵀ×V for the NMF H update
func matrixMultiplyTranspose(w, v [][]float64, topicCount, vocabSize int) [][]float64 {
	result := make([][]float64, topicCount)
	for k := range result {
		result[k] = make([]float64, vocabSize)
		for column := 0; column < vocabSize; column++ {
			for d := range w {
				result[k][column] += w[d][k] * v[d][column]
			}
		}
	}
	return result
}

// topWordsTopic picks the highest-weighted words of a weight vector
func topWordsTopic(id int, weights []float64, vocabulary []string) *Topic {
	indices := make([]int, len(weights))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(i, j int) bool {
		return weights[indices[i]] > weights[indices[j]]
	})

	count := topicTopWords
	if count > len(indices) {
		count = len(indices)
	}

	topic := &Topic{ID: id}
	for _, index := range indices[:count] {
		if weights[index] <= 0 {
			break
		}
		topic.Words = append(topic.Words, vocabulary[index])
		topic.Weights = append(topic.Weights, weights[index])
	}

	return topic
}

// topicCoherence computes a co-occurrence PMI proxy over the topic's top
// words: the average of log((co-occurrence + 1) / (occurrence + 1)) over
// ordered word pairs, mapped to (0,1] via exp. Not a standard coherence
// metric; thresholds tuned against it do not transfer.
func topicCoherence(words []string, matrix *corpusMatrix) float64 {
	if len(words) < 2 {
		return 0
	}

	// Document sets per word
	occurrences := make([]map[int]bool, len(words))
	for i, word := range words {
		occurrences[i] = make(map[int]bool)
		index, ok := matrix.vocabIndex[word]
		if !ok {
			continue
		}
		for d, document := range matrix.documents {
			for _, token := range document {
				if token == index {
					occurrences[i][d] = true
					break
				}
			}
		}
	}

	total := 0.0
	pairs := 0
	for i := 1; i < len(words); i++ {
		for j := 0; j < i; j++ {
			if len(occurrences[j]) == 0 {
				continue
			}
			coOccurrence := 0
			for d := range occurrences[i] {
				if occurrences[j][d] {
					coOccurrence++
				}
			}
			total += math.Log(float64(coOccurrence+1) / float64(len(occurrences[j])+1))
			pairs++
		}
	}
	if pairs == 0 {
		return 0
	}

	// Average log ratio is in (-inf, 0]; map to (0, 1]
	return math.Exp(total / float64(pairs))
}
