package main

import (
	"context"
	"fmt"
	"log"

	"github.com/siherrmann/mesher"
	"github.com/siherrmann/mesher/core/mesh"
	"github.com/siherrmann/mesher/core/similarity"
	"github.com/siherrmann/mesher/helper"
	"github.com/siherrmann/mesher/model"
)

var contentItems = []*model.ContentItem{
	{
		ID:    "graph-databases",
		Title: "Graph Databases Explained",
		Content: `Graph databases store entities as nodes and relationships as edges.

They excel at traversals that would need expensive joins in relational systems.
PostgreSQL with pgvector adds vector similarity search on top of relational storage,
a pragmatic middle ground for semantic applications.`,
	},
	{
		ID:    "vector-search",
		Title: "Vector Similarity Search",
		Content: `Vector embeddings capture the meaning of text as points in a high-dimensional space.

Similar texts land close together, so nearest-neighbor search retrieves semantically
related content. Approximate indexes like HNSW trade a little recall for a lot of speed.`,
	},
	{
		ID:    "content-strategy",
		Title: "Content Strategy Basics",
		Content: `A content strategy decides what to publish, for whom and why.

Topic clusters group related articles around a pillar page, helping readers and
search engines understand how the pieces connect.`,
	},
	{
		ID:    "internal-linking",
		Title: "Internal Linking for Topic Clusters",
		Content: `Internal links turn isolated articles into a navigable mesh of related content.

Linking related articles distributes authority and keeps readers on the site.
Orphan pages, without any inbound links, are rarely discovered at all.`,
	},
}

const competitorArticle = `Our complete guide covers graph databases, vector search and
retrieval augmented generation, with benchmarks across PostgreSQL, dedicated vector
stores and hybrid deployments.`

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	m, err := mesher.NewMesher(dbConfig, 384)
	if err != nil {
		log.Fatalf("Failed to create mesher: %v", err)
	}
	defer m.Close()

	if err := m.UseDefaultPipeline(); err != nil {
		log.Fatalf("Failed to set up pipeline: %v", err)
	}

	ctx := context.Background()

	// 1. Analysis with a custom configuration
	fmt.Println("=== 1. Custom Configuration Analysis ===")
	config := model.DefaultAnalysisConfig()
	config.Mesh.SimilarityThreshold = 0.3
	config.Mesh.ApproximateNeighbors = true
	config.Gap.TopicMethod = "embedding"
	config.Gap.TopicCount = 3

	result, err := m.AnalyzeContent(ctx, &model.AnalysisRequest{
		RequestID:         "advanced-example",
		ContentItems:      contentItems,
		TargetKeywords:    []string{"graph database", "vector search"},
		ReferenceTopics:   []string{"database indexing", "semantic search", "link building"},
		CompetitorContent: []string{competitorArticle},
		OptimizationGoals: []string{"readability", "coverage"},
		Config:            &config,
	})
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}

	stats := result.ContentMesh.Statistics
	fmt.Printf("Mesh: %d nodes, %d edges, %d communities, health %.2f\n",
		stats.NodeCount, stats.EdgeCount, stats.CommunityCount, result.Metrics["health_score"])
	for _, gap := range result.SemanticGaps {
		fmt.Printf("  gap [%s] %.2f: %s\n", gap.GapType, gap.Severity, gap.Description)
	}

	// 2. Working with the mesh directly
	fmt.Println("\n=== 2. Direct Mesh Analysis ===")
	engine := similarity.NewEngine()
	contentMesh := mesh.NewMesh(engine, "advanced-example-mesh", nil)

	nodes := make([]*model.ContentNode, 0, len(contentItems))
	for _, item := range contentItems {
		embedding, err := m.Pipeline.Embedder(item.Title + "\n\n" + item.Content)
		if err != nil {
			log.Fatalf("Embedding failed: %v", err)
		}
		nodes = append(nodes, model.NewContentNode(item, embedding))
	}
	if err := contentMesh.BuildMesh(nodes, config.Mesh); err != nil {
		log.Fatalf("Mesh build failed: %v", err)
	}

	gaps := contentMesh.FindContentGaps(0.3)
	fmt.Printf("Structural gaps: %d bridges, %d low-connectivity nodes, %d weak communities\n",
		len(gaps.DisconnectedComponents), len(gaps.LowConnectivity), len(gaps.WeakCommunities))

	if path := contentMesh.ShortestPath("graph-databases", "internal-linking"); path != nil {
		fmt.Printf("Path graph-databases -> internal-linking: %v\n", path)
	}

	recommendations, err := contentMesh.NodeRecommendations("vector-search", 2)
	if err != nil {
		log.Fatalf("Recommendations failed: %v", err)
	}
	for _, recommendation := range recommendations {
		fmt.Printf("  related to vector-search: %s (%.3f)\n", recommendation.Node.ID, recommendation.Score)
	}

	optimized := contentMesh.OptimizeMesh(config.Mesh)
	fmt.Printf("Mesh optimization: %d edges removed, %d edges added\n",
		optimized.EdgesRemoved, optimized.EdgesAdded)

	// 3. Export for external graph tools
	fmt.Println("\n=== 3. Mesh Export ===")
	gexf, err := contentMesh.ExportMesh(mesh.FormatGEXF)
	if err != nil {
		log.Fatalf("GEXF export failed: %v", err)
	}
	fmt.Printf("GEXF export: %d bytes\n", len(gexf))

	// 4. Stored content similarity search
	fmt.Println("\n=== 4. Similar Content Search ===")
	similar, err := m.SimilarContent(ctx, "how do vector indexes work", 3, 0.0)
	if err != nil {
		log.Fatalf("Similar content search failed: %v", err)
	}
	for _, node := range similar {
		fmt.Printf("  %s (similarity %.3f)\n", node.Title, *node.Similarity)
	}

	// 5. Index type switching
	fmt.Println("\n=== 5. Changing Index Type ===")
	err = m.ChangeIndexType(ctx, "ivfflat", map[string]interface{}{"lists": 100})
	if err != nil {
		log.Printf("Warning: Index change failed (this is okay for small datasets): %v", err)
	} else {
		fmt.Println("Switched to IVFFlat index")
	}
	err = m.ChangeIndexType(ctx, "hnsw", map[string]interface{}{"m": 16, "ef_construction": 64})
	if err != nil {
		log.Printf("Warning: Index change failed: %v", err)
	} else {
		fmt.Println("Switched back to HNSW index")
	}

	fmt.Println("\nAdvanced example completed successfully!")
}
