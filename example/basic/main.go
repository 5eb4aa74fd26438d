package main

import (
	"context"
	"fmt"
	"log"

	"github.com/siherrmann/mesher"
	"github.com/siherrmann/mesher/helper"
	"github.com/siherrmann/mesher/model"
)

var contentItems = []*model.ContentItem{
	{
		ID:    "brewing-guide",
		Title: "Coffee Brewing Methods",
		Content: `Brewing great coffee starts with freshly roasted beans and the right grind size.

Pour-over brewing highlights clarity and acidity, while immersion methods like the French press
produce a heavier body. Water temperature between 92 and 96 degrees extracts the best flavors.

Whichever method you choose, consistent ratios and timing matter more than expensive equipment.`,
	},
	{
		ID:    "espresso-basics",
		Title: "Espresso Extraction Basics",
		Content: `Espresso is coffee brewed under pressure, extracting intense flavors in under thirty seconds.

Grind size, dose and tamp pressure control the extraction. A sour shot is under-extracted,
a bitter shot over-extracted. Dialing in espresso means adjusting one variable at a time.`,
	},
	{
		ID:    "roasting-profiles",
		Title: "Understanding Roast Profiles",
		Content: `Roasting transforms green coffee into the aromatic beans we grind and brew.

Light roasts preserve origin character and acidity. Dark roasts develop body and bitterness.
The roast profile, the curve of temperature over time, decides which flavors survive.`,
	},
}

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration using the container port
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

	// Set up the default pipeline (semantic chunking + embeddings)
	if err := m.UseDefaultPipeline(); err != nil {
		log.Fatalf("Failed to set up pipeline: %v", err)
	}

	// Analyze the content set: build the mesh, detect gaps and generate
	// optimization suggestions
	fmt.Println("Analyzing content...")
	result, err := m.AnalyzeContent(context.Background(), &model.AnalysisRequest{
		RequestID:       "basic-example",
		ContentItems:    contentItems,
		TargetKeywords:  []string{"coffee", "decaf"},
		ReferenceTopics: []string{"coffee brewing", "cold brew recipes"},
	})
	if err != nil {
		log.Fatalf("Failed to analyze content: %v", err)
	}

	stats := result.ContentMesh.Statistics
	fmt.Printf("\nMesh: %d nodes, %d edges, density %.2f\n",
		stats.NodeCount, stats.EdgeCount, stats.Density)
	fmt.Printf("Health score: %.2f\n", result.Metrics["health_score"])

	fmt.Printf("\nFound %d semantic gaps:\n", len(result.SemanticGaps))
	for _, gap := range result.SemanticGaps {
		fmt.Printf("- [%s] severity %.2f: %s\n", gap.GapType, gap.Severity, gap.Description)
	}

	fmt.Printf("\nGenerated %d optimization suggestions:\n", len(result.Suggestions))
	for _, suggestion := range result.Suggestions {
		fmt.Printf("- [%s/%s] %s\n", suggestion.Category, suggestion.Priority, suggestion.Description)
	}

	// Stored results stay retrievable by request id
	stored, err := m.GetAnalysisResult(context.Background(), "basic-example")
	if err != nil {
		log.Fatalf("Failed to retrieve result: %v", err)
	}
	fmt.Printf("\nRetrieved stored result from %s (%.2fs processing time)\n",
		stored.Timestamp.Format("15:04:05"), stored.ProcessingTime)

	fmt.Println("\nBasic example completed successfully!")
}
