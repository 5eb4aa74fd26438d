package pipeline

import (
	"fmt"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/siherrmann/mesher/helper"
)

// DefaultClassifier creates a tone classifier using a sentiment model.
// Uses distilbert fine-tuned on SST-2; the returned score is the softmax
// probability of the positive class, so 0.5 is neutral.
func DefaultClassifier() (ClassifyFunc, error) {
	// Prepare model (download if needed)
	// Using KnightsAnalytics optimized distilbert sentiment model
	modelName := "KnightsAnalytics/distilbert-base-uncased-finetuned-sst-2-english"
	modelPath, err := helper.PrepareModel(modelName, "model.onnx")
	if err != nil {
		return nil, err
	}

	// Initialize hugot session with Go backend
	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	// Create text classification pipeline for sentiment
	config := hugot.TextClassificationConfig{
		ModelPath: modelPath,
		Name:      "tone-pipeline",
		Options: []hugot.TextClassificationOption{
			pipelines.WithSoftmax(),
		},
	}
	tonePipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create tone pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create tone pipeline: %w", err)
	}

	return func(text string) (float64, error) {
		result, err := tonePipeline.RunPipeline([]string{text})
		if err != nil {
			return 0, fmt.Errorf("failed to run tone classification: %w", err)
		}

		if len(result.ClassificationOutputs) == 0 || len(result.ClassificationOutputs[0]) == 0 {
			return 0, fmt.Errorf("no classification output")
		}

		// Score is the probability mass on the positive class
		for _, output := range result.ClassificationOutputs[0] {
			if strings.EqualFold(output.Label, "POSITIVE") {
				return float64(output.Score), nil
			}
		}

		// Single-label output: treat the top score as the positive mass
		return float64(result.ClassificationOutputs[0][0].Score), nil
	}, nil
}
