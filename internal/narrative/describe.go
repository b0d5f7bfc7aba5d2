package narrative

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/dvloznov/banking-insights/internal/cluster"
	"github.com/dvloznov/banking-insights/internal/logger"
)

const (
	// DefaultModelName is the default Gemini model used for cluster narratives.
	DefaultModelName = "gemini-2.5-flash"
)

// Describer turns a set of cluster summaries into a plain-English writeup.
type Describer interface {
	Describe(ctx context.Context, summaries []cluster.Summary) (string, error)
}

// GeminiDescriber calls the Gemini API to describe cluster summaries.
//
// Credentials come from the environment:
//   - GOOGLE_GENAI_USE_VERTEXAI=True -> Vertex AI
//   - GOOGLE_CLOUD_PROJECT
//   - GOOGLE_CLOUD_LOCATION
//   - or GEMINI_API_KEY for the Gemini developer API.
type GeminiDescriber struct {
	Model string
}

func NewGeminiDescriber(model string) *GeminiDescriber {
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiDescriber{Model: model}
}

func (d *GeminiDescriber) Describe(ctx context.Context, summaries []cluster.Summary) (string, error) {
	log := logger.FromContext(ctx)

	table, err := buildSummaryPrompt(summaries)
	if err != nil {
		return "", err
	}

	instructions := "You are a banking data analyst.\n" +
		"Below is a summary table of customer geography clusters produced by k-means.\n" +
		"Each cluster row lists mean transaction metrics for the geographies it contains.\n\n" +
		"Write a short, plain-English profile of each cluster (2-3 sentences per cluster):\n" +
		"what kind of banking activity characterizes it and how it differs from the others.\n" +
		"Refer to clusters by their numeric id. Do NOT use Markdown tables.\n"

	fullPrompt := instructions + "\n" + table

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return "", fmt.Errorf("Describe: create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: fullPrompt},
			},
		},
	}

	log.Info().
		Str("model", d.Model).
		Int("clusters", len(summaries)).
		Msg("requesting cluster narrative")

	resp, err := client.Models.GenerateContent(ctx, d.Model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("Describe: generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("Describe: empty response from model")
	}
	return text, nil
}
