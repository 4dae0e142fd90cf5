package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-2.5-flash"

const storyTemperature = 0.9

// GeminiGenerator issues prompts to a Gemini model with JSON output
// constrained to the turn schema.
type GeminiGenerator struct {
	client    *genai.Client
	modelName string
}

// NewGeminiGenerator opens a Gemini client.
func NewGeminiGenerator(ctx context.Context, apiKey, modelName string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	return &GeminiGenerator{client: client, modelName: modelName}, nil
}

// Close releases the client.
func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}

// Generate sends one request. A model handle is built per call because the
// system instruction depends on language and chapter.
func (g *GeminiGenerator) Generate(ctx context.Context, p Prompt) (string, error) {
	model := g.client.GenerativeModel(g.modelName)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(p.System)}}
	model.SetTemperature(storyTemperature)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = responseSchema

	resp, err := model.GenerateContent(ctx, genai.Text(p.User))
	if err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("no content returned from Gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("unexpected response type from Gemini")
	}
	return sb.String(), nil
}

// responseSchema mirrors turn.schema.json in Gemini's schema dialect.
var responseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"narrative": {
			Type:        genai.TypeString,
			Description: "The story segment. MUST be detailed, descriptive, and literary.",
		},
		"statUpdates": {
			Type:        genai.TypeObject,
			Description: "Changes to the player's status.",
			Properties: map[string]*genai.Schema{
				"hpChange":        {Type: genai.TypeInteger, Description: "Change in Health."},
				"qiChange":        {Type: genai.TypeInteger, Description: "Change in Qi."},
				"goldChange":      {Type: genai.TypeInteger, Description: "Change in Spirit Stones."},
				"karmaChange":     {Type: genai.TypeInteger, Description: "Change in Karma."},
				"newRealm":        {Type: genai.TypeString, Description: "New cultivation rank."},
				"newLocation":     {Type: genai.TypeString, Description: "New location name."},
				"setSpiritRoot":   {Type: genai.TypeString, Description: "Set the player's spirit root (only if not set)."},
				"setStoryPhase":   {Type: genai.TypeString, Enum: []string{"origin", "convergence", "main"}, Description: "Advance the chapter."},
				"inventoryAdd":    {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}, Description: "Items gained."},
				"inventoryRemove": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}, Description: "Items lost."},
			},
		},
		"choices": {
			Type:        genai.TypeArray,
			Description: "One continue choice during the origin chapter, otherwise 3 to 4 distinct choices.",
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"text":       {Type: genai.TypeString, Description: "The choice text."},
					"actionType": {Type: genai.TypeString, Description: "Action category."},
				},
				Required: []string{"text", "actionType"},
			},
		},
		"isGameOver": {Type: genai.TypeBoolean, Description: "True if the player dies."},
	},
	Required: []string{"narrative", "choices"},
}
