package detection

import (
	"context"
	"fmt"
	"strings"

	"github.com/dentalai/dentalsynth/pkg/client"
	"github.com/dentalai/dentalsynth/pkg/conditions"
	"github.com/dentalai/dentalsynth/pkg/modeljson"
	"github.com/dentalai/dentalsynth/pkg/types"
)

// SimpleTestPrompt for testing if the model can see images
const SimpleTestPrompt = `What do you see in this image? Describe it briefly.`

// LabelNone is reported when the model finds no condition.
const LabelNone = "none"

const promptTemplate = `You are a dental image reviewer.

Identify the single most prominent dental condition in the image.
Allowed labels: %s, or "none".

Return JSON only:
{
  "primary": {
    "label": "string",
    "confidence": 0.0,
    "box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0}
  },
  "description": "short neutral sentence (at most 20 words)",
  "tags": ["tag1", "tag2", "tag3"]
}

HARD RULES
- Coordinates are normalized to [0,1] (NOT pixels). x and y are the top-left corner.
- The box should tightly enclose the affected teeth or gum region.
- If nothing matches an allowed label, use "none" with confidence 0.0.
- Tags: lowercase, concise, no punctuation or duplicates.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// Prompt builds the detection prompt for the given label names.
func Prompt(labels []string) string {
	return fmt.Sprintf(promptTemplate, strings.Join(labels, ", "))
}

// DefaultPrompt lists every canonical class.
var DefaultPrompt = Prompt(conditions.Names())

// Finding is a model detection with its label resolved against the class enumeration.
type Finding struct {
	Result *types.AnalysisResult
	// Class is valid only when Known is true.
	Class conditions.Class
	Known bool
	// Aliased is set when the model used a non-canonical spelling.
	Aliased bool
}

// Detector handles dental condition detection using vision models
type Detector struct {
	client client.VisionClient
	prompt string
}

// NewDetector creates a new detector with a vision client
func NewDetector(client client.VisionClient) *Detector {
	return &Detector{client: client, prompt: DefaultPrompt}
}

// WithPrompt replaces the detection prompt.
func (d *Detector) WithPrompt(prompt string) *Detector {
	if prompt != "" {
		d.prompt = prompt
	}
	return d
}

// DetectCondition asks the model for the dominant condition and resolves its label.
func (d *Detector) DetectCondition(ctx context.Context, model, imageB64 string) (*Finding, error) {
	result, err := d.client.AnalyzeImage(ctx, model, d.prompt, imageB64)
	if err != nil {
		return nil, err
	}
	result.Tags = normalizeTags(result.Tags)

	f := &Finding{Result: result}
	if modeljson.IsFallback(result) {
		result.Primary.Label = LabelNone
		result.Primary.Confidence = 0
		return f, nil
	}

	label := strings.ToLower(strings.TrimSpace(result.Primary.Label))
	if label == "" || label == LabelNone {
		result.Primary.Label = LabelNone
		return f, nil
	}
	// Models often answer with spaces or hyphens in place of underscores.
	label = strings.ReplaceAll(label, "-", "_")
	c, aliased, err := conditions.Parse(label)
	if err != nil {
		c, aliased, err = conditions.Parse(strings.ReplaceAll(label, " ", "_"))
	}
	if err == nil {
		f.Class, f.Known, f.Aliased = c, true, aliased
		result.Primary.Label = c.String()
	}
	return f, nil
}

// TestVision tests if the model can actually see the image with a simple prompt
func (d *Detector) TestVision(ctx context.Context, model, imageB64 string) (string, error) {
	return d.client.SimpleQuery(ctx, model, SimpleTestPrompt, imageB64)
}

// normalizeTags ensures tags are cleaned and limited to 5 entries
func normalizeTags(tags []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, 5)
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
		if len(out) == 5 {
			break
		}
	}
	return out
}
