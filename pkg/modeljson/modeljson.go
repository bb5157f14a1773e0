// Package modeljson turns loosely formatted vision model replies into analysis results.
package modeljson

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/dentalai/dentalsynth/pkg/types"
)

var (
	reBlock    = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLine     = regexp.MustCompile(`(?m)^\s*//.*$`)
	reInline   = regexp.MustCompile(`(?m)\s//.*$`)
	reTrailing = regexp.MustCompile(`,(\s*[}\]])`)
)

// Sanitize removes code fences, comments, and trailing commas from a JSON reply
// and keeps only the outermost object.
func Sanitize(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	raw = reBlock.ReplaceAllString(raw, "")
	raw = reLine.ReplaceAllString(raw, "")
	raw = reInline.ReplaceAllString(raw, "")
	raw = reTrailing.ReplaceAllString(raw, "$1")

	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}

// ParseAnalysis parses a model reply. Replies that cannot be parsed produce a
// low-confidence fallback rather than an error, tagged so callers can tell.
func ParseAnalysis(raw string) *types.AnalysisResult {
	raw = Sanitize(raw)
	if !strings.HasPrefix(raw, "{") {
		return types.Fallback("unclear image", "Model returned non-JSON response", "unclear", "non-json", "fallback")
	}

	var result types.AnalysisResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return types.Fallback("parse error", "Failed to parse model response", "parse-error", "fallback")
	}
	normalize(&result)
	return &result
}

// IsFallback reports whether r was produced by ParseAnalysis for an unusable reply.
func IsFallback(r *types.AnalysisResult) bool {
	for _, t := range r.Tags {
		if t == "fallback" {
			return true
		}
	}
	return false
}

// normalize clamps the box into the unit square and fills in a missing center.
func normalize(r *types.AnalysisResult) {
	p := &r.Primary
	p.Label = strings.TrimSpace(p.Label)
	p.Confidence = clamp(p.Confidence, 0, 1)

	b := &p.Box
	b.X = clamp(b.X, 0, 1)
	b.Y = clamp(b.Y, 0, 1)
	b.W = clamp(b.W, 0, 1-b.X)
	b.H = clamp(b.H, 0, 1-b.Y)

	if p.Cx == 0 && p.Cy == 0 && b.W > 0 && b.H > 0 {
		c := b.Center()
		p.Cx, p.Cy = c.CX, c.CY
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
