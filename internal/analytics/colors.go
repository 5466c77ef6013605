package analytics

import "strings"

// DefaultColor is used for categories missing from the palette.
const DefaultColor = "#6366F1"

var categoryColors = map[string]string{
	"food":           "#f97316",
	"shopping":       "#fb923c",
	"transportation": "#0ea5e9",
	"entertainment":  "#06b6d4",
	"utilities":      "#8b5cf6",
	"healthcare":     "#ef4444",
	"transfer":       "#10b981",
	"income":         "#22c55e",
	"other":          "#374151",
	"others":         "#9ca3af",
}

// ColorFor returns the chart colour for a category, matched case-insensitively.
func ColorFor(category string) string {
	if c, ok := categoryColors[strings.ToLower(strings.TrimSpace(category))]; ok {
		return c
	}
	return DefaultColor
}
