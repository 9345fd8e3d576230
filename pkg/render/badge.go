package render

import (
	"encoding/base64"
	"fmt"
	"html"

	"railsim/pkg/types"
)

const dataURIPrefix = "data:image/svg+xml;base64,"

var categoryColors = map[types.Category]string{
	types.CategoryPremium: "#7C3AED",
	types.CategoryExpress: "#2563EB",
	types.CategoryLocal:   "#16A34A",
	types.CategoryFreight: "#D97706",
	types.CategorySpecial: "#DB2777",
}

const (
	unknownColor  = "#6c757d"
	conflictColor = "#dc3545"
)

// CategoryColor returns the schematic color of a train category.
func CategoryColor(c types.Category) string {
	if color, ok := categoryColors[c]; ok {
		return color
	}
	return unknownColor
}

// BadgeSVG draws a compact train badge: a locomotive in the category color,
// the train ID, a direction arrow and, for conflicting trains, a red ring.
func BadgeSVG(t types.Train) string {
	color := CategoryColor(t.Category)

	var arrow string
	switch t.Direction {
	case types.DirectionUp:
		arrow = `<polygon points="78,30 86,25 78,20" fill="#28a745"/>` // right-pointing
	case types.DirectionDown:
		arrow = `<polygon points="86,30 78,25 86,20" fill="#0d6efd"/>` // left-pointing
	default:
		arrow = `<circle cx="82" cy="25" r="3" fill="` + unknownColor + `"/>`
	}

	ring := ""
	if t.Conflict {
		ring = `<rect x="1.5" y="1.5" width="93" height="42" fill="none" stroke="` + conflictColor + `" stroke-width="3" rx="6"/>`
	}

	return fmt.Sprintf(`<svg width="96" height="45" xmlns="http://www.w3.org/2000/svg">
  <rect width="96" height="45" fill="white" stroke="#dee2e6" stroke-width="1" rx="6"/>
  %s
  <rect x="8" y="14" width="34" height="16" fill="%s" rx="3"/>
  <polygon points="42,14 50,22 50,30 42,30" fill="%s"/>
  <rect x="11" y="17" width="6" height="5" fill="#87CEEB" rx="1"/>
  <rect x="20" y="17" width="6" height="5" fill="#87CEEB" rx="1"/>
  <rect x="29" y="17" width="6" height="5" fill="#87CEEB" rx="1"/>
  <circle cx="16" cy="33" r="3" fill="#2C3E50"/>
  <circle cx="36" cy="33" r="3" fill="#2C3E50"/>
  <text x="48" y="12" font-family="Arial, sans-serif" font-size="9" font-weight="bold" fill="#333" text-anchor="middle">%s</text>
  %s
  <text x="48" y="41" font-family="Arial, sans-serif" font-size="6" fill="%s" text-anchor="middle">%s</text>
</svg>`, ring, color, color, html.EscapeString(t.ID), arrow, color, html.EscapeString(string(t.Category)))
}

// Badge returns BadgeSVG as a base64 data URI.
func Badge(t types.Train) string {
	return dataURIPrefix + base64.StdEncoding.EncodeToString([]byte(BadgeSVG(t)))
}
