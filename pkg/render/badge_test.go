package render

import (
	"encoding/base64"
	"strings"
	"testing"

	"railsim/pkg/types"
)

func TestBadge(t *testing.T) {
	tests := []struct {
		name           string
		train          types.Train
		expectContains []string
		expectMissing  []string
	}{
		{
			name:           "up express",
			train:          types.Train{ID: "T001", Category: types.CategoryExpress, Direction: types.DirectionUp},
			expectContains: []string{"<svg", "#2563EB", "#28a745", "T001", "express"},
			expectMissing:  []string{conflictColor},
		},
		{
			name:           "down freight",
			train:          types.Train{ID: "T003", Category: types.CategoryFreight, Direction: types.DirectionDown},
			expectContains: []string{"#D97706", "#0d6efd"},
		},
		{
			name:           "conflict ring",
			train:          types.Train{ID: "T004", Category: types.CategoryExpress, Direction: types.DirectionDown, Conflict: true},
			expectContains: []string{conflictColor},
		},
		{
			name:           "unknown category and direction",
			train:          types.Train{ID: "X1", Category: "monorail"},
			expectContains: []string{unknownColor, `<circle cx="82"`},
		},
		{
			name:           "escapes id",
			train:          types.Train{ID: "<T&1>", Category: types.CategoryLocal, Direction: types.DirectionUp},
			expectContains: []string{"&lt;T&amp;1&gt;"},
			expectMissing:  []string{"<T&1>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Badge(tt.train)

			if !strings.HasPrefix(result, "data:image/svg+xml;base64,") {
				t.Fatal("Result should start with data:image/svg+xml;base64,")
			}

			decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(result, "data:image/svg+xml;base64,"))
			if err != nil {
				t.Fatalf("Failed to decode base64: %v", err)
			}

			svg := string(decoded)
			for _, expected := range tt.expectContains {
				if !strings.Contains(svg, expected) {
					t.Errorf("SVG should contain %q", expected)
				}
			}
			for _, missing := range tt.expectMissing {
				if strings.Contains(svg, missing) {
					t.Errorf("SVG should not contain %q", missing)
				}
			}
		})
	}
}

func TestCategoryColor_AllCategoriesDistinct(t *testing.T) {
	seen := make(map[string]types.Category)
	for _, c := range types.AllCategories {
		color := CategoryColor(c)
		if color == unknownColor {
			t.Errorf("category %q has no color", c)
		}
		if other, dup := seen[color]; dup {
			t.Errorf("categories %q and %q share color %s", c, other, color)
		}
		seen[color] = c
	}
}
