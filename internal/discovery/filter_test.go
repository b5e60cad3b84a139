package discovery

import (
	"testing"
)

func TestFilter_FilterByName(t *testing.T) {
	filter := NewFilter()

	tests := []struct {
		name     string
		tests    []string
		pattern  string
		expected int // Expected number of matches
	}{
		{
			name:     "empty pattern returns all",
			tests:    []string{"login.spec.ts", "checkout.spec.ts", "cart.test.js"},
			pattern:  "",
			expected: 3,
		},
		{
			name:     "wildcard pattern matches suffix",
			tests:    []string{"login.spec.ts", "checkout.spec.ts", "cart.test.js"},
			pattern:  "*login.spec.ts",
			expected: 1,
		},
		{
			name:     "wildcard pattern matches substring",
			tests:    []string{"login.spec.ts", "checkout.spec.ts", "cart.test.js", "checkout-guest.spec.ts"},
			pattern:  "*checkout*",
			expected: 2,
		},
		{
			name:     "simple contains match",
			tests:    []string{"login.spec.ts", "checkout.spec.ts", "cart.test.js"},
			pattern:  "cart",
			expected: 1,
		},
		{
			name:     "no matches",
			tests:    []string{"login.spec.ts", "checkout.spec.ts"},
			pattern:  "*profile*",
			expected: 0,
		},
		{
			name:     "full path with wildcard",
			tests:    []string{"/path/to/login.spec.ts", "/path/to/checkout.spec.ts"},
			pattern:  "*login.spec.ts",
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := filter.FilterByName(tt.tests, tt.pattern)
			if len(result) != tt.expected {
				t.Errorf("expected %d matches, got %d", tt.expected, len(result))
			}
		})
	}
}

func TestFilter_FilterByName_EdgeCases(t *testing.T) {
	filter := NewFilter()

	t.Run("empty test list", func(t *testing.T) {
		result := filter.FilterByName([]string{}, "*.spec.ts")
		if len(result) != 0 {
			t.Errorf("expected empty result, got %d items", len(result))
		}
	})

	t.Run("pattern with multiple wildcards", func(t *testing.T) {
		tests := []string{"admin-users.spec.ts", "admin-roles.spec.ts", "login.spec.ts"}
		result := filter.FilterByName(tests, "*admin*.spec.ts")
		if len(result) != 2 {
			t.Errorf("expected 2 matches, got %d", len(result))
		}
	})
}

func TestFilter_FilterByName_Paths(t *testing.T) {
	filter := NewFilter()
	tests := []string{"tests/auth/login.spec.ts", "tests/shop/login.spec.ts", "tests/shop/cart.spec.ts"}

	result := filter.FilterByName(tests, "*auth/*")
	if len(result) != 1 || result[0] != "tests/auth/login.spec.ts" {
		t.Errorf("expected only the auth spec, got %v", result)
	}

	result = filter.FilterByName(tests, "shop/")
	if len(result) != 2 {
		t.Errorf("expected 2 shop specs, got %v", result)
	}

	result = filter.FilterByName(tests, "c?rt.spec.ts")
	if len(result) != 1 {
		t.Errorf("expected single-character wildcard to match cart, got %v", result)
	}
}
