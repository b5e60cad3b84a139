package discovery

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScanner_Scan(t *testing.T) {
	// Create a temporary directory structure for testing
	tmpDir, err := os.MkdirTemp("", "ntr-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	// Create test files
	testFiles := []string{
		"tests/auth/login.spec.ts",
		"tests/auth/logout.spec.js",
		"tests/cart.test.mjs",
		"tests/helpers/fixtures.ts",
		"node_modules/pkg/index.spec.ts",
		".cache/old.spec.ts",
		"playwright-report/trace.spec.js",
	}
	for _, file := range testFiles {
		fullPath := filepath.Join(tmpDir, file)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			t.Fatalf("failed to create dir for %s: %v", file, err)
		}
		if err := os.WriteFile(fullPath, []byte("test"), 0644); err != nil {
			t.Fatalf("failed to create file %s: %v", file, err)
		}
	}

	scanner := NewScanner([]string{"node_modules", "playwright-report"}, []string{".spec.ts", ".spec.js", ".test.mjs"})

	t.Run("scans test files correctly", func(t *testing.T) {
		results, err := scanner.Scan(tmpDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// Should find 3 spec files, not helpers or ignored directories
		expected := []string{
			filepath.Join(tmpDir, "tests/auth/login.spec.ts"),
			filepath.Join(tmpDir, "tests/auth/logout.spec.js"),
			filepath.Join(tmpDir, "tests/cart.test.mjs"),
		}
		if len(results) != len(expected) {
			t.Fatalf("expected %d test files, got %d: %v", len(expected), len(results), results)
		}
		for i := range expected {
			if results[i] != expected[i] {
				t.Errorf("expected %s at %d, got %s", expected[i], i, results[i])
			}
		}
	})

	t.Run("hidden root is still scanned", func(t *testing.T) {
		results, err := scanner.Scan(filepath.Join(tmpDir, ".cache"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 1 {
			t.Errorf("expected 1 test file, got %d", len(results))
		}
	})

	t.Run("returns error for non-existent directory", func(t *testing.T) {
		_, err := scanner.Scan("/non/existent/path")
		if err == nil {
			t.Error("expected error for non-existent directory")
		}
	})

	t.Run("single spec file", func(t *testing.T) {
		file := filepath.Join(tmpDir, "tests/cart.test.mjs")
		results, err := scanner.Scan(file)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 1 || results[0] != file {
			t.Errorf("expected only %s, got %v", file, results)
		}
	})

	t.Run("returns error for a file that is not a spec", func(t *testing.T) {
		_, err := scanner.Scan(filepath.Join(tmpDir, "tests/helpers/fixtures.ts"))
		if err == nil {
			t.Error("expected error for non-spec file")
		}
	})

	t.Run("wildcard patterns", func(t *testing.T) {
		glob := NewScanner(nil, []string{"login.*.ts"})
		results, err := glob.Scan(filepath.Join(tmpDir, "tests"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 1 || filepath.Base(results[0]) != "login.spec.ts" {
			t.Errorf("expected login.spec.ts only, got %v", results)
		}
	})
}
