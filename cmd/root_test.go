package cmd

import (
	"reflect"
	"testing"

	"github.com/spf13/viper"
)

func resetRenderFlags(t *testing.T) {
	t.Helper()
	viper.Set("absolute", false)
	viper.Set("prefix", "")
	viper.Set("normalize-unicode", false)
	viper.Set("ignore-non-utf8", false)
	viper.Set("allow-non-utf8", false)
	t.Cleanup(func() {
		viper.Set("absolute", false)
		viper.Set("prefix", "")
		viper.Set("normalize-unicode", false)
		viper.Set("ignore-non-utf8", false)
		viper.Set("allow-non-utf8", false)
	})
}

// TestRenderPathsRelative tests the default source-relative rendering
func TestRenderPathsRelative(t *testing.T) {
	resetRenderFlags(t)

	paths := []string{"/src/a.txt", "/src/sub/b.txt", "backup/renamed.txt"}
	lines, err := renderPaths(paths, "/src")
	if err != nil {
		t.Fatalf("renderPaths failed: %v", err)
	}

	// Mapped entries outside the source stay verbatim.
	want := []string{"a.txt", "sub/b.txt", "backup/renamed.txt"}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("Expected %v, got %v", want, lines)
	}
}

// TestRenderPathsAbsoluteAndPrefix tests --absolute and --prefix
func TestRenderPathsAbsoluteAndPrefix(t *testing.T) {
	resetRenderFlags(t)
	viper.Set("absolute", true)
	viper.Set("prefix", "> ")

	lines, err := renderPaths([]string{"/src/a.txt"}, "/src")
	if err != nil {
		t.Fatalf("renderPaths failed: %v", err)
	}

	want := []string{"> /src/a.txt"}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("Expected %v, got %v", want, lines)
	}
}

// TestRenderPathsNonUTF8 tests the three invalid-name policies
func TestRenderPathsNonUTF8(t *testing.T) {
	bad := "/src/bad\xff.txt"

	t.Run("fails by default", func(t *testing.T) {
		resetRenderFlags(t)
		if _, err := renderPaths([]string{bad}, "/src"); err == nil {
			t.Errorf("Expected error for invalid UTF-8 name, got nil")
		}
	})

	t.Run("skipped with ignore-non-utf8", func(t *testing.T) {
		resetRenderFlags(t)
		viper.Set("ignore-non-utf8", true)
		lines, err := renderPaths([]string{bad, "/src/ok.txt"}, "/src")
		if err != nil {
			t.Fatalf("renderPaths failed: %v", err)
		}
		want := []string{"ok.txt"}
		if !reflect.DeepEqual(lines, want) {
			t.Errorf("Expected %v, got %v", want, lines)
		}
	})

	t.Run("replaced with allow-non-utf8", func(t *testing.T) {
		resetRenderFlags(t)
		viper.Set("allow-non-utf8", true)
		lines, err := renderPaths([]string{bad}, "/src")
		if err != nil {
			t.Fatalf("renderPaths failed: %v", err)
		}
		if len(lines) != 1 || lines[0] == "bad\xff.txt" {
			t.Errorf("Expected a lossy replacement, got %v", lines)
		}
	})
}

// TestRenderPathsNormalize tests NFC normalization of decomposed names
func TestRenderPathsNormalize(t *testing.T) {
	resetRenderFlags(t)
	viper.Set("normalize-unicode", true)

	// "é" as 'e' + combining acute accent (NFD form).
	lines, err := renderPaths([]string{"/src/café.txt"}, "/src")
	if err != nil {
		t.Fatalf("renderPaths failed: %v", err)
	}

	want := []string{"café.txt"}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("Expected %v, got %v", want, lines)
	}
}
