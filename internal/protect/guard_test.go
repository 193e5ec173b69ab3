package protect

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIsProtected_Defaults(t *testing.T) {
	g := New()

	tests := []struct {
		path string
		want bool
	}{
		{"internal/auth/login.go", true},
		{"db/migrations/001_init.sql", true},
		{"deploy/certs/server.crt", true},
		{"config/app.env", true},
		{"internal/store/task.go", false},
		{"README.md", false},
	}

	for _, tt := range tests {
		if got := g.IsProtected(tt.path); got != tt.want {
			t.Errorf("IsProtected(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestIsProtectedWithReason(t *testing.T) {
	g := New()

	protected, reason := g.IsProtectedWithReason("internal/auth/login.go")
	if !protected {
		t.Fatal("expected auth path to be protected")
	}
	if reason == "" {
		t.Error("expected a reason")
	}
}

func TestLoadConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ".openswarm.yaml")
	content := `
protected_areas:
  patterns:
    - "**/billing/**"
  keywords:
    - invoice
  file_types:
    - ".sql"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}

	g := New()
	if err := g.LoadConfig(configPath); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	for _, path := range []string{
		"internal/billing/charge.go",
		"docs/invoice_template.md",
		"schema/tables.sql",
	} {
		if !g.IsProtected(path) {
			t.Errorf("expected %q to be protected after config load", path)
		}
	}
}

func TestForProject_MissingConfigKeepsDefaults(t *testing.T) {
	g := ForProject(t.TempDir())
	if !g.IsProtected("internal/auth/login.go") {
		t.Error("defaults should survive a missing project config")
	}
}

func TestMatchGlobPattern(t *testing.T) {
	tests := []struct {
		path    string
		pattern string
		want    bool
	}{
		{"a/b/c.go", "**/b/**", true},
		{"a/b/c.go", "a/*/c.go", true},
		{"a/b/c.go", "a/b/*.go", true},
		{"a/b/c.go", "**/d/**", false},
		{"secrets/x.txt", "secrets/**", true},
		{"x/file_test.go", "**/*_test.go", true},
	}

	for _, tt := range tests {
		if got := matchGlobPattern(tt.path, tt.pattern); got != tt.want {
			t.Errorf("matchGlobPattern(%q, %q) = %v, want %v", tt.path, tt.pattern, got, tt.want)
		}
	}
}
