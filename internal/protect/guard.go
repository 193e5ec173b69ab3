// Package protect detects protected areas of a project that worker
// agents must not modify without oversight.
package protect

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

// Guard checks whether file paths fall in protected areas. Three
// detection strategies: glob patterns, path keywords, and file types.
type Guard struct {
	mu        sync.RWMutex
	patterns  []string
	keywords  []string
	fileTypes []string
}

// projectConfig is the .openswarm.yaml slice the guard cares about.
type projectConfig struct {
	ProtectedAreas struct {
		Patterns  []string `yaml:"patterns"`
		Keywords  []string `yaml:"keywords"`
		FileTypes []string `yaml:"file_types"`
	} `yaml:"protected_areas"`
}

// New creates a guard with the default protected areas.
func New() *Guard {
	return &Guard{
		patterns:  append([]string{}, DefaultPatterns...),
		keywords:  append([]string{}, DefaultKeywords...),
		fileTypes: append([]string{}, DefaultFileTypes...),
	}
}

// ForProject creates a guard with defaults plus any protected_areas
// section found in the project's .openswarm.yaml. A missing or broken
// config file leaves the defaults in place.
func ForProject(projectRoot string) *Guard {
	g := New()
	_ = g.LoadConfig(filepath.Join(projectRoot, ".openswarm.yaml"))
	return g
}

// LoadConfig merges protected area configuration from a YAML file.
func (g *Guard) LoadConfig(configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	var cfg projectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.patterns = append(g.patterns, cfg.ProtectedAreas.Patterns...)
	g.keywords = append(g.keywords, cfg.ProtectedAreas.Keywords...)
	g.fileTypes = append(g.fileTypes, cfg.ProtectedAreas.FileTypes...)
	return nil
}

// IsProtected checks if a path matches any protected area criteria.
func (g *Guard) IsProtected(path string) bool {
	protected, _ := g.IsProtectedWithReason(path)
	return protected
}

// IsProtectedWithReason checks if a path is protected and returns the
// matching rule for user feedback.
func (g *Guard) IsProtectedWithReason(path string) (bool, string) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	normalized := filepath.ToSlash(path)
	lower := strings.ToLower(normalized)

	for _, pattern := range g.patterns {
		if matchGlobPattern(normalized, pattern) {
			return true, "path matches protected pattern: " + pattern
		}
	}

	for _, keyword := range g.keywords {
		if strings.Contains(lower, strings.ToLower(keyword)) {
			return true, "path contains protected keyword: " + keyword
		}
	}

	ext := strings.ToLower(filepath.Ext(path))
	for _, protectedExt := range g.fileTypes {
		if ext == strings.ToLower(protectedExt) {
			return true, "file type is protected: " + protectedExt
		}
	}

	return false, ""
}

// AddPattern adds a glob pattern to the protected patterns list.
func (g *Guard) AddPattern(pattern string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.patterns = append(g.patterns, pattern)
}

// Patterns returns a copy of the active glob patterns, for inclusion
// in worker prompts.
func (g *Guard) Patterns() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string{}, g.patterns...)
}
