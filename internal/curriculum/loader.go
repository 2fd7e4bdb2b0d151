package curriculum

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Provider resolves a course overview by course ID.
type Provider interface {
	Course(id string) (Course, bool)
}

// Loader loads and caches course overviews from the filesystem.
type Loader struct {
	rootDir string
	courses map[string]Course
	mu      sync.RWMutex
}

// NewLoader creates a new curriculum loader and loads all courses under rootDir.
func NewLoader(rootDir string) (*Loader, error) {
	l := &Loader{
		rootDir: rootDir,
		courses: make(map[string]Course),
	}

	if err := l.loadAll(); err != nil {
		return nil, fmt.Errorf("loading curriculum: %w", err)
	}

	slog.Info("curriculum loaded", "courses", len(l.courses))
	return l, nil
}

// Course returns a course by ID.
func (l *Loader) Course(id string) (Course, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.courses[id]
	return c, ok
}

// CourseIDs returns the loaded course IDs in sorted order.
func (l *Loader) CourseIDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.courses))
	for id := range l.courses {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (l *Loader) loadAll() error {
	return filepath.Walk(l.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if !isCurriculumFile(path) {
			return nil
		}
		if strings.HasSuffix(path, ".levels.yaml") || strings.HasSuffix(path, ".levels.json") {
			return nil // Level maps are loaded per request
		}
		return l.loadCourse(path)
	})
}

func (l *Loader) loadCourse(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var course Course
	if err := decode(path, data, &course); err != nil {
		slog.Warn("skipping invalid course file", "path", path, "error", err)
		return nil
	}

	if course.ID == "" {
		return nil // Not a course file
	}

	l.mu.Lock()
	l.courses[course.ID] = course
	l.mu.Unlock()

	return nil
}

// LoadOverview reads a course overview from a YAML or JSON file. The file may
// hold either a bare overview ({sections: [...]}) or a full course document.
func LoadOverview(path string) (CourseOverview, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return CourseOverview{}, fmt.Errorf("read overview: %w", err)
	}

	var course Course
	if err := decode(path, data, &course); err == nil && len(course.Overview.Sections) > 0 {
		return course.Overview, nil
	}

	var overview CourseOverview
	if err := decode(path, data, &overview); err != nil {
		return CourseOverview{}, fmt.Errorf("decode overview %s: %w", path, err)
	}
	return overview, nil
}

// LoadLevels reads a section-title to level map from a YAML or JSON file.
func LoadLevels(path string) (LevelMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read levels: %w", err)
	}
	levels := LevelMap{}
	if err := decode(path, data, &levels); err != nil {
		return nil, fmt.Errorf("decode levels %s: %w", path, err)
	}
	return levels, nil
}

func isCurriculumFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

func decode(path string, data []byte, v any) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return json.Unmarshal(data, v)
	}
	return yaml.Unmarshal(data, v)
}
