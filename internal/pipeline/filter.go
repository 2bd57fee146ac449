package pipeline

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"gitpulse/internal/model"
)

// Filter drops events whose path matches an ignore pattern, so nothing
// downstream ever sees watcher noise.
func Filter(inCh <-chan model.ChangeEvent, ignorePatterns []string) <-chan model.ChangeEvent {
	outCh := make(chan model.ChangeEvent, cap(inCh))

	go func() {
		defer close(outCh)

		for event := range inCh {
			if ShouldIgnore(event.Path, ignorePatterns) {
				continue
			}
			outCh <- event
		}
	}()

	return outCh
}

// ShouldIgnore matches patterns against each path segment and against
// the whole slash path, so both "*.log" and "build/**" work.
func ShouldIgnore(path string, ignorePatterns []string) bool {
	slashPath := filepath.ToSlash(path)
	parts := strings.Split(slashPath, "/")

	for _, pattern := range ignorePatterns {
		for _, part := range parts {
			if matched, err := doublestar.Match(pattern, part); err == nil && matched {
				return true
			}
		}

		if matched, err := doublestar.Match(pattern, slashPath); err == nil && matched {
			return true
		}
	}

	return false
}
