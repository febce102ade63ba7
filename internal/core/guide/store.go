package guide

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"meal-prep-planner/internal/infrastructure/config"
	"meal-prep-planner/internal/pkg/common"

	"github.com/google/uuid"
)

// Store writes finished guides as formatted text files. Saving is
// best-effort: the orchestrator logs and ignores any error from here.
type Store struct {
	dir string
}

// NewStore creates a guide store rooted at the configured directory.
func NewStore(cfg *config.Config) *Store {
	return &Store{
		dir: cfg.Guides.Dir,
	}
}

// Save writes the guide and returns the saved filename (basename only).
func (s *Store) Save(guideText string, recipes []common.ParsedRecipe) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create guides directory: %w", err)
	}

	name := fmt.Sprintf("meal-prep-guide-%s-%s.txt",
		time.Now().Format("20060102-150405"),
		uuid.New().String()[:8],
	)

	var sb strings.Builder
	sb.WriteString("MEAL PREP GUIDE\n")
	sb.WriteString("Generated: " + time.Now().Format(time.RFC1123) + "\n")
	sb.WriteString("Recipes:\n")
	for _, recipe := range recipes {
		sb.WriteString(fmt.Sprintf("  - %s (%s)\n", recipe.Title, recipe.Source))
	}
	sb.WriteString(strings.Repeat("=", 60) + "\n\n")
	sb.WriteString(guideText)
	sb.WriteString("\n")

	if err := os.WriteFile(filepath.Join(s.dir, name), []byte(sb.String()), 0644); err != nil {
		return "", fmt.Errorf("failed to write guide file: %w", err)
	}

	return name, nil
}
