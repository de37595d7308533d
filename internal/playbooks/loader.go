package playbooks

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sentineldesk/responder/internal/domain"
	"gopkg.in/yaml.v3"
)

// LoadStats tracks the outcome of a catalog load.
type LoadStats struct {
	TotalFiles     int
	Loaded         int
	SkippedInvalid int
}

// LoadDir walks a directory of YAML playbook files and loads each valid
// one into the registry. Invalid files are skipped and counted; load
// order within the walk is lexical, so later files win index collisions.
func (r *Registry) LoadDir(path string) (LoadStats, error) {
	var stats LoadStats

	resolved, err := filepath.Abs(path)
	if err != nil {
		return stats, fmt.Errorf("resolve playbook path: %w", err)
	}

	files := make([]string, 0, 32)
	err = filepath.WalkDir(resolved, func(filePath string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			return nil
		}
		if isYAMLFile(filePath) {
			files = append(files, filePath)
		}
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("walk playbook directory: %w", err)
	}

	stats.TotalFiles = len(files)
	for _, file := range files {
		pb, err := loadFile(file)
		if err != nil {
			stats.SkippedInvalid++
			continue
		}
		r.Load(pb)
		stats.Loaded++
	}
	return stats, nil
}

func loadFile(path string) (*domain.Playbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read playbook file: %w", err)
	}

	var pb domain.Playbook
	if err := yaml.Unmarshal(data, &pb); err != nil {
		return nil, fmt.Errorf("parse playbook %s: %w", path, err)
	}
	if err := validate(&pb); err != nil {
		return nil, fmt.Errorf("invalid playbook %s: %w", path, err)
	}
	return &pb, nil
}

func validate(pb *domain.Playbook) error {
	if pb.ID == "" {
		return fmt.Errorf("missing id")
	}
	if len(pb.IncidentTypes) == 0 || len(pb.Severities) == 0 {
		return fmt.Errorf("playbook must bind at least one type and severity")
	}
	for _, t := range pb.IncidentTypes {
		if !t.IsValid() {
			return fmt.Errorf("unknown incident type %q", t)
		}
	}
	for _, s := range pb.Severities {
		if !s.IsValid() {
			return fmt.Errorf("unknown severity %q", s)
		}
	}
	for _, step := range pb.Steps {
		for _, dep := range step.DependsOn {
			if dep >= step.Order {
				return fmt.Errorf("step %d depends on later step %d", step.Order, dep)
			}
		}
	}
	return nil
}

func isYAMLFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yml" || ext == ".yaml"
}
