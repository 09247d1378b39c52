package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"warden-hq/warden/pkg/rules"
)

// Source provides rule sets to the engine.
type Source interface {
	// Load loads the complete rule set from the source.
	Load(ctx context.Context) (*rules.Set, error)
}

// FileSource loads rule catalogs from YAML files on disk.
// The path can be a single file or a directory; for a directory, all
// .yaml and .yml files are loaded into one set.
type FileSource struct {
	path   string
	logger *slog.Logger
}

// NewFileSource creates a new file-based rule source.
func NewFileSource(path string, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{
		path:   path,
		logger: logger,
	}
}

// Load loads all rules from the configured path.
func (s *FileSource) Load(ctx context.Context) (*rules.Set, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path %q: %w", s.path, err)
	}

	var list []*rules.BusinessRule

	if info.IsDir() {
		err = filepath.Walk(s.path, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}
			ext := filepath.Ext(path)
			if ext != ".yaml" && ext != ".yml" {
				return nil
			}
			fileRules, err := parseCatalogFile(path)
			if err != nil {
				return err
			}
			list = append(list, fileRules...)
			return nil
		})
		if err != nil {
			return nil, err
		}
	} else {
		list, err = parseCatalogFile(s.path)
		if err != nil {
			return nil, err
		}
	}

	set, err := rules.NewSet(list)
	if err != nil {
		return nil, err
	}

	s.logger.Info("loaded rule catalog",
		"path", s.path,
		"rule_count", set.Len(),
	)

	return set, nil
}

// yamlCatalog is the intermediate structure for parsing YAML rule catalogs.
type yamlCatalog struct {
	Rules []yamlRule `yaml:"rules"`
}

// yamlRule mirrors rules.BusinessRule with a pointer Enabled field so an
// unset flag can default to true.
type yamlRule struct {
	ID             string               `yaml:"id"`
	Name           string               `yaml:"name"`
	Category       string               `yaml:"category"`
	Enabled        *bool                `yaml:"enabled"` // Pointer to distinguish unset vs false
	Priority       int                  `yaml:"priority"`
	Conditions     []rules.Condition    `yaml:"conditions"`
	ConditionLogic rules.ConditionLogic `yaml:"condition_logic"`
	Actions        []rules.RuleAction   `yaml:"actions"`
	RiskWeight     int                  `yaml:"risk_weight"`
	Tags           []string             `yaml:"tags"`
	DependsOn      []string             `yaml:"depends_on"`
	Produces       []string             `yaml:"produces"`
}

// parseCatalogFile reads one YAML catalog file into rule values.
func parseCatalogFile(path string) ([]*rules.BusinessRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %q: %w", path, err)
	}

	return ParseCatalog(data, path)
}

// ParseCatalog parses YAML catalog bytes into rule values.
// The name is used in error messages only.
func ParseCatalog(data []byte, name string) ([]*rules.BusinessRule, error) {
	var catalog yamlCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %q: %w", name, err)
	}

	out := make([]*rules.BusinessRule, 0, len(catalog.Rules))
	for i, yr := range catalog.Rules {
		if yr.ID == "" {
			return nil, fmt.Errorf("catalog %q: rule %d has no id", name, i)
		}

		rule := &rules.BusinessRule{
			ID:             yr.ID,
			Name:           yr.Name,
			Category:       yr.Category,
			Enabled:        true, // Default to true
			Priority:       yr.Priority,
			Conditions:     yr.Conditions,
			ConditionLogic: yr.ConditionLogic,
			Actions:        yr.Actions,
			RiskWeight:     yr.RiskWeight,
			Tags:           yr.Tags,
			DependsOn:      yr.DependsOn,
			Produces:       yr.Produces,
		}
		if yr.Enabled != nil {
			rule.Enabled = *yr.Enabled
		}

		out = append(out, rule)
	}

	return out, nil
}
