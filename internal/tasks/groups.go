package tasks

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
)

//go:embed permissions.yaml
var defaultPermissions []byte

type permissionFile struct {
	Models  []string `yaml:"models"`
	Actions []string `yaml:"actions"`
}

// ParsePermissions expands a permission file into "<action>_<model>" codenames.
func ParsePermissions(data []byte) ([]string, error) {
	var f permissionFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse permission file: %w", err)
	}
	if len(f.Models) == 0 || len(f.Actions) == 0 {
		return nil, fmt.Errorf("permission file needs both models and actions")
	}

	out := make([]string, 0, len(f.Models)*len(f.Actions))
	for _, m := range f.Models {
		for _, a := range f.Actions {
			out = append(out, a+"_"+m)
		}
	}
	return out, nil
}

// CreateDefaultGroups creates or refreshes the admin group with every
// permission except deletes and puts every admin into it. A nil file uses the
// built-in permission list.
func (r *Runner) CreateDefaultGroups(_ context.Context, file []byte) (*domain.Group, error) {
	if file == nil {
		file = defaultPermissions
	}
	all, err := ParsePermissions(file)
	if err != nil {
		return nil, err
	}

	group := &domain.Group{Name: domain.MuseumAdminGroup, Permissions: make([]string, 0, len(all))}
	for _, p := range all {
		if !strings.HasPrefix(p, "delete_") {
			group.Permissions = append(group.Permissions, p)
		}
	}

	created, err := r.store.UpsertGroup(group)
	if err != nil {
		return nil, fmt.Errorf("failed to save group %q: %w", group.Name, err)
	}

	added, err := r.store.AddAdminsToGroup(group.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to add admins to %q: %w", group.Name, err)
	}

	r.logger.Info("default group ready",
		zap.String("group", group.Name),
		zap.Bool("created", created),
		zap.Int("permissions", len(group.Permissions)),
		zap.Int64("admins_added", added))
	return group, nil
}
