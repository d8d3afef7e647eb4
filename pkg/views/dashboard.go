package views

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/gigmarket/pkg/api"
)

// Dashboard composes the views of one role and routes intents to them.
type Dashboard struct {
	*base
	role  api.Role
	views map[string]View
}

type mounter func(ctx context.Context, env Env) (View, error)

func mountOf[V View](fn func(context.Context, Env) (V, error)) mounter {
	return func(ctx context.Context, env Env) (View, error) {
		v, err := fn(ctx, env)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

// layout lists the views shown to role.
func layout(role api.Role, userID string) ([]mounter, error) {
	detail := func(_ context.Context, env Env) (View, error) { return NewListingDetail(env), nil }
	settings := mountOf(NewSettingsPanel)
	notifications := mountOf(NewNotificationsDropdown)
	profile := mountOf(NewProfileEditor)
	table := func(name string, scope Scope) mounter {
		return func(ctx context.Context, env Env) (View, error) {
			return NewListingTable(ctx, env, name, scope)
		}
	}

	switch role {
	case api.RoleAdmin:
		return []mounter{table("listings", Scope{}), detail, settings}, nil
	case api.RoleEmployer:
		return []mounter{table("listings", Scope{OwnerID: userID}), detail, notifications, settings, profile}, nil
	case api.RoleMentor:
		return []mounter{
			mountOf(NewSkillsEditor),
			table("mentorships", Scope{Kind: api.KindMentorship, OwnerID: userID}),
			detail, notifications, settings, profile,
		}, nil
	case api.RoleMember:
		return []mounter{
			mountOf(NewSkillsEditor),
			mountOf(NewStarredDocuments),
			func(_ context.Context, env Env) (View, error) { return NewSearchBox(env), nil },
			detail, notifications, settings, profile,
		}, nil
	default:
		return nil, fmt.Errorf("views: unknown role %q", role)
	}
}

// NewDashboard mounts the views of env.Role concurrently. If any view fails
// to load, the others are closed and the error is returned.
func NewDashboard(ctx context.Context, env Env) (*Dashboard, error) {
	env = env.withDefaults()
	mounters, err := layout(env.Role, env.UserID)
	if err != nil {
		return nil, err
	}

	mounted := make([]View, len(mounters))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range mounters {
		g.Go(func() error {
			v, err := m(gctx, env)
			if err != nil {
				return err
			}
			mounted[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, v := range mounted {
			if v != nil {
				v.Close()
			}
		}
		return nil, err
	}

	d := &Dashboard{base: newBase("dashboard", env), role: env.Role, views: make(map[string]View, len(mounted))}
	for _, v := range mounted {
		d.views[v.Name()] = v
		d.onClose(v.Subscribe(d.changed), v.Close)
	}
	return d, nil
}

// Role returns the role the dashboard was built for.
func (d *Dashboard) Role() api.Role {
	return d.role
}

// View returns a mounted view by name.
func (d *Dashboard) View(name string) (View, bool) {
	v, ok := d.views[name]
	return v, ok
}

// Names returns the mounted view names in sorted order.
func (d *Dashboard) Names() []string {
	names := make([]string, 0, len(d.views))
	for name := range d.views {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DashboardSnapshot is the rendered state of every view.
type DashboardSnapshot struct {
	Role  api.Role       `json:"role"`
	Views map[string]any `json:"views"`
}

func (d *Dashboard) Snapshot() any {
	snap := DashboardSnapshot{Role: d.role, Views: make(map[string]any, len(d.views))}
	for name, v := range d.views {
		snap.Views[name] = v.Snapshot()
	}
	return snap
}

// Handle routes in to the view it names.
func (d *Dashboard) Handle(ctx context.Context, in Intent) error {
	v, ok := d.views[in.View]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownView, in.View)
	}
	return v.Handle(ctx, in)
}
