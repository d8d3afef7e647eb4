package views

import (
	"context"
	"fmt"

	"github.com/vango-dev/gigmarket/pkg/api"
	"github.com/vango-dev/gigmarket/pkg/optimistic"
)

// SettingsPanel shows the user's boolean preferences.
type SettingsPanel struct {
	*base
	flags *collection[optimistic.Flags, map[string]bool]
}

// NewSettingsPanel loads the settings.
func NewSettingsPanel(ctx context.Context, env Env) (*SettingsPanel, error) {
	v := &SettingsPanel{base: newBase("settings", env)}
	client, userID := v.env.Client, v.env.UserID

	flags, err := mount(ctx, v.base, mountConfig[optimistic.Flags, map[string]bool]{
		name: "settings",
		key:  settingsKey(userID),
		fetch: func(ctx context.Context) (map[string]bool, error) {
			return client.GetSettings(ctx, api.GetSettingsRequest{UserID: userID})
		},
		state:     optimistic.NewFlags,
		failTitle: "Could not save setting",
	})
	if err != nil {
		v.Close()
		return nil, err
	}
	v.flags = flags
	return v, nil
}

// Get returns the displayed value of a setting.
func (v *SettingsPanel) Get(name string) bool {
	return v.flags.mut.State().Get(name)
}

// Set changes a setting. Setting the displayed value again does nothing.
func (v *SettingsPanel) Set(name string, value bool) (*optimistic.Operation[optimistic.Flags], error) {
	state := v.flags.mut.State()
	if _, ok := state.Map()[name]; !ok {
		return nil, fmt.Errorf("%w: setting %q", ErrUnknownItem, name)
	}

	client, userID := v.env.Client, v.env.UserID
	change := optimistic.SetFlag(name, value, func(ctx context.Context, _ optimistic.Flags) error {
		return client.UpdateSetting(ctx, api.UpdateSettingRequest{UserID: userID, Field: name, Value: value})
	}).Invalidating(settingsKey(userID))

	return submit(v.base, v.flags.mut, change)
}

// Toggle flips the displayed value of a setting.
func (v *SettingsPanel) Toggle(name string) (*optimistic.Operation[optimistic.Flags], error) {
	return v.Set(name, !v.Get(name))
}

// SettingsSnapshot is the rendered state of a SettingsPanel.
type SettingsSnapshot struct {
	Settings map[string]bool `json:"settings"`
	Order    []string        `json:"order"`
	Pending  int             `json:"pending"`
}

func (v *SettingsPanel) Snapshot() any {
	state := v.flags.mut.State()
	settings := state.Map()
	if settings == nil {
		settings = map[string]bool{}
	}
	return SettingsSnapshot{Settings: settings, Order: state.Names(), Pending: v.flags.mut.Pending()}
}

// Handle accepts "toggle" with a "name" and "set" with "name" and "value".
func (v *SettingsPanel) Handle(_ context.Context, in Intent) error {
	var err error
	switch in.Action {
	case "toggle":
		_, err = v.Toggle(in.Arg("name"))
	case "set":
		_, err = v.Set(in.Arg("name"), in.Bool("value"))
	default:
		return unknownAction(v.name, in)
	}
	if expected(err) {
		return nil
	}
	return err
}
