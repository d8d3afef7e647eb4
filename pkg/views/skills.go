package views

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vango-dev/gigmarket/pkg/api"
	"github.com/vango-dev/gigmarket/pkg/form"
	"github.com/vango-dev/gigmarket/pkg/optimistic"
)

// SkillsEditor edits the skills of the signed-in user's profile.
type SkillsEditor struct {
	*base
	skills *collection[optimistic.List[string], api.Profile]
}

func normalizeSkill(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NewSkillsEditor loads the profile and mounts the skills list.
func NewSkillsEditor(ctx context.Context, env Env) (*SkillsEditor, error) {
	v := &SkillsEditor{base: newBase("skills", env)}
	client, userID := v.env.Client, v.env.UserID

	skills, err := mount(ctx, v.base, mountConfig[optimistic.List[string], api.Profile]{
		name: "skills",
		key:  profileKey(userID),
		fetch: func(ctx context.Context) (api.Profile, error) {
			return client.GetProfile(ctx, api.GetProfileRequest{UserID: userID})
		},
		state: func(p api.Profile) optimistic.List[string] {
			return optimistic.NewList(p.Skills...)
		},
		policy: optimistic.NoDuplicates(normalizeSkill,
			"Duplicate skill", "This skill is already in your list."),
		failTitle: "Could not update skills",
	})
	if err != nil {
		v.Close()
		return nil, err
	}
	v.skills = skills
	return v, nil
}

// Skills returns the displayed skills.
func (v *SkillsEditor) Skills() []string {
	return v.skills.mut.State().Items()
}

// Add adds a skill. Blank, overlong and duplicate skills are refused with
// a warning and nothing is sent.
func (v *SkillsEditor) Add(skill string) (*optimistic.Operation[optimistic.List[string]], error) {
	skill = strings.TrimSpace(skill)
	if err := form.Field("skill", skill,
		form.Required("Enter a skill."),
		form.MaxLength(api.MaxSkillLength, fmt.Sprintf("Skills are at most %d characters.", api.MaxSkillLength)),
	); err != nil {
		v.warn(err)
		return nil, err
	}

	client, userID := v.env.Client, v.env.UserID
	change := optimistic.Add(skill, func(ctx context.Context, _ optimistic.List[string]) error {
		return client.AddSkill(ctx, api.AddSkillRequest{UserID: userID, Skill: skill})
	}).Invalidating(profileKey(userID))

	op, err := submit(v.base, v.skills.mut, change)
	if errors.Is(err, optimistic.ErrNoop) {
		// the exact skill is already listed
		v.warn(&optimistic.RejectedError{Reason: "duplicate", Title: "Duplicate skill", Notice: "This skill is already in your list."})
	}
	return op, err
}

// Remove removes a skill. Removing a skill that is not listed does nothing.
func (v *SkillsEditor) Remove(skill string) (*optimistic.Operation[optimistic.List[string]], error) {
	client, userID := v.env.Client, v.env.UserID
	change := optimistic.Remove(skill, func(ctx context.Context, _ optimistic.List[string]) error {
		return client.RemoveSkill(ctx, api.RemoveSkillRequest{UserID: userID, Skill: skill})
	}).Invalidating(profileKey(userID))

	return submit(v.base, v.skills.mut, change)
}

// SkillsSnapshot is the rendered state of a SkillsEditor.
type SkillsSnapshot struct {
	Skills  []string `json:"skills"`
	Pending int      `json:"pending"`
}

func (v *SkillsEditor) Snapshot() any {
	skills := v.Skills()
	if skills == nil {
		skills = []string{}
	}
	return SkillsSnapshot{Skills: skills, Pending: v.skills.mut.Pending()}
}

// Handle accepts "add" and "remove" with a "skill" argument.
func (v *SkillsEditor) Handle(_ context.Context, in Intent) error {
	var err error
	switch in.Action {
	case "add":
		_, err = v.Add(in.Arg("skill"))
	case "remove":
		_, err = v.Remove(in.Arg("skill"))
	default:
		return unknownAction(v.name, in)
	}
	if expected(err) {
		return nil
	}
	return err
}
