package commands

import (
	"fmt"
	"strings"

	"github.com/judgelight/judgelight/pkg/profile"
	"github.com/judgelight/judgelight/pkg/seccomp"
	"github.com/judgelight/judgelight/pkg/sysno"
	"github.com/judgelight/judgelight/runner"
)

// NoProfile disables the syscall filter.
const NoProfile = "none"

// RuleOptions selects the syscall rules of a run
type RuleOptions struct {
	Profile string   `yaml:"profile,omitempty"`
	Allow   []string `yaml:"allow,omitempty"`
	Deny    []string `yaml:"deny,omitempty"`
}

// Build resolves the rule set and fills the unset limits from the profile.
// Without a profile, allowed names start a whitelist and denied names a
// blacklist. Deny entries are "name" (eperm) or "name=action".
func (o RuleOptions) Build(reg *profile.Registry, t *sysno.Table, l runner.Limit) (*seccomp.RuleSet, runner.Limit, error) {
	var rs *seccomp.RuleSet
	switch o.Profile {
	case "", NoProfile:
		switch {
		case len(o.Allow) > 0:
			rs = seccomp.Whitelist()
		case len(o.Deny) > 0:
			rs = seccomp.Blacklist(seccomp.DenyPermission)
		default:
			return nil, l, nil
		}

	default:
		p, err := reg.Get(o.Profile)
		if err != nil {
			return nil, l, err
		}
		rs = p.RuleSet(t)
		l = p.Apply(l)
	}

	rs.Allow(o.Allow...)
	for _, d := range o.Deny {
		name, action, err := parseDeny(d)
		if err != nil {
			return nil, l, err
		}
		rs.Deny(action, name)
	}
	return rs, l, nil
}

func parseDeny(s string) (string, seccomp.Action, error) {
	name, text, ok := strings.Cut(s, "=")
	if name == "" {
		return "", 0, fmt.Errorf("deny %q: empty syscall name", s)
	}
	if !ok {
		return name, seccomp.DenyPermission, nil
	}
	a, err := seccomp.ParseAction(text)
	if err != nil {
		return "", 0, fmt.Errorf("deny %q: %w", s, err)
	}
	return name, a, nil
}

// newRegistry creates the profile registry with the profiles of the files,
// then the given ones
func newRegistry(files []string, profiles ...profile.Profile) (*profile.Registry, error) {
	var extra []profile.Profile
	for _, f := range files {
		ps, err := profile.Load(f)
		if err != nil {
			return nil, fmt.Errorf("could not load profiles from %s: %w", f, err)
		}
		extra = append(extra, ps...)
	}
	return profile.NewRegistry(append(extra, profiles...)...), nil
}
