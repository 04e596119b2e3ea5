// Package profile defines named syscall rule sets and default limits, built
// in or loaded from YAML files.
package profile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/judgelight/judgelight/pkg/seccomp"
	"github.com/judgelight/judgelight/pkg/sysno"
	"github.com/judgelight/judgelight/runner"
)

// ErrNotFound is returned when no profile has the requested name
var ErrNotFound = errors.New("profile not found")

// Profile is a named rule set with optional default limits
type Profile struct {
	Name        string                    `yaml:"name"`
	Description string                    `yaml:"description,omitempty"`
	Default     seccomp.Action            `yaml:"default"`
	Allow       []string                  `yaml:"allow,omitempty"`
	Deny        []string                  `yaml:"deny,omitempty"`
	DenyAction  seccomp.Action            `yaml:"deny_action,omitempty"`
	Rules       map[string]seccomp.Action `yaml:"rules,omitempty"`
	Limits      *Limits                   `yaml:"limits,omitempty"`

	// SkipUnknown drops syscall names missing from the architecture table
	// instead of failing the compilation, for profiles shared across ABIs
	SkipUnknown bool `yaml:"skip_unknown,omitempty"`
}

// Limits are the default limits of a profile, zero keeps the caller value
type Limits struct {
	CPUTime  time.Duration `yaml:"cpu_time,omitempty"`
	RealTime time.Duration `yaml:"real_time,omitempty"`
	Memory   runner.Size   `yaml:"memory,omitempty"`
	Output   runner.Size   `yaml:"output,omitempty"`
	Stack    runner.Size   `yaml:"stack,omitempty"`
	Process  uint64        `yaml:"process,omitempty"`
}

// Limit converts the limits to a runner limit
func (l *Limits) Limit() runner.Limit {
	if l == nil {
		return runner.Limit{}
	}
	return runner.Limit{
		CPUTime:  l.CPUTime,
		RealTime: l.RealTime,
		Memory:   l.Memory,
		Output:   l.Output,
		Stack:    l.Stack,
		Process:  l.Process,
	}
}

// File is the YAML document holding profiles
type File struct {
	Profiles []Profile `yaml:"profiles"`
}

// RuleSet builds the rule set for the table. Allow entries are applied
// first, then deny entries, then explicit rules.
func (p *Profile) RuleSet(t *sysno.Table) *seccomp.RuleSet {
	rs := &seccomp.RuleSet{Default: p.Default, Rules: make(map[string]seccomp.Action)}
	set := func(a seccomp.Action, name string) {
		if p.SkipUnknown && t != nil {
			if _, err := t.Number(name); err != nil {
				return
			}
		}
		rs.Rules[name] = a
	}
	for _, name := range p.Allow {
		set(seccomp.ActionAllow, name)
	}
	deny := p.DenyAction
	if deny == 0 {
		deny = seccomp.DenyPermission
	}
	for _, name := range p.Deny {
		set(deny, name)
	}
	for name, a := range p.Rules {
		set(a, name)
	}
	return rs
}

// Apply fills the zero fields of l with the profile limits
func (p *Profile) Apply(l runner.Limit) runner.Limit {
	if p.Limits == nil {
		return l
	}
	if l.CPUTime == 0 {
		l.CPUTime = p.Limits.CPUTime
	}
	if l.RealTime == 0 {
		l.RealTime = p.Limits.RealTime
	}
	if l.Memory == 0 {
		l.Memory = p.Limits.Memory
	}
	if l.Output == 0 {
		l.Output = p.Limits.Output
	}
	if l.Stack == 0 {
		l.Stack = p.Limits.Stack
	}
	if l.Process == 0 {
		l.Process = p.Limits.Process
	}
	return l
}

// Validate checks the profile is usable
func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("name: must not be empty")
	}
	if !p.Default.Valid() {
		return fmt.Errorf("profile %q: default: missing or invalid action", p.Name)
	}
	if p.DenyAction != 0 && !p.DenyAction.Valid() {
		return fmt.Errorf("profile %q: deny_action: invalid action", p.Name)
	}
	for name, a := range p.Rules {
		if !a.Valid() {
			return fmt.Errorf("profile %q: rules.%s: invalid action", p.Name, name)
		}
	}
	return nil
}

// Parse parses YAML data into profiles, rejecting unknown fields.
// Empty input returns no profiles.
func Parse(data []byte) ([]Profile, error) {
	var f File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}
	seen := make(map[string]bool, len(f.Profiles))
	for i := range f.Profiles {
		p := &f.Profiles[i]
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("parse profiles: %w", err)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("parse profiles: duplicate profile %q", p.Name)
		}
		seen[p.Name] = true
	}
	return f.Profiles, nil
}

// Load reads profiles from a YAML file
func Load(path string) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}
	return Parse(data)
}

// Registry looks up profiles by name, loaded profiles shadow built-in ones
type Registry struct {
	profiles map[string]Profile
}

// NewRegistry creates a registry with the built-in profiles and the extra ones
func NewRegistry(extra ...Profile) *Registry {
	r := &Registry{profiles: make(map[string]Profile)}
	for _, p := range Builtin() {
		r.profiles[p.Name] = p
	}
	for _, p := range extra {
		r.profiles[p.Name] = p
	}
	return r
}

// Get returns the profile with the name
func (r *Registry) Get(name string) (Profile, error) {
	p, ok := r.profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return p, nil
}

// List returns all profiles sorted by name
func (r *Registry) List() []Profile {
	ret := make([]Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		ret = append(ret, p)
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].Name < ret[j].Name
	})
	return ret
}
