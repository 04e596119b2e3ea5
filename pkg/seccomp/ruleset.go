package seccomp

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrInvalidAction is returned for unknown or malformed actions
	ErrInvalidAction = errors.New("invalid seccomp action")
	// ErrConflict is returned when two names map to the same syscall
	// number with different actions
	ErrConflict = errors.New("conflicting syscall rules")
	// ErrTooLarge is returned when the program exceeds the kernel limit
	ErrTooLarge = errors.New("seccomp program too large")
)

// RuleSet is a default action plus per-syscall actions keyed by name
type RuleSet struct {
	Default Action
	Rules   map[string]Action
}

// Whitelist kills the process on every syscall except the named ones
func Whitelist(names ...string) *RuleSet {
	r := &RuleSet{Default: ActionKill}
	return r.Allow(names...)
}

// Blacklist allows every syscall except the named ones, which get deny
func Blacklist(deny Action, names ...string) *RuleSet {
	r := &RuleSet{Default: ActionAllow}
	return r.Deny(deny, names...)
}

// Set assigns the action to the named syscalls
func (r *RuleSet) Set(a Action, names ...string) *RuleSet {
	if r.Rules == nil {
		r.Rules = make(map[string]Action, len(names))
	}
	for _, n := range names {
		r.Rules[n] = a
	}
	return r
}

// Allow allows the named syscalls
func (r *RuleSet) Allow(names ...string) *RuleSet {
	return r.Set(ActionAllow, names...)
}

// Deny applies the deny action to the named syscalls
func (r *RuleSet) Deny(a Action, names ...string) *RuleSet {
	return r.Set(a, names...)
}

// Clone returns a deep copy
func (r *RuleSet) Clone() *RuleSet {
	c := &RuleSet{Default: r.Default, Rules: make(map[string]Action, len(r.Rules))}
	for k, v := range r.Rules {
		c.Rules[k] = v
	}
	return c
}

// Names returns the syscall names with a rule, sorted
func (r *RuleSet) Names() []string {
	ret := make([]string, 0, len(r.Rules))
	for n := range r.Rules {
		ret = append(ret, n)
	}
	sort.Strings(ret)
	return ret
}

func (r *RuleSet) String() string {
	var sb strings.Builder
	sb.WriteString("RuleSet[default=")
	sb.WriteString(r.Default.String())
	for _, n := range r.Names() {
		sb.WriteByte(',')
		sb.WriteString(n)
		sb.WriteByte('=')
		sb.WriteString(r.Rules[n].String())
	}
	sb.WriteByte(']')
	return sb.String()
}
