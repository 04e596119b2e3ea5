package commands

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/judgelight/judgelight/pkg/profile"
	"github.com/judgelight/judgelight/pkg/seccomp"
	"github.com/judgelight/judgelight/pkg/sysno"
	"github.com/judgelight/judgelight/runner"
)

func TestRuleOptionsBuild(t *testing.T) {
	table, err := sysno.ForArch("amd64")
	require.NoError(t, err)
	reg := profile.NewRegistry(profile.Profile{
		Name:    "limited",
		Default: seccomp.ActionKill,
		Allow:   []string{"read"},
		Limits:  &profile.Limits{CPUTime: time.Second, Memory: 1 << 20},
	})

	tests := map[string]struct {
		opts     RuleOptions
		limit    runner.Limit
		expRules *seccomp.RuleSet
		expLimit runner.Limit
		expErr   bool
	}{
		"No profile and no names should install no filter": {
			opts: RuleOptions{Profile: NoProfile},
		},
		"Allowed names without profile should start a whitelist": {
			opts:     RuleOptions{Allow: []string{"read", "write"}},
			expRules: seccomp.Whitelist("read", "write"),
		},
		"Denied names without profile should start a blacklist": {
			opts:     RuleOptions{Profile: NoProfile, Deny: []string{"socket", "ptrace=kill"}},
			expRules: seccomp.Blacklist(seccomp.DenyPermission, "socket").Deny(seccomp.ActionKill, "ptrace"),
		},
		"Profile should fill unset limits and take extra names": {
			opts:     RuleOptions{Profile: "limited", Allow: []string{"write"}, Deny: []string{"read=enosys"}},
			limit:    runner.Limit{CPUTime: 3 * time.Second},
			expRules: seccomp.Whitelist("write").Deny(seccomp.DenyFailure, "read"),
			expLimit: runner.Limit{CPUTime: 3 * time.Second, Memory: 1 << 20},
		},
		"Unknown profile should fail": {
			opts:   RuleOptions{Profile: "missing"},
			expErr: true,
		},
		"Invalid deny action should fail": {
			opts:   RuleOptions{Deny: []string{"socket=maybe"}},
			expErr: true,
		},
		"Empty deny name should fail": {
			opts:   RuleOptions{Deny: []string{"=kill"}},
			expErr: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			rules, limit, err := tc.opts.Build(reg, table, tc.limit)

			if tc.expErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expRules, rules)
			assert.Equal(t, tc.expLimit, limit)
		})
	}
}

func TestRuleOptionsBuildUnknownProfile(t *testing.T) {
	_, _, err := RuleOptions{Profile: "missing"}.Build(profile.NewRegistry(), nil, runner.Limit{})
	assert.ErrorIs(t, err, profile.ErrNotFound)
}
