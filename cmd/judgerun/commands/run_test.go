package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnviron(t *testing.T) {
	orig := osEnviron
	osEnviron = func() []string { return []string{"PATH=/bin", "HOME=/root"} }
	t.Cleanup(func() { osEnviron = orig })

	tests := map[string]struct {
		clearEnv bool
		entries  []string
		expEnv   []string
		expErr   bool
	}{
		"Entries should override inherited variables in place": {
			entries: []string{"HOME=/tmp", "LANG=C"},
			expEnv:  []string{"PATH=/bin", "HOME=/tmp", "LANG=C"},
		},
		"Cleared environment should only hold the entries": {
			clearEnv: true,
			entries:  []string{"A=1", "A=2"},
			expEnv:   []string{"A=2"},
		},
		"Cleared environment without entries should be empty": {
			clearEnv: true,
			expEnv:   []string{},
		},
		"Entry without value separator should fail": {
			entries: []string{"HOME"},
			expErr:  true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			env, err := environ(tc.clearEnv, tc.entries)

			if tc.expErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expEnv, env)
		})
	}
}

func TestOptionalID(t *testing.T) {
	assert.Nil(t, optionalID(-1))
	id := optionalID(1000)
	require.NotNil(t, id)
	assert.Equal(t, uint32(1000), *id)
}

func TestRunRequest(t *testing.T) {
	c := RunCommand{
		args:     []string{"/bin/echo", "hi"},
		uid:      -1,
		gid:      0,
		memfd:    true,
		clearEnv: true,
		env:      []string{"A=1"},
		rules:    RuleOptions{Profile: "default", Deny: []string{"socket=kill"}},
	}

	req, err := c.request()
	require.NoError(t, err)
	assert.Equal(t, "/bin/echo", req.Path)
	assert.Equal(t, []string{"/bin/echo", "hi"}, req.Args)
	assert.Equal(t, []string{"A=1"}, req.Env)
	assert.Nil(t, req.UID)
	require.NotNil(t, req.GID)
	assert.Equal(t, uint32(0), *req.GID)
	assert.True(t, req.ExecFromMemfd)
	require.NotNil(t, req.Rules)
	assert.Contains(t, req.Rules.Names(), "socket")

	c.rules = RuleOptions{Profile: NoProfile}
	c.clearEnv, c.env = false, nil
	req, err = c.request()
	require.NoError(t, err)
	assert.Nil(t, req.Rules)
	assert.Nil(t, req.Env)
}
