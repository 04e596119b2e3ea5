package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/judgelight/judgelight/pkg/sysno"
	"github.com/judgelight/judgelight/runner"
	"github.com/judgelight/judgelight/runner/sandbox"
)

type RunCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	limit        runner.Limit
	stdin        string
	stdout       string
	stderr       string
	chroot       string
	workDir      string
	uid          int64
	gid          int64
	env          []string
	clearEnv     bool
	memfd        bool
	rules        RuleOptions
	profileFiles []string
	format       string
	result       string
	args         []string
}

// NewRunCommand returns the run command.
func NewRunCommand(rootCmd *RootCommand, app *kingpin.Application) *RunCommand {
	c := &RunCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("run", "Run a program in the sandbox and print its verdict.")
	c.Cmd.Flag("tl", "CPU time limit (e.g. 1s, 500ms).").DurationVar(&c.limit.CPUTime)
	c.Cmd.Flag("rtl", "Real time limit.").DurationVar(&c.limit.RealTime)
	c.Cmd.Flag("ml", "Memory (address space) limit (e.g. 256M).").SetValue(&c.limit.Memory)
	c.Cmd.Flag("ol", "Output file size limit (e.g. 64M).").SetValue(&c.limit.Output)
	c.Cmd.Flag("sl", "Stack limit (e.g. 8M).").SetValue(&c.limit.Stack)
	c.Cmd.Flag("np", "Process count limit of the user.").Uint64Var(&c.limit.Process)
	c.Cmd.Flag("in", "Standard input file.").StringVar(&c.stdin)
	c.Cmd.Flag("out", "Standard output file.").StringVar(&c.stdout)
	c.Cmd.Flag("err", "Standard error file.").StringVar(&c.stderr)
	c.Cmd.Flag("chroot", "New root directory of the program.").StringVar(&c.chroot)
	c.Cmd.Flag("work-dir", "Working directory of the program.").StringVar(&c.workDir)
	c.Cmd.Flag("uid", "User id to run as, unchanged if negative.").Default("-1").Int64Var(&c.uid)
	c.Cmd.Flag("gid", "Group id to run as, unchanged if negative.").Default("-1").Int64Var(&c.gid)
	c.Cmd.Flag("env", "Environment variable KEY=VALUE (repeatable).").StringsVar(&c.env)
	c.Cmd.Flag("clear-env", "Do not inherit the environment.").BoolVar(&c.clearEnv)
	c.Cmd.Flag("memfd", "Execute the program from a sealed memfd.").BoolVar(&c.memfd)
	c.Cmd.Flag("profile", "Syscall profile name, \"none\" to disable the filter.").Default("default").StringVar(&c.rules.Profile)
	c.Cmd.Flag("profile-file", "YAML file with extra profiles (repeatable).").ExistingFilesVar(&c.profileFiles)
	c.Cmd.Flag("allow", "Allow a syscall (repeatable).").StringsVar(&c.rules.Allow)
	c.Cmd.Flag("deny", "Deny a syscall, NAME or NAME=ACTION (repeatable).").StringsVar(&c.rules.Deny)
	c.Cmd.Flag("format", "Result format.").Default(FormatText).EnumVar(&c.format, formats...)
	c.Cmd.Flag("res", "Result file.").Default("stdout").StringVar(&c.result)
	c.Cmd.Arg("cmd", "Program and its arguments.").Required().StringsVar(&c.args)

	return c
}

func (c RunCommand) Name() string { return c.Cmd.FullCommand() }

func (c RunCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	req, err := c.request()
	if err != nil {
		return err
	}

	sup := sandbox.New(sandbox.WithLogger(logger))
	start := time.Now()
	res := sup.Run(ctx, req)
	logger.Debug("run finished",
		zap.String("path", req.Path),
		zap.Stringer("result", res),
		zap.Duration("total", time.Since(start)),
	)

	w, closeFn, err := openResult(c.result, c.rootCmd.Stdout)
	if err != nil {
		return err
	}
	if err := WriteReport(w, c.format, NewReport("", res)); err != nil {
		closeFn()
		return fmt.Errorf("could not write result: %w", err)
	}
	if err := closeFn(); err != nil {
		return err
	}

	if res.Status == runner.StatusRunnerError {
		return fmt.Errorf("runner error: %s", res.Error)
	}
	return nil
}

func (c RunCommand) request() (sandbox.Request, error) {
	reg, err := newRegistry(c.profileFiles)
	if err != nil {
		return sandbox.Request{}, err
	}
	// an unsupported ABI surfaces as a runner error when compiling
	table, _ := sysno.Native()
	rules, limit, err := c.rules.Build(reg, table, c.limit)
	if err != nil {
		return sandbox.Request{}, err
	}

	req := sandbox.Request{
		Path:          c.args[0],
		Args:          c.args,
		Stdin:         c.stdin,
		Stdout:        c.stdout,
		Stderr:        c.stderr,
		Limit:         limit,
		Rules:         rules,
		Chroot:        c.chroot,
		WorkDir:       c.workDir,
		UID:           optionalID(c.uid),
		GID:           optionalID(c.gid),
		ExecFromMemfd: c.memfd,
	}
	if c.clearEnv || len(c.env) > 0 {
		req.Env, err = environ(c.clearEnv, c.env)
		if err != nil {
			return sandbox.Request{}, err
		}
	}
	return req, nil
}

var osEnviron = os.Environ

func optionalID(id int64) *uint32 {
	if id < 0 {
		return nil
	}
	v := uint32(id)
	return &v
}

// environ builds the child environment from the parent one, unless clearEnv is
// set, overridden by the KEY=VALUE entries
func environ(clearEnv bool, entries []string) ([]string, error) {
	var base []string
	if !clearEnv {
		base = osEnviron()
	}
	index := make(map[string]int, len(base))
	env := make([]string, 0, len(base)+len(entries))
	for _, e := range base {
		k, _, _ := strings.Cut(e, "=")
		index[k] = len(env)
		env = append(env, e)
	}
	for _, e := range entries {
		k, _, ok := strings.Cut(e, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid environment variable %q", e)
		}
		if i, ok := index[k]; ok {
			env[i] = e
			continue
		}
		index[k] = len(env)
		env = append(env, e)
	}
	return env, nil
}
