package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/judgelight/judgelight/pkg/profile"
	"github.com/judgelight/judgelight/pkg/sysno"
	"github.com/judgelight/judgelight/runner"
	"github.com/judgelight/judgelight/runner/sandbox"
)

// Manifest is the YAML document of a batch. Job fields left empty take the
// manifest level values.
type Manifest struct {
	Parallel int               `yaml:"parallel,omitempty"`
	Profiles []profile.Profile `yaml:"profiles,omitempty"`
	Profile  string            `yaml:"profile,omitempty"`
	Limits   *profile.Limits   `yaml:"limits,omitempty"`
	Jobs     []Job             `yaml:"jobs"`
}

// Job is one request of a batch
type Job struct {
	Name    string          `yaml:"name"`
	Path    string          `yaml:"path"`
	Args    []string        `yaml:"args,omitempty"`
	Env     []string        `yaml:"env,omitempty"`
	Stdin   string          `yaml:"stdin,omitempty"`
	Stdout  string          `yaml:"stdout,omitempty"`
	Stderr  string          `yaml:"stderr,omitempty"`
	Chroot  string          `yaml:"chroot,omitempty"`
	WorkDir string          `yaml:"work_dir,omitempty"`
	UID     *uint32         `yaml:"uid,omitempty"`
	GID     *uint32         `yaml:"gid,omitempty"`
	Memfd   bool            `yaml:"memfd,omitempty"`
	Limits  *profile.Limits `yaml:"limits,omitempty"`

	RuleOptions `yaml:",inline"`
}

// ParseManifest parses and checks a batch manifest
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse manifest: empty document")
		}
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if len(m.Jobs) == 0 {
		return nil, fmt.Errorf("parse manifest: no jobs")
	}
	if m.Parallel < 0 {
		return nil, fmt.Errorf("parse manifest: parallel: must not be negative")
	}
	for i := range m.Profiles {
		if err := m.Profiles[i].Validate(); err != nil {
			return nil, fmt.Errorf("parse manifest: %w", err)
		}
	}
	names := make(map[string]bool, len(m.Jobs))
	for i := range m.Jobs {
		j := &m.Jobs[i]
		if j.Path == "" {
			return nil, fmt.Errorf("parse manifest: jobs[%d]: path must not be empty", i)
		}
		if j.Name == "" {
			j.Name = fmt.Sprintf("job-%d", i)
		}
		if names[j.Name] {
			return nil, fmt.Errorf("parse manifest: duplicate job %q", j.Name)
		}
		names[j.Name] = true
	}
	return &m, nil
}

// Request builds the request of the job. Unset limits are taken from the
// manifest, then from the profile.
func (m *Manifest) Request(j Job, reg *profile.Registry, t *sysno.Table) (sandbox.Request, error) {
	limit := fillLimit(j.Limits.Limit(), m.Limits.Limit())

	opts := j.RuleOptions
	if opts.Profile == "" {
		opts.Profile = m.Profile
	}
	rules, limit, err := opts.Build(reg, t, limit)
	if err != nil {
		return sandbox.Request{}, fmt.Errorf("job %q: %w", j.Name, err)
	}

	args := j.Args
	if len(args) == 0 {
		args = []string{j.Path}
	}
	return sandbox.Request{
		Path:          j.Path,
		Args:          args,
		Env:           j.Env,
		Stdin:         j.Stdin,
		Stdout:        j.Stdout,
		Stderr:        j.Stderr,
		Limit:         limit,
		Rules:         rules,
		Chroot:        j.Chroot,
		WorkDir:       j.WorkDir,
		UID:           j.UID,
		GID:           j.GID,
		ExecFromMemfd: j.Memfd,
	}, nil
}

func fillLimit(l, def runner.Limit) runner.Limit {
	if l.CPUTime == 0 {
		l.CPUTime = def.CPUTime
	}
	if l.RealTime == 0 {
		l.RealTime = def.RealTime
	}
	if l.Memory == 0 {
		l.Memory = def.Memory
	}
	if l.Output == 0 {
		l.Output = def.Output
	}
	if l.Stack == 0 {
		l.Stack = def.Stack
	}
	if l.Process == 0 {
		l.Process = def.Process
	}
	return l
}

type BatchCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	manifest     string
	parallel     int
	profileFiles []string
	format       string
	result       string
}

// NewBatchCommand returns the batch command.
func NewBatchCommand(rootCmd *RootCommand, app *kingpin.Application) *BatchCommand {
	c := &BatchCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("batch", "Run the jobs of a YAML manifest concurrently.")
	c.Cmd.Arg("manifest", "Manifest file.").Required().ExistingFileVar(&c.manifest)
	c.Cmd.Flag("parallel", "Number of concurrent runs, manifest value or CPU count when 0.").IntVar(&c.parallel)
	c.Cmd.Flag("profile-file", "YAML file with extra profiles (repeatable).").ExistingFilesVar(&c.profileFiles)
	c.Cmd.Flag("format", "Result format.").Default(FormatText).EnumVar(&c.format, formats...)
	c.Cmd.Flag("res", "Result file.").Default("stdout").StringVar(&c.result)

	return c
}

func (c BatchCommand) Name() string { return c.Cmd.FullCommand() }

func (c BatchCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	data, err := os.ReadFile(c.manifest)
	if err != nil {
		return fmt.Errorf("could not read manifest: %w", err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return err
	}

	reg, err := newRegistry(c.profileFiles, m.Profiles...)
	if err != nil {
		return err
	}
	table, _ := sysno.Native()

	parallel := c.parallel
	if parallel == 0 {
		parallel = m.Parallel
	}
	if parallel == 0 {
		parallel = runtime.NumCPU()
	}

	sup := sandbox.New(sandbox.WithLogger(logger))
	results := runBatch(ctx, sup, m, reg, table, parallel, logger)

	reports := make([]Report, len(results))
	failed := 0
	for i, res := range results {
		reports[i] = NewReport(m.Jobs[i].Name, res)
		if res.Status == runner.StatusRunnerError {
			failed++
		}
	}

	w, closeFn, err := openResult(c.result, c.rootCmd.Stdout)
	if err != nil {
		return err
	}
	if err := WriteReports(w, c.format, reports); err != nil {
		closeFn()
		return fmt.Errorf("could not write results: %w", err)
	}
	if err := closeFn(); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d jobs ended with a runner error", failed, len(results))
	}
	return nil
}

// runBatch runs the jobs with at most parallel runs at a time. Jobs whose
// request cannot be built get a runner error result.
func runBatch(ctx context.Context, sup *sandbox.Supervisor, m *Manifest, reg *profile.Registry, t *sysno.Table, parallel int, logger *zap.Logger) []runner.Result {
	results := make([]runner.Result, len(m.Jobs))

	var g errgroup.Group
	g.SetLimit(parallel)
	for i, j := range m.Jobs {
		req, err := m.Request(j, reg, t)
		if err != nil {
			logger.Warn("invalid job", zap.String("job", j.Name), zap.Error(err))
			results[i] = runner.Result{Status: runner.StatusRunnerError, Error: err.Error()}
			continue
		}
		r := sup.Job(req)
		g.Go(func() error {
			results[i] = r.Run(ctx)
			logger.Info("job finished",
				zap.String("job", j.Name),
				zap.String("status", results[i].Status.Verdict()),
			)
			return nil
		})
	}
	// jobs never fail the group, their errors are in the results
	g.Wait()
	return results
}
