package commands

import (
	"context"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/alecthomas/kingpin/v2"

	"github.com/judgelight/judgelight/pkg/sysno"
)

type SyscallsCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	arch   string
	format string
}

// NewSyscallsCommand returns the syscalls command.
func NewSyscallsCommand(rootCmd *RootCommand, app *kingpin.Application) *SyscallsCommand {
	c := &SyscallsCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("syscalls", "Print the syscall name to number table.")
	c.Cmd.Flag("arch", "Architecture in GOARCH naming (e.g. amd64, 386), native when empty.").StringVar(&c.arch)
	c.Cmd.Flag("format", "Output format.").Default(FormatText).EnumVar(&c.format, FormatText, FormatJSON)

	return c
}

func (c SyscallsCommand) Name() string { return c.Cmd.FullCommand() }

// Syscall is one entry of the table
type Syscall struct {
	Name   string `json:"name"`
	Number uint32 `json:"number"`
}

// SyscallTable is the printed table of an architecture
type SyscallTable struct {
	Arch     string    `json:"arch"`
	AuditID  uint32    `json:"audit_arch"`
	Syscalls []Syscall `json:"syscalls"`
}

// NewSyscallTable lists the table entries ordered by number
func NewSyscallTable(t *sysno.Table) SyscallTable {
	names := t.Names()
	st := SyscallTable{
		Arch:     t.ArchName(),
		AuditID:  t.Arch(),
		Syscalls: make([]Syscall, 0, len(names)),
	}
	for _, name := range names {
		nr, err := t.Number(name)
		if err != nil {
			continue
		}
		st.Syscalls = append(st.Syscalls, Syscall{Name: name, Number: nr})
	}
	sort.SliceStable(st.Syscalls, func(i, j int) bool {
		return st.Syscalls[i].Number < st.Syscalls[j].Number
	})
	return st
}

func (c SyscallsCommand) Run(ctx context.Context) error {
	var (
		t   *sysno.Table
		err error
	)
	if c.arch == "" {
		t, err = sysno.Native()
	} else {
		t, err = sysno.ForArch(c.arch)
	}
	if err != nil {
		return fmt.Errorf("could not load syscall table: %w", err)
	}
	st := NewSyscallTable(t)

	if c.format == FormatJSON {
		enc := json.NewEncoder(c.rootCmd.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	w := tabwriter.NewWriter(c.rootCmd.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintf(w, "# %s (0x%x)\n", st.Arch, st.AuditID)
	for _, s := range st.Syscalls {
		fmt.Fprintf(w, "%d\t%s\n", s.Number, s.Name)
	}
	return w.Flush()
}
