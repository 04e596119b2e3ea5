package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/alecthomas/kingpin/v2"
	"gopkg.in/yaml.v3"

	"github.com/judgelight/judgelight/pkg/profile"
)

type ProfilesCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	profileFiles []string
	format       string
}

// NewProfilesCommand returns the profiles command.
func NewProfilesCommand(rootCmd *RootCommand, app *kingpin.Application) *ProfilesCommand {
	c := &ProfilesCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("profiles", "List the syscall profiles.")
	c.Cmd.Flag("profile-file", "YAML file with extra profiles (repeatable).").ExistingFilesVar(&c.profileFiles)
	c.Cmd.Flag("format", "Output format, yaml prints the full profiles.").Default(FormatText).EnumVar(&c.format, FormatText, FormatYAML)

	return c
}

func (c ProfilesCommand) Name() string { return c.Cmd.FullCommand() }

func (c ProfilesCommand) Run(ctx context.Context) error {
	reg, err := newRegistry(c.profileFiles)
	if err != nil {
		return err
	}
	profiles := reg.List()

	if c.format == FormatYAML {
		enc := yaml.NewEncoder(c.rootCmd.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(profile.File{Profiles: profiles}); err != nil {
			return fmt.Errorf("could not encode profiles: %w", err)
		}
		return enc.Close()
	}

	w := tabwriter.NewWriter(c.rootCmd.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDEFAULT\tRULES\tDESCRIPTION")
	for _, p := range profiles {
		rules := len(p.Allow) + len(p.Deny) + len(p.Rules)
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", p.Name, p.Default, rules, p.Description)
	}
	return w.Flush()
}
