package cmd

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mishra-lab/scheduler/core/roster"
)

var (
	rosterEmail     string
	rosterDivisions []string
)

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Inspect and edit the roster file",
}

var rosterListCmd = &cobra.Command{
	Use:   "ls",
	Short: "List clinicians and their divisions",
	RunE:  runRosterList,
}

var rosterAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Add or replace a clinician",
	Args:  cobra.ExactArgs(1),
	RunE:  runRosterAdd,
}

var rosterRemoveCmd = &cobra.Command{
	Use:   "remove NAME",
	Short: "Remove a clinician",
	Args:  cobra.ExactArgs(1),
	RunE:  runRosterRemove,
}

func init() {
	rosterAddCmd.Flags().StringVar(&rosterEmail, "email", "", "contact email")
	rosterAddCmd.Flags().StringSliceVarP(&rosterDivisions, "division", "d", nil, "division as name:min:max, repeatable")
	_ = rosterAddCmd.MarkFlagRequired("division")
	rosterCmd.AddCommand(rosterListCmd, rosterAddCmd, rosterRemoveCmd)
	rootCmd.AddCommand(rosterCmd)
}

func rosterPath() (string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	return cfg.Input.Roster, nil
}

func runRosterList(cmd *cobra.Command, _ []string) error {
	path, err := rosterPath()
	if err != nil {
		return err
	}
	f, err := roster.Load(path)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tEMAIL\tDIVISIONS")
	for _, name := range f.Names() {
		e := f[name]
		divs := make([]string, 0, len(e.Divisions))
		for d, b := range e.Divisions {
			divs = append(divs, fmt.Sprintf("%s[%d-%d]", d, b.Min, b.Max))
		}
		sort.Strings(divs)
		fmt.Fprintf(w, "%s\t%s\t%s\n", name, e.Email, strings.Join(divs, " "))
	}
	return w.Flush()
}

// ParseDivision reads a name:min:max flag value.
func ParseDivision(s string) (string, roster.Bounds, error) {
	var b roster.Bounds
	parts := strings.Split(s, ":")
	if len(parts) != 3 || parts[0] == "" {
		return "", b, fmt.Errorf("division %q: want name:min:max", s)
	}
	if _, err := fmt.Sscanf(parts[1]+" "+parts[2], "%d %d", &b.Min, &b.Max); err != nil {
		return "", b, fmt.Errorf("division %q: %w", s, err)
	}
	return parts[0], b, nil
}

func runRosterAdd(cmd *cobra.Command, args []string) error {
	path, err := rosterPath()
	if err != nil {
		return err
	}
	f, err := roster.Load(path)
	if err != nil {
		return err
	}
	entry := roster.Entry{Email: rosterEmail, Divisions: map[string]roster.Bounds{}}
	for _, d := range rosterDivisions {
		name, b, err := ParseDivision(d)
		if err != nil {
			return err
		}
		entry.Divisions[name] = b
	}
	f[args[0]] = entry
	if err := f.Validate(); err != nil {
		return err
	}
	if err := roster.Save(path, f); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "saved %s to %s\n", args[0], path)
	return nil
}

func runRosterRemove(cmd *cobra.Command, args []string) error {
	path, err := rosterPath()
	if err != nil {
		return err
	}
	f, err := roster.Load(path)
	if err != nil {
		return err
	}
	if _, ok := f[args[0]]; !ok {
		return fmt.Errorf("clinician %s is not on the roster", args[0])
	}
	delete(f, args[0])
	if err := roster.Save(path, f); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %s from %s\n", args[0], path)
	return nil
}
