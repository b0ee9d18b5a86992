package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"territory-planner/internal/database"
	"territory-planner/internal/ingest"
)

func newScenariosCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "scenarios",
		Aliases: []string{"scenario"},
		Short:   "Manage saved territory scenarios",
	}
	cmd.AddCommand(newScenariosListCmd(), newScenariosShowCmd(), newScenariosDeleteCmd())
	return cmd
}

// withStore opens the configured store for the duration of fn
func withStore(cmd *cobra.Command, fn func(cc *CLIContext, store database.DataStore) error) error {
	cc, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	store, err := cc.openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(cc, store)
}

func newScenariosListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(cc *CLIContext, store database.DataStore) error {
				infos, err := store.Scenarios().List(cmd.Context())
				if err != nil {
					return err
				}
				if cc.OutputFormat == OutputJSON {
					return printJSON(cmd.OutOrStdout(), infos)
				}
				if len(infos) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No scenarios saved.")
					return nil
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tCUSTOMERS\tCOST\tCREATED")
				for _, info := range infos {
					fmt.Fprintf(tw, "%s\t%d\t%.4f\t%s\n", info.Name, info.Customers, info.Cost,
						info.CreatedAt.Format("2006-01-02 15:04"))
				}
				return tw.Flush()
			})
		},
	}
}

func newScenariosShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print a saved scenario",
		Long:  "Prints the scenario as YAML, or as JSON with --output json.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(cc *CLIContext, store database.DataStore) error {
				sc, err := store.Scenarios().Load(cmd.Context(), args[0])
				if err == nil && sc == nil {
					err = fmt.Errorf("scenario %q: %w", args[0], database.ErrNotFound)
				}
				if err != nil {
					return err
				}
				if cc.OutputFormat == OutputJSON {
					return printJSON(cmd.OutOrStdout(), sc)
				}
				return ingest.WriteScenarioYAML(cmd.OutOrStdout(), sc)
			})
		},
	}
}

func newScenariosDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <name>",
		Aliases: []string{"rm"},
		Short:   "Delete a saved scenario",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(cc *CLIContext, store database.DataStore) error {
				err := store.Scenarios().Delete(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if cc.OutputFormat == OutputText {
					fmt.Fprintf(cmd.OutOrStdout(), "Deleted scenario %q\n", args[0])
				}
				return nil
			})
		},
	}
}
