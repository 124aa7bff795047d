package cli

import (
	"github.com/spf13/cobra"
)

func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "topoclean",
		Short: "Clean and validate the topology of 2D line drawings",
		Long: `Topoclean finds and fixes the defects that keep a line drawing from
forming clean polygons: crossings, duplicates, undershoots, dangling
ends, unclosed or misoriented polygons and more.

Drawings are YAML or JSON documents holding a flat list of curves.`,
		Version:      version,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "", "TOML configuration file (default: built-in settings)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output to stderr")

	actionsCmd := &cobra.Command{
		Use:   "actions",
		Short: "List every action with its tolerance and whether it can fix",
		Args:  cobra.NoArgs,
		RunE:  RunActions,
	}
	actionsCmd.Flags().Bool("json", false, "Print machine-readable action list")

	checkCmd := &cobra.Command{
		Use:   "check <drawing>",
		Short: "Report the defects one action finds",
		Args:  cobra.ExactArgs(1),
		RunE:  RunCheck,
	}
	addActionFlags(checkCmd)
	checkCmd.Flags().Bool("json", false, "Print machine-readable results")

	fixCmd := &cobra.Command{
		Use:   "fix <drawing>",
		Short: "Check and fix one action until the drawing settles",
		Args:  cobra.ExactArgs(1),
		RunE:  RunFix,
	}
	addActionFlags(fixCmd)
	addOutputFlag(fixCmd)

	cleanCmd := &cobra.Command{
		Use:   "clean <drawing>",
		Short: "Run the cleanup sequence",
		Args:  cobra.ExactArgs(1),
		RunE:  RunClean,
	}
	cleanCmd.Flags().StringSlice("sequence", nil, "Actions to run in order (default: configured sequence)")
	addOutputFlag(cleanCmd)

	polygonsCmd := &cobra.Command{
		Use:   "polygons <drawing>",
		Short: "Trace the minimal faces of the drawing",
		Args:  cobra.ExactArgs(1),
		RunE:  RunPolygons,
	}
	polygonsCmd.Flags().Bool("create", false, "Add one closed polyline per face to the drawing")
	polygonsCmd.Flags().String("layer", "", "Layer of created faces")
	polygonsCmd.Flags().Bool("json", false, "Print machine-readable faces")
	addOutputFlag(polygonsCmd)

	rootCmd.AddCommand(actionsCmd, checkCmd, fixCmd, cleanCmd, polygonsCmd)
	return rootCmd
}

func addActionFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("action", "a", "", "Action to run (see 'topoclean actions')")
	cmd.Flags().Float64P("tolerance", "t", -1, "Override the action tolerance")
	cmd.Flags().StringSlice("select", nil, "Limit the run to these handles")
	_ = cmd.MarkFlagRequired("action")
}

func addOutputFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "", "Write the resulting drawing here (default: stdout)")
}
