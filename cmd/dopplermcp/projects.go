package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List Doppler projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dc, _, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer dc.Close()

		projects, err := dc.ListProjects(cmd.Context())
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(projects)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SLUG\tNAME\tDESCRIPTION")
		for _, p := range projects {
			fmt.Fprintf(w, "%s\t%s\t%s\n", p.Slug, p.Name, p.Description)
		}
		return w.Flush()
	},
}

var configsCmd = &cobra.Command{
	Use:   "configs",
	Short: "List configs of a project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dc, cfg, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer dc.Close()

		if cfg.Project == "" {
			return fmt.Errorf("no project selected: use --project or set DOPPLER_PROJECT")
		}

		configs, err := dc.ListConfigs(cmd.Context(), cfg.Project)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(configs)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tENVIRONMENT\tLOCKED")
		for _, c := range configs {
			fmt.Fprintf(w, "%s\t%s\t%v\n", c.Name, c.Environment, c.Locked)
		}
		return w.Flush()
	},
}

var (
	activityPage    int
	activityPerPage int
)

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Show workplace activity logs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dc, _, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer dc.Close()

		logs, err := dc.GetActivityLogs(cmd.Context(), activityPage, activityPerPage)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(logs)
		}

		for _, entry := range logs {
			scope := entry.Project
			if entry.Config != "" {
				scope += "/" + entry.Config
			}
			fmt.Printf("%s  %-24s %s  %s\n", entry.CreatedAt, scope, entry.User.Email, entry.Text)
		}
		return nil
	},
}

var tokenAccess string

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "Manage service tokens",
}

var tokensCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a service token for the selected config",
	Long: "Create a service token scoped to the selected project and config.\n" +
		"The token key is printed once and cannot be retrieved again.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dc, cfg, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer dc.Close()

		project, config, err := scope(cfg)
		if err != nil {
			return err
		}

		token, err := dc.CreateServiceToken(cmd.Context(), project, config, args[0], tokenAccess)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(token)
		}

		fmt.Printf("Created %s token %q for %s/%s\n", token.Access, token.Name, project, config)
		fmt.Println(token.Key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(configsCmd)
	rootCmd.AddCommand(activityCmd)
	rootCmd.AddCommand(tokensCmd)
	tokensCmd.AddCommand(tokensCreateCmd)

	activityCmd.Flags().IntVar(&activityPage, "page", 1, "page number")
	activityCmd.Flags().IntVar(&activityPerPage, "per-page", 20, "entries per page")
	tokensCreateCmd.Flags().StringVar(&tokenAccess, "access", "read", "token access level (read or read/write)")
}
