package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools the MCP server advertises",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dc, _, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer dc.Close()

		tools, err := dc.ListTools(cmd.Context())
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(tools)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TOOL\tDESCRIPTION")
		for _, tool := range tools {
			fmt.Fprintf(w, "%s\t%s\n", tool.Name, tool.Description)
		}
		return w.Flush()
	},
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the MCP server responds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dc, _, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer dc.Close()

		if err := dc.Ping(cmd.Context()); err != nil {
			return err
		}

		info := dc.Session().ServerInfo()
		fmt.Printf("ok: %s %s\n", info.Name, info.Version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(pingCmd)
}
