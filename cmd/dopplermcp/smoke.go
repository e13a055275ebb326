package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dopplerkit/dopplermcp/harness"
)

var smokeCmd = &cobra.Command{
	Use:   "smoke [dir]",
	Short: "Replay YAML scenarios against the server",
	Long: "Run every scenario file in dir (default: scenarios) against a live\n" +
		"session. Point it at the fake server for an offline check:\n\n" +
		"  dopplermcp smoke --command \"dopplermcp fake\" ./scenarios",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "scenarios"
		if len(args) == 1 {
			dir = args[0]
		}

		dc, _, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer dc.Close()

		runner := harness.NewRunner(dc.Session(), harness.WithLogger(logrus.StandardLogger()))
		reports, err := runner.RunDir(cmd.Context(), dir)
		for _, report := range reports {
			status := "PASS"
			if len(report.Failures) > 0 {
				status = "FAIL"
			}
			fmt.Printf("%s  %s (%d steps)\n", status, report.Scenario, report.Steps)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(smokeCmd)
}
