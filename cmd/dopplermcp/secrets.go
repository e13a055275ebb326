package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var secretsShowValues bool

var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "List secrets in the selected config",
	Args:  cobra.NoArgs,
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

		if !secretsShowValues {
			names, err := dc.ListSecretNames(cmd.Context(), project, config)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(names)
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		}

		secrets, err := dc.ListSecrets(cmd.Context(), project, config)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(secrets)
		}

		names := make([]string, 0, len(secrets))
		for name := range secrets {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("%s=%s\n", name, secrets[name])
		}
		return nil
	},
}

var secretsGetCmd = &cobra.Command{
	Use:   "get NAME",
	Short: "Print a single secret value",
	Args:  cobra.ExactArgs(1),
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

		value, err := dc.GetSecret(cmd.Context(), project, config, args[0])
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil
	},
}

var secretsSetCmd = &cobra.Command{
	Use:   "set NAME=VALUE [NAME=VALUE...]",
	Short: "Set one or more secrets",
	Long: "Set secrets in the selected config. Accepts NAME=VALUE pairs, or a\n" +
		"single NAME VALUE argument pair.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		secrets, err := parseSecretArgs(args)
		if err != nil {
			return err
		}

		dc, cfg, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer dc.Close()

		project, config, err := scope(cfg)
		if err != nil {
			return err
		}

		count, err := dc.SetSecrets(cmd.Context(), project, config, secrets)
		if err != nil {
			return fmt.Errorf("set %d of %d secrets: %w", count, len(secrets), err)
		}

		logrus.WithFields(logrus.Fields{
			"project": project,
			"config":  config,
			"count":   count,
		}).Debug("secrets written")
		fmt.Printf("Set %d secrets in %s/%s\n", count, project, config)
		return nil
	},
}

var secretsDeleteCmd = &cobra.Command{
	Use:   "delete NAME [NAME...]",
	Short: "Delete secrets from the selected config",
	Args:  cobra.MinimumNArgs(1),
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

		if err := dc.DeleteSecrets(cmd.Context(), project, config, args...); err != nil {
			return err
		}
		fmt.Printf("Deleted %d secrets from %s/%s\n", len(args), project, config)
		return nil
	},
}

// parseSecretArgs accepts NAME=VALUE pairs, or exactly one NAME VALUE
// argument pair for values that contain '='.
func parseSecretArgs(args []string) (map[string]string, error) {
	if len(args) == 2 && !strings.Contains(args[0], "=") {
		return map[string]string{args[0]: args[1]}, nil
	}

	secrets := make(map[string]string, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid secret %q: want NAME=VALUE", arg)
		}
		secrets[name] = value
	}
	return secrets, nil
}

func init() {
	rootCmd.AddCommand(secretsCmd)
	secretsCmd.AddCommand(secretsGetCmd)
	secretsCmd.AddCommand(secretsSetCmd)
	secretsCmd.AddCommand(secretsDeleteCmd)

	secretsCmd.Flags().BoolVar(&secretsShowValues, "values", false, "include secret values in the listing")
}
