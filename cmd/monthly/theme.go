package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"monthly/internal/services"
)

func themeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "theme",
		Short: "Show or change the color theme",
	}

	cmd.AddCommand(&cobra.Command{
		Use:         "list",
		Short:       "List the available themes",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipStore: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.asJSON {
				return a.printJSON(cmd, services.Themes)
			}
			for _, t := range services.Themes {
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", t.Key, t.Name)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the current theme",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), a.svc.Preferences.Theme())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <theme>",
		Short: "Change the theme",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !services.IsTheme(args[0]) {
				return fmt.Errorf("unknown theme %q", args[0])
			}
			a.svc.Preferences.ChangeTheme(cmd.Context(), args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "Theme set to %s\n", a.svc.Preferences.Theme())
			return nil
		},
	})

	return cmd
}
