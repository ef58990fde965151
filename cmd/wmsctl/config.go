package main

import (
	"fmt"

	"github.com/ariefcatur/go-warehouse-orders/internal/session"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change client preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "api       %s\n", apiURL)
		fmt.Fprintf(out, "theme     %s\n", sess.Theme())
		fmt.Fprintf(out, "language  %s\n", sess.Language())
		if u, ok := sess.User(); ok {
			fmt.Fprintf(out, "user      %s\n", u.Email)
		}
		return nil
	},
}

var themeCmd = &cobra.Command{
	Use:       "theme [light|dark|system]",
	Short:     "Show or set the theme",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{string(session.ThemeLight), string(session.ThemeDark), string(session.ThemeSystem)},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			if err := sess.SetTheme(session.Theme(args[0])); err != nil {
				return err
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), sess.Theme())
		return nil
	},
}

var languageCmd = &cobra.Command{
	Use:       "language [id|en]",
	Short:     "Show or set the language",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{string(session.LanguageID), string(session.LanguageEN)},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			if err := sess.SetLanguage(session.Language(args[0])); err != nil {
				return err
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), sess.Language())
		return nil
	},
}

func init() {
	configCmd.AddCommand(themeCmd, languageCmd)
	rootCmd.AddCommand(configCmd)
}
