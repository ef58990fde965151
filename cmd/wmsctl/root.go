package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/ariefcatur/go-warehouse-orders/internal/client"
	"github.com/ariefcatur/go-warehouse-orders/internal/logging"
	"github.com/ariefcatur/go-warehouse-orders/internal/session"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	apiURL      string
	sessionFile string
	asJSON      bool
	verbose     bool

	logger *zap.Logger
	sess   *session.Session
	api    *client.Client
)

var rootCmd = &cobra.Command{
	Use:           "wmsctl",
	Short:         "Operate the warehouse order API from the terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	_ = godotenv.Load()
	def := os.Getenv("WMS_API_URL")
	if def == "" {
		def = "http://localhost:8081"
	}
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", def, "API base URL (env WMS_API_URL)")
	rootCmd.PersistentFlags().StringVar(&sessionFile, "session", "", "session file (default: user config dir)")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print raw JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func setup() error {
	level := "warn"
	if verbose {
		level = "debug"
	}
	var err error
	if logger, err = logging.New("development", level); err != nil {
		return err
	}
	path := sessionFile
	if path == "" {
		if path, err = session.DefaultPath(); err != nil {
			return err
		}
	}
	sess = session.New(session.NewFileStorage(path), logger.Named("session"))
	if err := sess.Load(); err != nil {
		return fmt.Errorf("loading session: %w", err)
	}
	api = client.New(apiURL, sess, logger.Named("client"))
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// table prints rows as aligned columns, or v as JSON with --json.
func table(cmd *cobra.Command, v any, header string, rows func(w io.Writer)) error {
	if asJSON {
		return printJSON(cmd.OutOrStdout(), v)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	rows(tw)
	return tw.Flush()
}

func pageFooter(cmd *cobra.Command, page, totalPages, total int) {
	if !asJSON {
		fmt.Fprintf(cmd.OutOrStdout(), "page %d/%d, %d total\n", page, totalPages, total)
	}
}
