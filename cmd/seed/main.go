package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"surveyseed/internal/app"
	"surveyseed/internal/catalog"
	"surveyseed/internal/logging"
)

var logger *zap.Logger

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write the survey fixture to public/db.json",
	Long: `seed regenerates the JSON fixture the survey web app reads.

Run without arguments from anywhere inside the project:
- Output root: the first of the start directory, its parent and its grandparent
  that already has a public/ folder. When none has one, public/ is created in
  the start directory. The start directory defaults to the working directory.
- Document: {"users": [], "surveys": [...]} with the catalog in declaration
  order. Every survey carries the same createdAt/updatedAt (epoch ms).
- The file is replaced on every run; nothing from a previous run is kept.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(viper.GetBool("verbose"))
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := app.Generate(app.Options{
			StartDir:    viper.GetString("start-dir"),
			CatalogPath: viper.GetString("catalog"),
			Out:         cmd.OutOrStdout(),
			Log:         logger,
		})
		return err
	},
}

func init() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("SURVEYSEED")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().String("start-dir", "", "directory to probe for public/ (default: working directory)")
	rootCmd.PersistentFlags().String("catalog", "", "catalog YAML to use instead of the built-in one")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging on stderr")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("start-dir", rootCmd.PersistentFlags().Lookup("start-dir"))
	_ = viper.BindPFlag("catalog", rootCmd.PersistentFlags().Lookup("catalog"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(validateCmd())
}

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog surveys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.LoadCatalog(viper.GetString("catalog"), logger)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if viper.GetBool("json") {
				return printJSON(out, c.Surveys)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(out)
			tw.AppendHeader(table.Row{"#", "ID", "Kind", "Name", "Payout", "Premium", "Status", "Questions"})
			for i, s := range c.Surveys {
				tw.AppendRow(table.Row{
					i + 1, s.ID, catalog.Kind(s.ID), s.Name,
					fmt.Sprintf("%d %s", s.Payout, s.Currency), s.Premium, s.Status, len(s.Items),
				})
			}
			tw.Render()
			return nil
		},
	}
	return cmd
}

type validateReport struct {
	Surveys  int      `json:"surveys"`
	Warnings []string `json:"warnings"`
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the catalog shape without writing anything",
		Long:  "Checks ids are present and unique (UUID-shaped ids must parse), payouts are non-negative and every survey has items. Items with fewer than two options are reported as warnings.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.LoadCatalog(viper.GetString("catalog"), logger)
			if err != nil {
				return err
			}
			report := validateReport{Surveys: len(c.Surveys), Warnings: c.Warnings()}
			if report.Warnings == nil {
				report.Warnings = []string{}
			}
			out := cmd.OutOrStdout()
			if viper.GetBool("json") {
				return printJSON(out, report)
			}
			for _, w := range report.Warnings {
				fmt.Fprintln(out, "warning:", w)
			}
			fmt.Fprintf(out, "catalog ok: %d surveys\n", report.Surveys)
			return nil
		},
	}
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
