package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"service-dashboard/icons"
	"service-dashboard/scheduler"
	"service-dashboard/server"
	"service-dashboard/sheets"
	"service-dashboard/status"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "service-dashboard",
		Short: "Static dashboard for self-hosted services",
		Long: `service-dashboard turns a CSV catalog of services into an HTML dashboard,
decorates every service with an icon and keeps track of which services are up.

  service-dashboard generate                  # write dashboard.html once
  service-dashboard decorate page.html -o out # add icons to any HTML page
  service-dashboard serve                     # serve the dashboard with live status
  service-dashboard check                     # check every service once
  service-dashboard export                    # write statuses to Google Sheets`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "log level")

	rootCmd.AddCommand(newGenerateCmd(), newDecorateCmd(), newServeCmd(), newCheckCmd(), newExportCmd())

	// Cancelled on SIGINT/SIGTERM so probes in flight stop early
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func setupLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

func newGenerateCmd() *cobra.Command {
	var (
		output    string
		withCheck bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Render the catalog into a decorated HTML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if output == "" {
				output = a.cfg.Output
			}

			if withCheck {
				checker := status.NewChecker(a.cfg.Status.Timeout, a.cfg.Status.Concurrency)
				sched := scheduler.NewScheduler(checker, a.statusStore(), nil, a.metrics, a.services, a.cfg.Status.Interval)
				sched.Sweep(cmd.Context())
				a.statuses = sched
			}

			page, _, err := a.buildPage(cmd.Context(), false)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, page, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}

			log.Info().Str("output", output).Msg("Dashboard HTML file generated successfully")
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (defaults to the configured output)")
	cmd.Flags().BoolVar(&withCheck, "check", false, "check every service first and bake the result into the page")
	return cmd
}

func newDecorateCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "decorate <input.html>",
		Short: "Add icons to the marked elements of an existing HTML page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			in, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer in.Close()

			out := os.Stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer f.Close()
				out = f
			}

			report, err := a.injector.InjectHTML(cmd.Context(), in, out)
			if err != nil {
				return err
			}
			a.metrics.RecordInjection(a.source.Name, report)

			log.Info().
				Int("matched", report.Matched).
				Int("resolved", report.Resolved).
				Int("fallback", report.Fallback).
				Int("skipped", report.Skipped).
				Msg("Page decorated")
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (defaults to stdout)")
	return cmd
}

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard with live service status",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = a.cfg.Server.Addr
			}

			notifier, err := a.notifier()
			if err != nil {
				return err
			}

			checker := status.NewChecker(a.cfg.Status.Timeout, a.cfg.Status.Concurrency)
			sched := scheduler.NewScheduler(checker, a.statusStore(), notifier, a.metrics, a.services, a.cfg.Status.Interval)

			srv := server.New(func(ctx context.Context) ([]byte, icons.Report, error) {
				return a.buildPage(ctx, true)
			}, sched, a.metrics)
			if _, err := srv.Rebuild(cmd.Context()); err != nil {
				return err
			}
			// Later rebuilds take statuses from the live sweeps
			a.statuses = sched

			sched.Start()
			if err := srv.Start(addr); err != nil {
				sched.Stop()
				return err
			}

			<-cmd.Context().Done()

			log.Info().Msg("Shutting down...")
			if err := srv.Stop(); err != nil {
				log.Warn().Err(err).Msg("Server shutdown failed")
			}
			sched.Stop()
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to the configured address)")
	return cmd
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check every service once and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if len(a.services) == 0 {
				return status.ErrNoServices
			}

			checker := status.NewChecker(a.cfg.Status.Timeout, a.cfg.Status.Concurrency)
			sched := scheduler.NewScheduler(checker, a.statusStore(), nil, a.metrics, a.services, a.cfg.Status.Interval)
			statuses := sched.Sweep(cmd.Context())

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tCATEGORY\tSTATUS\tCODE\tERROR")
			down := 0
			for _, st := range statuses {
				state := "up"
				if !st.Up {
					state = "down"
					down++
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", st.Name, st.Category, state, st.StatusCode, st.Error)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if down > 0 {
				return fmt.Errorf("%d of %d services are down", down, len(statuses))
			}
			return nil
		},
	}
}

func newExportCmd() *cobra.Command {
	var sheetName string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Check every service and write the result to a new Google Sheets tab",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			spreadsheetURL := a.cfg.Sheets.SpreadsheetURL
			spreadsheetID := sheets.ExtractSpreadsheetID(spreadsheetURL)
			if spreadsheetID == "" {
				return fmt.Errorf("could not extract spreadsheet ID from URL: %q", spreadsheetURL)
			}

			writer, err := sheets.NewWriter(cmd.Context(), spreadsheetID, a.cfg.Sheets.CredentialsPath)
			if err != nil {
				return fmt.Errorf("failed to initialize Google Sheets writer: %w", err)
			}

			checker := status.NewChecker(a.cfg.Status.Timeout, a.cfg.Status.Concurrency)
			sched := scheduler.NewScheduler(checker, a.statusStore(), nil, a.metrics, a.services, a.cfg.Status.Interval)
			statuses := sched.Sweep(cmd.Context())
			if statuses == nil {
				return cmd.Context().Err()
			}

			if sheetName == "" {
				sheetName = fmt.Sprintf("Status_%s", time.Now().Format("20060102_150405"))
			}
			_, sheetID, err := writer.CreateSheetAndWriteStatuses(cmd.Context(), sheetName, statuses, a.iconURLs(cmd.Context()))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d services to %s\n", len(statuses), sheets.SheetURL(spreadsheetURL, sheetID))
			return nil
		},
	}
	cmd.Flags().StringVar(&sheetName, "sheet", "", "sheet name (defaults to Status_<timestamp>)")
	return cmd
}
