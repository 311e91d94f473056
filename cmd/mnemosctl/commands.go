package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"mnemos/internal/httpapi"
	"mnemos/internal/logging"
	"mnemos/internal/model"
	"mnemos/pkg/mnemos"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the study planner over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			extra := map[string]string{}
			if cmd.Flags().Changed("addr") {
				extra["MNEMOS_ADDR"] = addr
			}
			cfg, log, client, err := setup(cmd, flags, extra)
			if err != nil {
				return err
			}
			defer client.Close()

			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", cfg.Addr, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			started := time.Now()
			log.Successf("listening on %s (store=%s)", ln.Addr(), cfg.StoreKind)
			if err := httpapi.Run(ctx, ln, client.Handler()); err != nil {
				return err
			}
			log.Infof("shut down after %s", logging.FormatDuration(int(time.Since(started).Seconds())))
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default :8000)")
	return cmd
}

func newPlanCmd(flags *globalFlags) *cobra.Command {
	var (
		avgTime      float64
		correctRatio float64
		full         bool
	)
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Run one planning episode and print the forecast",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, log, client, err := setup(cmd, flags, nil)
			if err != nil {
				return err
			}
			defer client.Close()

			plan, err := client.Plan(cmd.Context(), mnemos.PlanRequest{AvgTime: avgTime, CorrectRatio: correctRatio})
			if err != nil {
				return err
			}
			log.Debugf("action %s explored=%t reward=%.3f loss=%.4f", plan.Action, plan.Explored, plan.Reward, plan.Loss)
			if full {
				return writeJSON(cmd, plan)
			}
			return writeJSON(cmd, plan.Forecast)
		},
	}
	cmd.Flags().Float64Var(&avgTime, "avg-time", 0, "average seconds per question")
	cmd.Flags().Float64Var(&correctRatio, "correct-ratio", 0, "fraction of questions answered correctly")
	cmd.Flags().BoolVar(&full, "full", false, "print the whole plan, not just the forecast")
	_ = cmd.MarkFlagRequired("avg-time")
	_ = cmd.MarkFlagRequired("correct-ratio")
	return cmd
}

func newForecastCmd(flags *globalFlags) *cobra.Command {
	var (
		review int
		newly  int
		today  string
	)
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Print the recall schedule for a fixed action",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var day time.Time
			if today != "" {
				d, err := model.ParseDate(today)
				if err != nil {
					return err
				}
				day = d.Time
			}

			_, _, client, err := setup(cmd, flags, nil)
			if err != nil {
				return err
			}
			defer client.Close()

			f, err := client.Forecast(model.Action{ReviewCount: review, NewCount: newly}, day)
			if err != nil {
				return err
			}
			return writeJSON(cmd, f)
		},
	}
	cmd.Flags().IntVar(&review, "review", 1, "review cards per session")
	cmd.Flags().IntVar(&newly, "new", 0, "new cards per session")
	cmd.Flags().StringVar(&today, "today", "", "start date YYYY-MM-DD (default today)")
	return cmd
}

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	var (
		limit    int
		clearAll bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently served plans",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, log, client, err := setup(cmd, flags, nil)
			if err != nil {
				return err
			}
			defer client.Close()

			if clearAll {
				if err := client.ClearHistory(cmd.Context()); err != nil {
					return err
				}
				log.Success("plan history cleared")
				return nil
			}

			records, err := client.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				log.Info("no plans recorded")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSERVED\tSTATE\tACTION\tEXPLORED\tREWARD\tFIRST REVIEW")
			for _, rec := range records {
				first := ""
				if len(rec.Forecast.RecallDates) > 0 {
					first = rec.Forecast.RecallDates[0]
				}
				fmt.Fprintf(w, "%s\t%s\t%.1fs/%.0f%%\t%s\t%t\t%s\t%s\n",
					rec.ID,
					humanize.Time(rec.CreatedAt),
					rec.State.AvgTime, rec.State.CorrectRatio*100,
					rec.Action,
					rec.Explored,
					humanize.FtoaWithDigits(rec.Reward, 3),
					first,
				)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "number of plans to show (default from config)")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "delete all recorded plans")
	return cmd
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
