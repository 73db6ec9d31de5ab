// Command dialer runs one campaign over a contact file without the panel.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"voice-campaign/internal/app"
	"voice-campaign/internal/campaign"
	"voice-campaign/internal/config"
	"voice-campaign/internal/contacts"
	"voice-campaign/internal/logger"
	pm "voice-campaign/pkg/models"

	"go.uber.org/zap"
)

func main() {
	csvPath := flag.String("csv", "", "contact list to call (required)")
	limit := flag.Int("limit", 0, "call at most this many contacts")
	pacing := flag.Duration("pacing", -1, "wait between calls (overrides PACING_INTERVAL)")
	flag.Parse()

	if *csvPath == "" {
		fmt.Fprintln(os.Stderr, "usage: dialer -csv contacts.csv [-limit n] [-pacing 5s]")
		os.Exit(2)
	}

	cfg := config.LoadConfig()
	if *pacing >= 0 {
		cfg.PacingInterval = *pacing
	}
	if err := logger.Init(cfg.LogMode); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	// fail before any call when the list is unreadable
	list, err := contacts.ParseFile(*csvPath)
	if err != nil {
		logger.L().Fatal("Cannot read contact list", zap.Error(err))
	}
	if *limit > 0 && len(list) > *limit {
		list = list[:*limit]
	}
	if len(list) == 0 {
		logger.L().Fatal("No valid contacts found", zap.String("file", *csvPath))
	}

	a, err := app.New(cfg, app.Headless())
	if err != nil {
		logger.L().Fatal("Failed to start", zap.Error(err))
	}
	defer a.Close()

	if _, err := a.Leads.Import(context.Background(), list); err != nil {
		logger.Warn("Could not store contacts", zap.Error(err))
	}

	// Twilio still needs somewhere to post call status
	if cfg.TelephonyMode == "twilio" {
		srv := &http.Server{Addr: ":" + cfg.Port, Handler: a.WebhookRouter()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.L().Fatal("Webhook server failed", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Dialing", zap.Int("contacts", len(list)), zap.String("file", *csvPath))
	results, err := a.Scheduler.Run(ctx, list)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Campaign ended with error", zap.Error(err))
	}
	printSummary(results)
}

func printSummary(results []pm.CallResult) {
	counts := campaign.Summarize(results)
	outcomes := make([]string, 0, len(counts))
	for o := range counts {
		outcomes = append(outcomes, string(o))
	}
	sort.Strings(outcomes)

	fmt.Printf("\n%d calls\n", len(results))
	for _, o := range outcomes {
		fmt.Printf("  %-10s %d\n", o, counts[pm.Outcome(o)])
	}
	for _, r := range results {
		if r.Interested {
			fmt.Printf("  interested: %s (%s)\n", r.Contact.FullName, r.Contact.Phone)
		}
	}
}
