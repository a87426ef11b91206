// Command paywatch waits for a payment to settle the way the mobile app does after
// the checkout page closes. Exit status: 0 approved, 1 rejected, 2 timeout, 3 error.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"realestate-payments/internal/client/poller"
)

func main() {
	baseURL := flag.String("base-url", "http://localhost:8080", "payments service base url")
	paymentID := flag.String("payment-id", "", "local payment id")
	preferenceID := flag.String("preference-id", "", "checkout preference id")
	interval := flag.Duration("interval", poller.DefaultInterval, "delay between polls")
	budget := flag.Duration("budget", poller.DefaultBudget, "total time to wait")
	verbose := flag.Bool("v", false, "log every poll")
	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()

	fetcher, err := poller.NewHTTPFetcher(*baseURL, 15*time.Second)
	if err != nil {
		logger.Error().Err(err).Msg("fetcher")
		os.Exit(3)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := poller.New(fetcher, poller.Options{Interval: *interval, Budget: *budget}, &logger)
	out, err := p.Wait(ctx, *paymentID, *preferenceID)
	if err != nil {
		logger.Error().Err(err).Msg("wait")
		os.Exit(3)
	}

	fmt.Printf("%s after %d polls (%s)\n", out.Result, out.Polls, out.Elapsed.Round(time.Second))
	switch out.Result {
	case poller.ResultApproved:
		os.Exit(0)
	case poller.ResultRejected:
		os.Exit(1)
	default:
		os.Exit(2)
	}
}
