// Package poller implements the client side of payment confirmation: after the
// checkout page closes, the app polls the status endpoint until the payment
// reaches a final status or the time budget runs out.
package poller

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"realestate-payments/internal/domain/model"
)

const (
	DefaultInterval = 10 * time.Second
	DefaultBudget   = 180 * time.Second
)

// PaymentState is the server's view of a payment as returned by the status endpoint.
type PaymentState struct {
	ID           string              `json:"id"`
	Status       model.PaymentStatus `json:"status"`
	PreferenceID string              `json:"preference_id"`
	PaymentID    *string             `json:"payment_id"`
	Amount       json.Number         `json:"amount"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// Fetcher reads the current state of a payment.
type Fetcher interface {
	FetchStatus(ctx context.Context, paymentID, preferenceID string) (*PaymentState, error)
}

type Result string

const (
	ResultApproved Result = "approved"
	ResultRejected Result = "rejected"
	ResultTimeout  Result = "timeout"
)

// Outcome is what Wait settled on.
type Outcome struct {
	Result  Result
	Payment *PaymentState // last successful read, nil if none succeeded
	Polls   int
	Elapsed time.Duration
}

type Options struct {
	Interval time.Duration
	Budget   time.Duration
}

type Poller struct {
	fetch    Fetcher
	interval time.Duration
	budget   time.Duration
	log      *zerolog.Logger
}

func New(fetch Fetcher, opts Options, logger *zerolog.Logger) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Budget <= 0 {
		opts.Budget = DefaultBudget
	}
	l := logger.With().Str("component", "PaymentPoller").Logger()
	return &Poller{fetch: fetch, interval: opts.Interval, budget: opts.Budget, log: &l}
}

// Wait polls immediately and then once per interval. It returns on the first final
// status, or with ResultTimeout once the budget is spent; no call is made after
// that. Fetch errors are logged and polling goes on.
func (p *Poller) Wait(ctx context.Context, paymentID, preferenceID string) (Outcome, error) {
	if paymentID == "" && preferenceID == "" {
		return Outcome{}, errors.New("poller: payment id or preference id required")
	}
	start := time.Now()
	deadline := start.Add(p.budget)
	budgetCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	var out Outcome
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		out.Polls++
		state, err := p.fetch.FetchStatus(budgetCtx, paymentID, preferenceID)
		switch {
		case err != nil:
			p.log.Warn().Err(err).Int("poll", out.Polls).Msg("status poll failed")
		default:
			out.Payment = state
			if state.Status.IsTerminal() {
				out.Result = terminalResult(state.Status)
				out.Elapsed = time.Since(start)
				p.log.Info().Str("result", string(out.Result)).Int("polls", out.Polls).Msg("payment settled")
				return out, nil
			}
			p.log.Debug().Int("poll", out.Polls).Msg("payment still pending")
		}

		select {
		case <-ctx.Done():
			return out, ctx.Err()
		case <-budgetCtx.Done():
			if err := ctx.Err(); err != nil {
				return out, err
			}
			return p.timeout(out, start), nil
		case <-ticker.C:
			if !time.Now().Before(deadline) {
				return p.timeout(out, start), nil
			}
		}
	}
}

func (p *Poller) timeout(out Outcome, start time.Time) Outcome {
	out.Result = ResultTimeout
	out.Elapsed = time.Since(start)
	p.log.Info().Int("polls", out.Polls).Dur("budget", p.budget).Msg("payment polling timed out")
	return out
}

func terminalResult(s model.PaymentStatus) Result {
	if s == model.PaymentStatusApproved {
		return ResultApproved
	}
	return ResultRejected
}
