//go:build !integration

package poller

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"realestate-payments/internal/domain/model"
)

// scriptedFetcher replays a list of answers; the last one repeats.
type scriptedFetcher struct {
	mu      sync.Mutex
	answers []answer
	calls   int
}

type answer struct {
	status model.PaymentStatus
	err    error
}

func (f *scriptedFetcher) FetchStatus(ctx context.Context, paymentID, preferenceID string) (*PaymentState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.answers[min(f.calls, len(f.answers)-1)]
	f.calls++
	if a.err != nil {
		return nil, a.err
	}
	return &PaymentState{ID: paymentID, Status: a.status}, nil
}

func (f *scriptedFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestPoller(f Fetcher, interval, budget time.Duration) *Poller {
	logger := zerolog.Nop()
	return New(f, Options{Interval: interval, Budget: budget}, &logger)
}

func TestWait(t *testing.T) {
	t.Run("should poll immediately and stop on the first final status", func(t *testing.T) {
		f := &scriptedFetcher{answers: []answer{{status: model.PaymentStatusApproved}}}
		p := newTestPoller(f, time.Hour, time.Hour)

		start := time.Now()
		out, err := p.Wait(context.Background(), "pay-1", "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if out.Result != ResultApproved || out.Polls != 1 {
			t.Errorf("expected approved after one poll, got %+v", out)
		}
		if time.Since(start) > time.Second {
			t.Error("first poll must not wait for the interval")
		}
	})

	t.Run("should keep polling through transport errors", func(t *testing.T) {
		f := &scriptedFetcher{answers: []answer{
			{status: model.PaymentStatusPending},
			{err: errors.New("connection reset")},
			{err: errors.New("connection reset")},
			{status: model.PaymentStatusRejected},
		}}
		p := newTestPoller(f, 5*time.Millisecond, 5*time.Second)

		out, err := p.Wait(context.Background(), "", "pref-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if out.Result != ResultRejected || out.Polls != 4 {
			t.Errorf("expected rejected on the fourth poll, got %+v", out)
		}
		if out.Payment == nil || out.Payment.Status != model.PaymentStatusRejected {
			t.Errorf("expected last state kept, got %+v", out.Payment)
		}
	})

	t.Run("should time out after the budget and stop calling", func(t *testing.T) {
		f := &scriptedFetcher{answers: []answer{{status: model.PaymentStatusPending}}}
		p := newTestPoller(f, 10*time.Millisecond, 55*time.Millisecond)

		out, err := p.Wait(context.Background(), "pay-1", "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if out.Result != ResultTimeout {
			t.Fatalf("expected timeout, got %s", out.Result)
		}
		if out.Polls < 2 || out.Polls > 7 {
			t.Errorf("expected a poll per interval within the budget, got %d", out.Polls)
		}

		calls := f.Calls()
		time.Sleep(40 * time.Millisecond)
		if f.Calls() != calls {
			t.Error("no calls may happen after the timeout")
		}
	})

	t.Run("should honour caller cancellation", func(t *testing.T) {
		f := &scriptedFetcher{answers: []answer{{status: model.PaymentStatusPending}}}
		p := newTestPoller(f, time.Hour, time.Hour)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := p.Wait(ctx, "pay-1", ""); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("should require an identifier", func(t *testing.T) {
		p := newTestPoller(&scriptedFetcher{}, time.Second, time.Second)
		if _, err := p.Wait(context.Background(), "", ""); err == nil {
			t.Error("expected an error without identifiers")
		}
	})
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path != "/payments/status" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"success":false,"error":"not found"}`))
			return
		}
		if r.URL.Query().Get("paymentId") != "pay-1" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"success":false,"error":"not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"payment":{"id":"pay-1","status":"approved","preference_id":"pref-1","payment_id":"mp9","amount":49.90}}`))
	}))
	defer srv.Close()

	f, err := NewHTTPFetcher(srv.URL+"/", time.Second)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	state, err := f.FetchStatus(context.Background(), "pay-1", "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if state.Status != model.PaymentStatusApproved || state.PaymentID == nil || *state.PaymentID != "mp9" {
		t.Errorf("unexpected state %+v", state)
	}
	if state.Amount.String() != "49.90" {
		t.Errorf("expected amount 49.90, got %s", state.Amount)
	}

	if _, err := f.FetchStatus(context.Background(), "nope", ""); err == nil {
		t.Error("expected an error for a 404")
	}

	if _, err := NewHTTPFetcher("not a url", 0); err == nil {
		t.Error("expected an error for an invalid base url")
	}
}
