package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"realestate-payments/internal/domain"
	"realestate-payments/internal/domain/model"
	"realestate-payments/internal/infra/i18n"
	"realestate-payments/internal/infra/logging"
	"realestate-payments/internal/infra/metrics"
	redisstore "realestate-payments/internal/infra/redis"
	"realestate-payments/internal/usecase"
)

const (
	maxBodyBytes      = 1 << 20
	defaultEventLimit = 50
	maxEventLimit     = 500
)

// Deps are the use cases the HTTP layer drives. Auth and Limiter may be nil.
type Deps struct {
	Payments      usecase.PaymentUseCase
	Webhooks      usecase.WebhookUseCase
	Plans         usecase.PlanUseCase
	Subscriptions usecase.SubscriptionUseCase
	Auth          *AuthManager
	Limiter       RateLimiter
	// Ready reports whether the process can serve traffic; nil means always ready.
	Ready func(ctx context.Context) error
}

type Options struct {
	DeepLinkScheme   string
	RequestTimeout   time.Duration
	StatusRateLimit  int
	StatusRateWindow time.Duration
}

type Server struct {
	deps    Deps
	opts    Options
	locales *i18n.Bundle
	logger  *zerolog.Logger
}

func NewServer(deps Deps, opts Options, logger *zerolog.Logger) *Server {
	if opts.DeepLinkScheme == "" {
		opts.DeepLinkScheme = "inmobiliaria"
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 20 * time.Second
	}
	if opts.StatusRateWindow <= 0 {
		opts.StatusRateWindow = time.Minute
	}
	l := logger.With().Str("component", "http").Logger()
	return &Server{deps: deps, opts: opts, locales: i18n.Default(), logger: &l}
}

// Handler builds the router with the full middleware chain.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(TraceID(), RequestLog(s.logger), Recover(s.logger))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(Timeout(s.opts.RequestTimeout))

		r.Get("/plans", s.handleListPlans)
		r.Post("/payments/create", s.handleCreatePayment)
		r.With(RateLimit(s.deps.Limiter, "status", func(r *http.Request) string {
			return redisstore.StatusKey(ClientIP(r))
		}, s.opts.StatusRateLimit, s.opts.StatusRateWindow, s.logger)).
			Get("/payments/status", s.handlePaymentStatus)
		for _, result := range checkoutResults {
			r.Get("/payments/"+result, s.handleCheckoutResult(result))
		}
		r.Post("/webhook/mercadopago", s.handleWebhook)

		r.Route("/admin", func(r chi.Router) {
			if s.deps.Auth == nil {
				r.HandleFunc("/*", func(w http.ResponseWriter, _ *http.Request) {
					writeJSON(w, http.StatusForbidden, errorBody{Error: "admin api disabled"})
				})
				return
			}
			r.Use(s.deps.Auth.RequireAdmin)
			r.Get("/payments/{id}", s.handleAdminPayment)
			r.Get("/webhooks", s.handleAdminWebhooks)
			r.Post("/webhooks/{id}/replay", s.handleAdminReplay)
			r.Get("/users/{userID}/subscriptions", s.handleAdminSubscriptions)
		})
	})
	return r
}

// ===== public =====

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ready(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.deps.Plans.List(r.Context())
	if err != nil {
		s.fail(w, r, err, "list plans")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "plans": plans})
}

type createPaymentRequest struct {
	Plan struct {
		ID flexID `json:"id"`
	} `json:"plan"`
	User struct {
		ID    flexID `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"user"`
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json body"})
		return
	}
	if req.Plan.ID == "" || req.User.ID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "plan.id and user.id are required"})
		return
	}

	ctx := logging.WithUserID(r.Context(), string(req.User.ID))
	res, err := s.deps.Payments.CreatePayment(ctx, usecase.CreatePaymentInput{
		PlanID: string(req.Plan.ID),
		Payer:  model.Payer{ID: string(req.User.ID), Name: req.User.Name, Email: req.User.Email},
	})
	if err != nil {
		s.fail(w, r.WithContext(ctx), err, "create payment")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"preference": map[string]string{
			"id":                 res.Preference.ID,
			"init_point":         res.Preference.InitPoint,
			"sandbox_init_point": res.Preference.SandboxInitPoint,
		},
		"payment": map[string]string{
			"id":     res.Payment.ID,
			"status": string(res.Payment.Status),
		},
	})
}

func (s *Server) handlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	paymentID := firstNonEmpty(q.Get("paymentId"), q.Get("payment_id"))
	preferenceID := firstNonEmpty(q.Get("preferenceId"), q.Get("preference_id"))

	p, err := s.deps.Payments.CheckPaymentStatus(r.Context(), paymentID, preferenceID)
	if err != nil {
		s.fail(w, r, err, "check payment status")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "payment": newPaymentView(p)})
}

func (s *Server) handleCheckoutResult(result string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tr := s.locales.For(r.Header.Get("Accept-Language"))
		if err := renderResultPage(w, tr, s.opts.DeepLinkScheme, result, r.URL.Query()); err != nil {
			l := logging.With(r.Context(), s.logger)
			l.Error().Err(err).Str("result", result).Msg("render checkout result page")
		}
	}
}

// webhookEnvelope is the body form of a provider notification.
type webhookEnvelope struct {
	Type   string `json:"type"`
	Topic  string `json:"topic"`
	Action string `json:"action"`
	Data   struct {
		ID flexID `json:"id"`
	} `json:"data"`
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "unreadable body"})
		return
	}
	n, err := decodeNotification(body, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	res, err := s.deps.Webhooks.HandleNotification(r.Context(), n)
	if err != nil {
		s.fail(w, r, err, "handle webhook")
		return
	}
	writeJSON(w, http.StatusOK, webhookResponse(res))
}

// decodeNotification accepts the JSON envelope or the legacy query forms
// (?topic=payment&id=... and ?type=payment&data.id=...).
func decodeNotification(body []byte, r *http.Request) (usecase.WebhookNotification, error) {
	q := r.URL.Query()
	n := usecase.WebhookNotification{
		Signature: r.Header.Get("x-signature"),
		RequestID: r.Header.Get("x-request-id"),
	}

	var env webhookEnvelope
	if len(body) > 0 && json.Valid(body) {
		if err := json.Unmarshal(body, &env); err == nil {
			n.Topic = firstNonEmpty(env.Type, env.Topic)
			n.Action = env.Action
			n.ResourceID = string(env.Data.ID)
		}
		n.Payload = body
	}
	if n.Topic == "" {
		n.Topic = firstNonEmpty(q.Get("type"), q.Get("topic"))
	}
	if n.ResourceID == "" {
		n.ResourceID = firstNonEmpty(q.Get("data.id"), q.Get("id"))
	}
	if n.Payload == nil && len(q) > 0 {
		flat := make(map[string]string, len(q))
		for k := range q {
			flat[k] = q.Get(k)
		}
		n.Payload, _ = json.Marshal(flat)
	}
	if n.ResourceID == "" && usecase.IsPaymentEvent(n.Topic, n.Action) {
		return n, errors.New("missing data.id")
	}
	return n, nil
}

func webhookResponse(res *usecase.WebhookResult) map[string]any {
	out := map[string]any{
		"success":           true,
		"event_id":          res.EventID,
		"outcome":           string(res.Outcome),
		"already_processed": res.AlreadyProcessed,
	}
	if res.Payment != nil {
		paymentID := res.ResourceID
		if res.Payment.ExternalPaymentID != nil {
			paymentID = *res.Payment.ExternalPaymentID
		}
		out["payment_id"] = paymentID
		out["status"] = string(res.Payment.Status)
		out["payment"] = newPaymentView(res.Payment)
	}
	return out
}

// ===== admin =====

func (s *Server) handleAdminPayment(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Payments.GetPayment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.adminFail(w, r, "get_payment", err)
		return
	}
	metrics.IncAdminRequest("get_payment", "ok")
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "payment": newPaymentView(p)})
}

func (s *Server) handleAdminWebhooks(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.adminFail(w, r, "list_webhooks", fmt.Errorf("%w: limit must be a positive integer", domain.ErrInvalidArgument))
			return
		}
		limit = min(n, maxEventLimit)
	}
	events, err := s.deps.Webhooks.ListEvents(r.Context(), limit)
	if err != nil {
		s.adminFail(w, r, "list_webhooks", err)
		return
	}
	views := make([]webhookEventView, 0, len(events))
	for _, e := range events {
		views = append(views, newWebhookEventView(e))
	}
	metrics.IncAdminRequest("list_webhooks", "ok")
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "events": views})
}

func (s *Server) handleAdminReplay(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := s.deps.Webhooks.Replay(r.Context(), id)
	if err != nil {
		s.adminFail(w, r, "replay_webhook", err)
		return
	}
	l := logging.With(r.Context(), s.logger)
	l.Info().Str("event_id", id).Str("outcome", string(res.Outcome)).
		Str("operator", adminSubject(r)).Msg("webhook replayed")
	metrics.IncAdminRequest("replay_webhook", "ok")
	writeJSON(w, http.StatusOK, webhookResponse(res))
}

func (s *Server) handleAdminSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.deps.Subscriptions.ListByUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.adminFail(w, r, "list_subscriptions", err)
		return
	}
	views := make([]subscriptionView, 0, len(subs))
	for _, sub := range subs {
		views = append(views, newSubscriptionView(sub))
	}
	metrics.IncAdminRequest("list_subscriptions", "ok")
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "subscriptions": views})
}

func (s *Server) adminFail(w http.ResponseWriter, r *http.Request, action string, err error) {
	code := s.fail(w, r, err, action)
	metrics.IncAdminRequest(action, strconv.Itoa(code))
}

func adminSubject(r *http.Request) string {
	if c := AdminFrom(r.Context()); c != nil {
		return c.Subject
	}
	return ""
}

// fail logs server-side errors and writes the mapped response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, op string) int {
	code := writeError(w, err)
	l := logging.With(r.Context(), s.logger)
	if code >= http.StatusInternalServerError {
		l.Error().Err(err).Str("op", op).Msg("request failed")
	} else {
		l.Debug().Err(err).Str("op", op).Int("status", code).Msg("request rejected")
	}
	return code
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
