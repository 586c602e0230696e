package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/pausalabs/pausa/internal/model"
	"github.com/pausalabs/pausa/internal/store"
)

// ErrNoSubscription is returned when an identity has no active subscriptions.
var ErrNoSubscription = errors.New("no active push subscription")

// ErrSubscriptionExpired is returned when the push service reports the
// endpoint permanently gone (404/410). The subscription is deactivated.
var ErrSubscriptionExpired = errors.New("push subscription expired")

// DeliveryError is a transient or unknown HTTP failure from the push service.
// It is recorded for diagnostics and retried only on the next scheduler tick,
// never in-line.
type DeliveryError struct {
	StatusCode int
	Body       string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("push service returned %d: %s", e.StatusCode, e.Body)
}

// Payload is the JSON content delivered to the push endpoint.
type Payload struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Icon  string         `json:"icon,omitempty"`
	Tag   string         `json:"tag,omitempty"`
	URL   string         `json:"url,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

// Result is the per-endpoint outcome of one delivery attempt.
type Result struct {
	Endpoint   string `json:"endpoint"`
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode,omitempty"`
	Error      string `json:"error,omitempty"`

	Err error `json:"-"`
}

const (
	defaultTTL         = 86400 // seconds the push service may hold the message
	deliveryTimeout    = 30 * time.Second
	maxErrorBodyLength = 1024
)

// Service delivers Web Push messages: per-origin VAPID authorization,
// RFC 8291 payload encryption, HTTP delivery, and per-endpoint outcome
// mapping including retirement of dead subscriptions.
type Service struct {
	signer Signer
	subs   *store.SubscriptionStore
	client *http.Client
	ttl    int
	logger *slog.Logger
}

// NewService creates a push delivery service.
func NewService(signer Signer, subs *store.SubscriptionStore, logger *slog.Logger) *Service {
	return &Service{
		signer: signer,
		subs:   subs,
		client: &http.Client{Timeout: deliveryTimeout},
		ttl:    defaultTTL,
		logger: logger,
	}
}

// VAPIDPublicKey returns the application public key for client-side
// subscription.
func (s *Service) VAPIDPublicKey() string {
	return s.signer.PublicKey()
}

// Send delivers one payload to one subscription and maps the outcome.
func (s *Service) Send(ctx context.Context, sub *model.PushSubscription, p Payload) Result {
	res := Result{Endpoint: sub.Endpoint}

	data, err := json.Marshal(p)
	if err != nil {
		return fail(res, fmt.Errorf("marshal payload: %w", err))
	}

	body, err := encryptPayload(data, sub.P256dhKey, sub.AuthKey)
	if err != nil {
		return fail(res, fmt.Errorf("encrypt payload: %w", err))
	}

	origin, err := endpointOrigin(sub.Endpoint)
	if err != nil {
		return fail(res, err)
	}

	// The token audience is the destination origin, so authorization is
	// built fresh per call rather than cached across push services.
	authz, err := s.signer.Authorization(origin)
	if err != nil {
		return fail(res, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fail(res, fmt.Errorf("build push request: %w", err))
	}
	req.Header.Set("Authorization", authz)
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Content-Encoding", "aes128gcm")
	req.Header.Set("TTL", strconv.Itoa(s.ttl))
	req.Header.Set("Urgency", "normal")

	resp, err := s.client.Do(req)
	if err != nil {
		return fail(res, fmt.Errorf("deliver push: %w", err))
	}
	defer resp.Body.Close()

	res.StatusCode = resp.StatusCode
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		res.Success = true
		if err := s.subs.RecordDelivery(sub.Endpoint, p.Title, time.Now()); err != nil {
			s.logger.Warn("record delivery telemetry", "endpoint", sub.Endpoint, "error", err)
		}
		return res

	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		if err := s.subs.Deactivate(sub.Endpoint); err != nil {
			s.logger.Error("deactivate expired subscription", "endpoint", sub.Endpoint, "error", err)
		}
		return fail(res, ErrSubscriptionExpired)

	default:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLength))
		return fail(res, &DeliveryError{StatusCode: resp.StatusCode, Body: string(raw)})
	}
}

// Fanout delivers one payload to each subscription independently. One
// endpoint's failure never blocks delivery to its siblings.
func (s *Service) Fanout(ctx context.Context, subs []model.PushSubscription, p Payload) []Result {
	results := make([]Result, 0, len(subs))
	for i := range subs {
		res := s.Send(ctx, &subs[i], p)
		if res.Err != nil {
			s.logger.Warn("push delivery failed",
				"endpoint", subs[i].Endpoint, "status", res.StatusCode, "error", res.Err)
		}
		results = append(results, res)
	}
	return results
}

// DispatchToSession delivers to every active subscription of a session.
func (s *Service) DispatchToSession(ctx context.Context, sessionID string, p Payload) ([]Result, error) {
	subs, err := s.subs.ListActiveBySession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions for session: %w", err)
	}
	if len(subs) == 0 {
		return nil, ErrNoSubscription
	}
	return s.Fanout(ctx, subs, p), nil
}

// DispatchToDevice delivers to every active subscription of a device token.
func (s *Service) DispatchToDevice(ctx context.Context, deviceToken string, p Payload) ([]Result, error) {
	subs, err := s.subs.ListActiveByDevice(deviceToken)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions for device: %w", err)
	}
	if len(subs) == 0 {
		return nil, ErrNoSubscription
	}
	return s.Fanout(ctx, subs, p), nil
}

func fail(res Result, err error) Result {
	res.Err = err
	res.Error = err.Error()
	return res
}
