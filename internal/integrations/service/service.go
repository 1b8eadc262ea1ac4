package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"crmhub_backend/internal/dispatch"
	"crmhub_backend/internal/integrations/repository"
	"crmhub_backend/internal/integrations/transport"
	"crmhub_backend/internal/schema"
	"crmhub_backend/platform/apperr"
	"crmhub_backend/platform/config"
	"crmhub_backend/platform/logger"
)

const healthCheckConcurrency = 8

// Service provides business logic for channel integrations, including
// signed webhook health checks.
type Service struct {
	dispatcher *dispatch.Dispatcher
	repo       *repository.Repo
	client     *resty.Client
	log        *logger.Logger
}

// New creates a new integrations service.
func New(dispatcher *dispatch.Dispatcher, repo *repository.Repo, cfg config.WebhookConfig, log *logger.Logger) *Service {
	client := resty.New().
		SetTimeout(cfg.GetWebhookTimeout()).
		SetHeader("User-Agent", cfg.GetWebhookUserAgent()).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	return &Service{dispatcher: dispatcher, repo: repo, client: client, log: log}
}

// Create validates and persists a new integration.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, raw map[string]any) (schema.Record, error) {
	return s.dispatcher.Create(ctx, schema.KindIntegration, tenantID, raw)
}

// Update validates the sparse patch and persists it.
func (s *Service) Update(ctx context.Context, tenantID, id uuid.UUID, raw map[string]any) (schema.Record, error) {
	return s.dispatcher.Update(ctx, schema.KindIntegration, tenantID, id, raw)
}

// Get retrieves one integration.
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (schema.Record, error) {
	return s.dispatcher.Get(ctx, schema.KindIntegration, tenantID, id)
}

// List retrieves integrations matching the filters.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, req transport.ListIntegrationsRequest) ([]schema.Record, error) {
	filters := dispatch.Filters{"channel": req.Channel, "active": req.Active}
	return s.dispatcher.List(ctx, schema.KindIntegration, tenantID, filters)
}

// Delete removes an integration.
func (s *Service) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.dispatcher.Delete(ctx, schema.KindIntegration, tenantID, id)
}

// ToggleActive flips the integration's is_active flag through the normal
// update pipeline.
func (s *Service) ToggleActive(ctx context.Context, tenantID, id uuid.UUID) (schema.Record, error) {
	current, err := s.dispatcher.Get(ctx, schema.KindIntegration, tenantID, id)
	if err != nil {
		return nil, err
	}
	return s.dispatcher.Update(ctx, schema.KindIntegration, tenantID, id, map[string]any{
		"is_active": !current.Bool("is_active"),
	})
}

// RunHealthCheck pings the integration's webhook endpoint with a signed probe
// payload and records the outcome.
func (s *Service) RunHealthCheck(ctx context.Context, tenantID, id uuid.UUID) (transport.HealthResult, error) {
	integ, err := s.repo.GetRow(ctx, tenantID, id)
	if err != nil {
		return transport.HealthResult{}, err
	}
	if integ.WebhookURL == nil || *integ.WebhookURL == "" {
		return transport.HealthResult{}, apperr.Configuration("integration has no webhook URL")
	}
	if integ.Secret == nil || *integ.Secret == "" {
		return transport.HealthResult{}, apperr.Configuration("integration has no webhook secret")
	}

	result := s.probe(ctx, integ)
	if err := s.repo.RecordHealth(ctx, tenantID, id, result.Healthy, result.Error); err != nil {
		return transport.HealthResult{}, err
	}
	return result, nil
}

// CheckAll sweeps every active integration across tenants with bounded
// concurrency. Used by the scheduled health check task.
func (s *Service) CheckAll(ctx context.Context) error {
	integrations, err := s.repo.ListActiveAll(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(healthCheckConcurrency)
	for _, integ := range integrations {
		integ := integ
		g.Go(func() error {
			result := s.probe(gctx, integ)
			if !result.Healthy {
				s.log.IntegrationUnhealthy(integ.ID.String(), integ.Channel, result.Error)
			}
			return s.repo.RecordHealth(gctx, integ.TenantID, integ.ID, result.Healthy, result.Error)
		})
	}
	return g.Wait()
}

func (s *Service) probe(ctx context.Context, integ repository.Integration) transport.HealthResult {
	if integ.WebhookURL == nil || *integ.WebhookURL == "" {
		return transport.HealthResult{Error: "webhook URL is not configured"}
	}
	if integ.Secret == nil || *integ.Secret == "" {
		return transport.HealthResult{Error: "webhook secret is not configured"}
	}

	body, err := json.Marshal(map[string]any{
		"type":      "health_check",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return transport.HealthResult{Error: err.Error()}
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Hub-Signature-256", Signature(*integ.Secret, body)).
		SetBody(body).
		Post(*integ.WebhookURL)
	if err != nil {
		return transport.HealthResult{Error: err.Error()}
	}

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return transport.HealthResult{
			StatusCode: resp.StatusCode(),
			Error:      "unexpected status " + resp.Status(),
		}
	}
	return transport.HealthResult{Healthy: true, StatusCode: resp.StatusCode()}
}

// Signature computes the hex HMAC-SHA256 header value for a webhook payload.
func Signature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
