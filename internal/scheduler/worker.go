package scheduler

import (
	"context"
	"fmt"
	"time"

	"coachdesk_backend/internal/config"
	"coachdesk_backend/internal/crm/health"
	"coachdesk_backend/internal/crm/metrics"
	"coachdesk_backend/internal/crm/repository"
	"coachdesk_backend/internal/events"
	"coachdesk_backend/internal/inquiries"
	"coachdesk_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"
)

// sweepConcurrency bounds parallel per-client recomputes so one sweep cannot
// saturate the store.
const sweepConcurrency = 8

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	cfg       *config.Config
	health    *health.Service
	crmRepo   *repository.Repository
	inquiries *inquiries.Repository
	bus       events.Bus
	log       *logger.Logger
}

func NewWorker(cfg *config.Config, healthSvc *health.Service, crmRepo *repository.Repository, inqRepo *inquiries.Repository, bus events.Bus, log *logger.Logger) (*Worker, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(cfg.RedisURL)
	if err != nil {
		return nil, err
	}

	queue := cfg.AsynqQueue
	if queue == "" {
		queue = "default"
	}
	concurrency := cfg.AsynqConcurrency
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		mux:       mux,
		cfg:       cfg,
		health:    healthSvc,
		crmRepo:   crmRepo,
		inquiries: inqRepo,
		bus:       bus,
		log:       log,
	}

	mux.HandleFunc(TaskHealthRecompute, w.handleHealthRecompute)
	mux.HandleFunc(TaskHealthSweep, w.handleHealthSweep)
	mux.HandleFunc(TaskStaleSweep, w.handleStaleSweep)

	return w, nil
}

// Run serves tasks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleHealthRecompute(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseHealthRecomputePayload(task)
	if err != nil {
		return err
	}

	tenantID, err := uuid.Parse(payload.TenantID)
	if err != nil {
		return err
	}
	clientID, err := uuid.Parse(payload.ClientID)
	if err != nil {
		return err
	}

	_, err = w.health.RecomputeFromProvider(ctx, tenantID, clientID)
	return err
}

// handleHealthSweep recomputes every client of the targeted tenants. Each
// client is an independent unit of work: a failing recompute is logged and
// skipped so one bad record never blocks the sweep.
func (w *Worker) handleHealthSweep(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseHealthSweepPayload(task)
	if err != nil {
		return err
	}

	tenants, err := w.sweepTenants(ctx, payload.TenantID, w.inquiries.ClientTenants)
	if err != nil {
		return err
	}

	for _, tenantID := range tenants {
		clients, err := w.inquiries.ListClients(ctx, tenantID)
		if err != nil {
			w.log.Error("health sweep: list clients failed", "tenant_id", tenantID, "error", err)
			continue
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(sweepConcurrency)
		for _, client := range clients {
			clientID := client.ID
			g.Go(func() error {
				if _, err := w.health.RecomputeFromProvider(gctx, tenantID, clientID); err != nil {
					w.log.Error("health sweep: recompute failed",
						"tenant_id", tenantID, "client_id", clientID, "error", err)
				}
				return nil
			})
		}
		_ = g.Wait()

		w.log.Info("health sweep done", "tenant_id", tenantID, "clients", len(clients))
	}
	return nil
}

// handleStaleSweep flags active leads without recent updates and publishes
// one digest event per tenant with findings.
func (w *Worker) handleStaleSweep(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseStaleSweepPayload(task)
	if err != nil {
		return err
	}

	tenants, err := w.sweepTenants(ctx, payload.TenantID, w.crmRepo.LeadTenants)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, tenantID := range tenants {
		leads, err := w.crmRepo.ListLeads(ctx, tenantID, repository.ListLeadsParams{})
		if err != nil {
			w.log.Error("stale sweep: list leads failed", "tenant_id", tenantID, "error", err)
			continue
		}

		result := metrics.Aggregate(w.cfg.CRM.Pipeline, leads, metrics.Window{}, now)
		if len(result.StaleLeadIDs) == 0 {
			continue
		}

		w.log.Info("stale leads detected", "tenant_id", tenantID, "count", len(result.StaleLeadIDs))
		if w.bus != nil {
			if err := w.bus.PublishSync(ctx, events.StaleLeadsDetected{
				BaseEvent: events.NewBaseEvent(),
				TenantID:  tenantID,
				LeadIDs:   result.StaleLeadIDs,
			}); err != nil {
				w.log.Error("stale sweep: publish failed", "tenant_id", tenantID, "error", err)
			}
		}
	}
	return nil
}

func (w *Worker) sweepTenants(ctx context.Context, tenantID string, all func(context.Context) ([]uuid.UUID, error)) ([]uuid.UUID, error) {
	if tenantID == "" {
		return all(ctx)
	}
	id, err := uuid.Parse(tenantID)
	if err != nil {
		return nil, err
	}
	return []uuid.UUID{id}, nil
}
