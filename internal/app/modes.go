package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/quizpool/internal/server"
	"github.com/alanyoungcy/quizpool/internal/server/handler"
	"github.com/alanyoungcy/quizpool/internal/server/ws"
	"github.com/alanyoungcy/quizpool/internal/service"
)

const (
	// sweepInterval is how often the worker looks for ended competitions to
	// settle.
	sweepInterval = 30 * time.Second

	// payoutRetryInterval is how often the worker re-attempts failed
	// external transfers.
	payoutRetryInterval = 5 * time.Minute
)

// services bundles the domain services built on top of the wired
// dependencies.
type services struct {
	registry      *service.RegistryService
	participation *service.ParticipationService
	settlement    *service.SettlementService
	ledger        *service.LedgerService
	settings      *service.SettingsService
}

// buildServices constructs the service layer from wired dependencies.
func (a *App) buildServices(deps *Dependencies) *services {
	return &services{
		registry: service.NewRegistryService(
			deps.CompetitionStore, deps.QuestionStore, deps.CompetitionCache,
			deps.SignalBus, deps.AuditStore, deps.Clock, a.logger,
		),
		participation: service.NewParticipationService(
			deps.CompetitionStore, deps.QuestionStore, deps.CompetitionCache,
			deps.SignalBus, deps.AuditStore, deps.Clock, a.logger,
		),
		settlement: service.NewSettlementService(
			deps.CompetitionStore, deps.PayoutStore, deps.SettingsStore,
			deps.CompetitionCache, deps.LockManager, deps.Rail,
			deps.SignalBus, deps.AuditStore, deps.Clock, a.logger,
			a.cfg.Chain.TreasuryAddress,
		),
		ledger: service.NewLedgerService(
			deps.BalanceStore, deps.PayoutStore, deps.SettingsStore,
			deps.Rail, deps.SignalBus, deps.AuditStore, a.logger,
		),
		settings: service.NewSettingsService(
			deps.SettingsStore, deps.SignalBus, deps.AuditStore, a.logger,
			a.cfg.Settlement.FeeCeilingPercent,
		),
	}
}

// ServerMode runs only the HTTP + WebSocket API. Settlement sweeps, payout
// retries, and archival are left to a worker instance.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps, a.buildServices(deps))
	return g.Wait()
}

// WorkerMode runs the background loops without the API: the finalize sweep,
// the failed-payout drain, and periodic archival.
func (a *App) WorkerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting worker mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startWorkers(ctx, g, deps, a.buildServices(deps))
	return g.Wait()
}

// FullMode runs the API and all background loops in a single process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	svcs := a.buildServices(deps)
	a.startHTTPServer(ctx, g, deps, svcs)
	a.startWorkers(ctx, g, deps, svcs)
	return g.Wait()
}

// startHTTPServer adds the HTTP server and WebSocket hub goroutines to the
// given errgroup. The server is shut down gracefully when the context is
// cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, svcs *services) {
	if !a.cfg.Server.Enabled {
		a.logger.InfoContext(ctx, "HTTP server disabled by config")
		return
	}

	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: time.Now().UTC(),
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	handlers := server.Handlers{
		Health:        handler.NewHealthHandler(a.logger),
		Competitions:  handler.NewCompetitionHandler(svcs.registry, deps.Clock, a.logger),
		Participation: handler.NewParticipationHandler(svcs.participation, a.logger),
		Settlement:    handler.NewSettlementHandler(svcs.settlement, a.logger),
		Balances:      handler.NewBalanceHandler(svcs.ledger, a.logger),
		Admin:         handler.NewAdminHandler(svcs.settings, deps.AuditStore, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:          a.cfg.Server.Port,
		CORSOrigins:   a.cfg.Server.CORSOrigins,
		AdminKey:      a.cfg.Server.AdminKey,
		JoinRateLimit: a.cfg.Server.JoinRateLimit,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// startWorkers adds the settlement sweep, payout retry, and archival loops to
// the given errgroup.
func (a *App) startWorkers(ctx context.Context, g *errgroup.Group, deps *Dependencies, svcs *services) {
	// Finalize sweep: settle every active competition past its end time.
	g.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				settled, err := svcs.settlement.FinalizeEnded(ctx)
				if err != nil {
					a.logger.ErrorContext(ctx, "worker: finalize sweep failed",
						slog.String("error", err.Error()),
					)
					continue
				}
				if settled > 0 {
					a.logger.InfoContext(ctx, "worker: finalize sweep settled competitions",
						slog.Int("settled", settled),
					)
					if err := deps.Notifier.Notify(ctx, "competition_finalized",
						"Competitions settled",
						fmt.Sprintf("Settled %d competition(s)", settled),
					); err != nil {
						a.logger.WarnContext(ctx, "worker: settle notification failed",
							slog.String("error", err.Error()),
						)
					}
				}
			}
		}
	})

	// Payout drain: retry failed external transfers.
	g.Go(func() error {
		ticker := time.NewTicker(payoutRetryInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				sent, err := svcs.ledger.RetryFailedPayouts(ctx)
				if err != nil {
					a.logger.ErrorContext(ctx, "worker: payout retry failed",
						slog.String("error", err.Error()),
					)
					continue
				}
				if sent > 0 {
					a.logger.InfoContext(ctx, "worker: retried failed payouts",
						slog.Int("sent", sent),
					)
				}
			}
		}
	})

	// Archival: offload settled history older than the retention window.
	if deps.Archiver != nil {
		g.Go(func() error {
			interval := a.cfg.Settlement.ArchiveInterval.Duration
			if interval <= 0 {
				interval = 24 * time.Hour
			}
			retention := time.Duration(a.cfg.Settlement.ArchiveRetentionDays) * 24 * time.Hour

			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
					before := deps.Clock.Now().Add(-retention)
					comps, err := deps.Archiver.ArchiveCompetitions(ctx, before)
					if err != nil {
						a.logger.ErrorContext(ctx, "worker: competition archive failed",
							slog.String("error", err.Error()),
						)
					}
					entries, err := deps.Archiver.ArchiveAuditLog(ctx, before)
					if err != nil {
						a.logger.ErrorContext(ctx, "worker: audit archive failed",
							slog.String("error", err.Error()),
						)
					}
					if comps > 0 || entries > 0 {
						a.logger.InfoContext(ctx, "worker: archive run complete",
							slog.Int64("competitions", comps),
							slog.Int64("audit_entries", entries),
							slog.Time("before", before),
						)
					}
				}
			}
		})
	}
}
