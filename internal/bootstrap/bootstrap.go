package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	hclog "github.com/hashicorp/go-hclog"

	sessioninadapter "recall/internal/modules/session/adapter/in"
	sessionoutadapter "recall/internal/modules/session/adapter/out"
	sessiondomain "recall/internal/modules/session/domain"
	sessionin "recall/internal/modules/session/port/in"
	sessionout "recall/internal/modules/session/port/out"
	sessionservice "recall/internal/modules/session/service"
	sessionusecase "recall/internal/modules/session/usecase"
	statsinadapter "recall/internal/modules/stats/adapter/in"
	statsoutadapter "recall/internal/modules/stats/adapter/out"
	statsdto "recall/internal/modules/stats/dto"
	statsin "recall/internal/modules/stats/port/in"
	statsout "recall/internal/modules/stats/port/out"
	statsservice "recall/internal/modules/stats/service"
	statsusecase "recall/internal/modules/stats/usecase"
	"recall/internal/platform/clock"
	"recall/internal/platform/config"
	"recall/internal/platform/id"
	"recall/internal/platform/logging"
	uiapp "recall/internal/ui/app"
)

type App struct {
	Config     config.Config
	Log        hclog.Logger
	SessionCLI sessioninadapter.CLIHandler
	StatsCLI   statsinadapter.CLIHandler
	Snapshots  *statsoutadapter.SQLiteSnapshotSink
	Reports    *statsoutadapter.MarkdownReportSink

	source   statsout.SessionSource
	svc      *statsservice.StatsService
	stats    statsin.Usecase
	sessions sessionin.Usecase
	clock    clock.Clock
	ids      id.Generator
	closers  []func() error
}

func New(cfg config.Config, log hclog.Logger) (*App, error) {
	log = logging.OrNull(log)
	clk := clock.SystemClock{Location: cfg.Location}
	ids := id.UUID{}
	app := &App{Config: cfg, Log: log, clock: clk, ids: ids}

	var remote sessionout.RemoteSource = sessionoutadapter.OfflineRemote{}
	if cfg.RemoteEnabled() {
		sqliteRemote, err := sessionoutadapter.NewSQLiteRemote(cfg.RemoteDBPath, cfg.PollInterval, clock.NewSystemTicker, cfg.Location, log)
		if err != nil {
			// An unreachable remote degrades to the cached and fallback tiers.
			log.Warn("remote store unavailable", "path", cfg.RemoteDBPath, "error", err)
		} else {
			remote = sqliteRemote
			app.closers = append(app.closers, sqliteRemote.Close)
		}
	}
	cache, err := sessionoutadapter.NewLRUCache(cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("new session cache: %w", err)
	}
	durable := sessionoutadapter.NewFileDurableStore(filepath.Join(cfg.StateDir, "fallback"), cfg.FallbackQuotaBytes, cfg.Location)
	store := sessionservice.NewTieredStore(sessiondomain.UserContext{UserID: cfg.UserID}, remote, cache, durable, log.Named("sessions"))
	sessionUC := sessionusecase.NewInteractor(store, clk, ids)

	snapshots, err := statsoutadapter.NewSQLiteSnapshotSink(cfg.DBPath)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("new snapshot sink: %w", err)
	}
	app.closers = append(app.closers, snapshots.Close)

	app.source = statsoutadapter.NewSessionSourceAdapter(sessionUC)
	app.svc = statsservice.NewStatsService(log.Named("stats"))
	app.sessions = sessionUC
	app.stats = statsusecase.NewInteractor(app.svc, app.source, clk, cfg.UserID)
	app.SessionCLI = sessioninadapter.NewCLIHandler(sessionUC)
	app.StatsCLI = statsinadapter.NewCLIHandler(app.stats)
	app.Snapshots = snapshots
	app.Reports = statsoutadapter.NewMarkdownReportSink(cfg.DataDir)
	return app, nil
}

// NewCoordinator builds a coordinator that publishes to the snapshot store,
// to desktop notifications when enabled, and to every extra sink.
func (a *App) NewCoordinator(period string, extra ...statsout.StatsSink) (statsin.Coordinator, error) {
	sinks := []statsout.StatsSink{a.Snapshots}
	if a.Config.Notify {
		sinks = append(sinks, statsoutadapter.NewNotifySink(statsoutadapter.BeeepNotifier("recall")))
	}
	sinks = append(sinks, extra...)
	return statsusecase.NewSyncCoordinator(a.source, statsoutadapter.NewMultiSink(sinks...), a.svc, a.clock, a.ids, statsusecase.CoordinatorOptions{
		UserID:          a.Config.UserID,
		RefreshInterval: a.Config.RefreshInterval,
		Debounce:        a.Config.Debounce,
		Period:          statsdto.PeriodInput{Period: period},
		Log:             a.Log,
	})
}

func (a *App) NewMCPServer(version string) *statsinadapter.MCPServer {
	return statsinadapter.NewMCPServer(version, a.stats, a.sessions, a.Config.Location)
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func RunTUI(app *App, period string) error {
	var program *tea.Program
	coord, err := app.NewCoordinator(period, statsoutadapter.FuncSink(func(_ context.Context, out statsdto.StatsOutput) error {
		program.Send(uiapp.StatsMsg{Out: out})
		return nil
	}))
	if err != nil {
		return err
	}
	handler := statsinadapter.NewTUIHandler(coord)
	program = tea.NewProgram(uiapp.NewModel(app.Config.UserID, handler), tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := handler.Start(ctx); err != nil {
		return err
	}
	defer handler.Close()
	_, err = program.Run()
	return err
}
