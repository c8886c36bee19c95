// Package app wires the configured engine, storage, cache, and ingest
// worker into a single runnable process and owns its startup and
// graceful-shutdown sequence.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"momentumsentry/cache"
	"momentumsentry/clock"
	"momentumsentry/config"
	"momentumsentry/detector"
	"momentumsentry/engine"
	"momentumsentry/historical"
	"momentumsentry/sink"
	"momentumsentry/snapshot"
	"momentumsentry/storage"
	"momentumsentry/transport"
	"momentumsentry/watchlist"
)

// App owns every long-lived collaborator the process needs: the engine,
// its storage/cache backends, and the ingest worker driving it.
type App struct {
	config *config.Config
	engine *engine.Engine
	redis  *cache.RedisClient
	store  *storage.Store
	worker *transport.Worker
}

// New creates an application instance from loaded configuration. Every
// collaborator is constructed in Start(), matching the split between
// construction and connection the ingest worker already uses.
func New(cfg *config.Config) *App {
	return &App{config: cfg}
}

// Start connects the configured backends, constructs the engine, and
// runs the ingest and session-monitor loops until a shutdown signal
// arrives.
func (a *App) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Database connection (optional — audit persistence degrades
	// gracefully without it, matching the engine's no-historical-stats
	// posture).
	if a.config.DatabasePassword != "" || a.config.DatabaseHost != "localhost" {
		fmt.Println("🗄️  Connecting to database...")
		store, err := storage.Connect(
			a.config.DatabaseHost, a.config.DatabasePort, a.config.DatabaseName,
			a.config.DatabaseUser, a.config.DatabasePassword,
		)
		if err != nil {
			log.Printf("⚠️  database connection failed, audit persistence disabled: %v", err)
		} else if err := store.InitSchema(); err != nil {
			log.Printf("⚠️  schema initialization failed, audit persistence disabled: %v", err)
		} else {
			a.store = store
		}
	}

	// 2. Redis connection (optional — cooldown/watchlist caching only).
	fmt.Println("🧠 Connecting to Redis...")
	redisClient := cache.NewRedisClient(a.config.RedisHost, a.config.RedisPort, a.config.RedisPassword)
	if redisClient == nil {
		fmt.Println("⚠️  Redis connection failed. Shared cooldown cache disabled.")
	} else {
		a.redis = redisClient
	}

	// 3. Alert sink, gated by the shared Redis cooldown so a restart
	// doesn't immediately re-fire an alert another process already sent.
	var alertSink detector.Sink
	if a.config.Flags.DisableNotifications || a.config.Telegram.BotToken == "" {
		fmt.Println("🔕 Notifications disabled, using null sink")
		alertSink = sink.Null{}
	} else {
		alertSink = cache.NewCooldownSink(a.redis, sink.NewTelegram(a.config.Telegram.BotToken, a.config.Telegram.ChatID))
	}

	// 4. Engine, resumed from the last session snapshot if one exists.
	eng := engine.New(a.config.ToDetectorConfig(), alertSink)
	if a.config.Flags.HistoricalStatsCSV != "" {
		stats, err := historical.LoadCSV(a.config.Flags.HistoricalStatsCSV)
		if err != nil {
			log.Printf("⚠️  failed to load historical stats: %v", err)
		} else {
			eng.SetHistoricalStats(stats)
		}
	}
	if state, err := snapshot.Read(a.config.Flags.SnapshotPath); err != nil {
		log.Printf("⚠️  failed to read session snapshot: %v", err)
	} else if len(state) > 0 {
		eng.Restore(state)
		fmt.Println("🔁 resumed in-progress bars from session snapshot")
	}
	a.engine = eng

	// 5. Watchlist — cached copy from a prior run as a fallback if the
	// configured file is missing; with neither, startup fails.
	symbols, err := watchlist.Load(a.config.Flags.TickerFile)
	if err != nil {
		fmt.Printf("⚠️  ticker file unavailable (%v), falling back to cached watchlist\n", err)
		symbols = cache.LoadWatchlist(a.redis)
		if len(symbols) == 0 {
			return fmt.Errorf("no watchlist available: %w", err)
		}
	} else {
		cache.SaveWatchlist(a.redis, symbols)
	}
	fmt.Printf("📋 tracking %d symbols\n", len(symbols))

	// 6. Ingest worker.
	header := make(http.Header)
	if a.config.IngestToken != "" {
		header.Set("Authorization", "Bearer "+a.config.IngestToken)
	}
	a.worker = transport.NewWorker(a.config.IngestURL, header, a)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.worker.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.worker.RunHealthMonitor(ctx, 2*time.Minute)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.runSessionMonitor(ctx)
	}()

	err = a.gracefulShutdown(cancel)
	wg.Wait()
	return err
}

// OnTrade satisfies transport.Handler, forwarding to the engine and
// logging (never panicking on) evaluation errors.
func (a *App) OnTrade(symbol string, price float64, size int64, ts time.Time) error {
	alerts, err := a.engine.OnTrade(symbol, price, size, ts)
	if err != nil {
		log.Printf("⚠️  OnTrade error for %s: %v", symbol, err)
		return nil
	}
	if a.store != nil {
		for _, alt := range alerts {
			if err := a.store.SaveAlert(a.config.Detector.Profile, alt); err != nil {
				log.Printf("⚠️  failed to persist alert for %s: %v", symbol, err)
			}
		}
	}
	return nil
}

// OnQuote satisfies transport.Handler.
func (a *App) OnQuote(symbol string, bid, ask float64, bidSize, askSize int64, ts time.Time) error {
	return a.engine.OnQuote(symbol, bid, ask, bidSize, askSize, ts)
}

// runSessionMonitor writes a snapshot once per minute while the market
// is open and once more right after the close, so a restart resumes
// in-progress bars instead of losing partial volume.
func (a *App) runSessionMonitor(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()
	wasOpen := false
	for {
		select {
		case <-ctx.Done():
			a.writeSnapshot()
			return
		case <-ticker.C:
			_, session := clock.Classify(time.Now())
			open := session != clock.Closed
			if open || wasOpen {
				a.writeSnapshot()
			}
			wasOpen = open
		}
	}
}

func (a *App) writeSnapshot() {
	state := snapshot.Build(a.engine.Snapshot())
	if err := snapshot.Write(a.config.Flags.SnapshotPath, state); err != nil {
		log.Printf("⚠️  failed to write session snapshot: %v", err)
	}
}

// gracefulShutdown waits for SIGINT/SIGTERM, cancels ctx, and gives
// in-flight work a bounded window to stop before returning.
func (a *App) gracefulShutdown(cancel context.CancelFunc) error {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	<-interrupt
	fmt.Println("\n🛑 Shutdown signal received, initiating graceful shutdown...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		if a.worker != nil {
			_ = a.worker.Close()
		}
		if a.store != nil {
			_ = a.store.Close()
		}
		if a.redis != nil {
			_ = a.redis.Close()
		}
		close(done)
	}()

	select {
	case <-done:
		fmt.Println("✅ Shutdown complete")
		return nil
	case <-shutdownCtx.Done():
		fmt.Println("⚠️  Shutdown timed out")
		return shutdownCtx.Err()
	}
}
