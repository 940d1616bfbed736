package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/time/rate"

	"github.com/yndnr/shadowhome-go/internal/core/service"
	"github.com/yndnr/shadowhome-go/internal/infra/buildinfo"
	"github.com/yndnr/shadowhome-go/internal/infra/confloader"
	"github.com/yndnr/shadowhome-go/internal/infra/shutdown"
	"github.com/yndnr/shadowhome-go/internal/infra/tlsroots"
	"github.com/yndnr/shadowhome-go/internal/provider/bridge"
	"github.com/yndnr/shadowhome-go/internal/provider/software"
	"github.com/yndnr/shadowhome-go/internal/server/config"
	"github.com/yndnr/shadowhome-go/internal/server/httpserver"
	"github.com/yndnr/shadowhome-go/internal/server/httpserver/handler"
	"github.com/yndnr/shadowhome-go/internal/storage"
	"github.com/yndnr/shadowhome-go/internal/telemetry/logger"
	"github.com/yndnr/shadowhome-go/internal/telemetry/metric"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		info := buildinfo.Get()
		fmt.Printf("shadowhome-server %s (commit: %s, built: %s, %s)\n",
			info.Version, info.Commit, info.BuildTime, info.GoVersion)
		return nil
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:        cfg.Log.Level,
		Format:       cfg.Log.Format,
		Output:       os.Stderr,
		MaskIdentity: cfg.Log.IdentityMask,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	info := buildinfo.Get()
	log.Info("starting shadowhome-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", *configFile,
		"provider", cfg.Wallet.Provider)

	sh := shutdown.NewHandler(cfg.Server.ShutdownTimeout, log)
	metrics := metric.NewRegistry()

	journal, err := openJournal(cfg.Journal, metrics, log)
	if err != nil {
		return fmt.Errorf("init journal: %w", err)
	}
	if journal != nil {
		sh.OnShutdown(func(ctx context.Context) error {
			log.Info("closing journal")
			return journal.Close()
		})
	}

	locator, brg, err := buildLocator(cfg.Wallet, log)
	if err != nil {
		return fmt.Errorf("init wallet provider: %w", err)
	}
	if brg != nil {
		sh.OnShutdown(func(ctx context.Context) error {
			return brg.Close()
		})
	}

	observers := service.Observers{metrics}
	if journal != nil {
		observers = append(observers, storage.NewRecorder(journal, log))
	}
	session := service.NewWalletSession(locator,
		&service.WalletConfig{
			CallTimeout:       cfg.Wallet.CallTimeout,
			ChallengeGreeting: cfg.Wallet.ChallengeGreeting,
		},
		service.WithLogger(log),
		service.WithObserver(observers),
	)
	sh.OnShutdown(func(ctx context.Context) error {
		log.Info("closing wallet session")
		return session.Close()
	})
	if cfg.Metrics.Enabled {
		if err := metrics.Registerer().Register(metric.NewCollector(session.Snapshot)); err != nil {
			return fmt.Errorf("register session collector: %w", err)
		}
	}

	hcfg := handler.Config{
		Wallet:            session,
		Locator:           locator,
		Metrics:           metrics,
		Logger:            log,
		ChallengeGreeting: cfg.Wallet.ChallengeGreeting,
		StreamOrigins:     cfg.Server.HTTP.CORSAllowedOrigins,
	}
	if journal != nil {
		hcfg.Journal = journal
	}

	rcfg := httpserver.DefaultRouterConfig()
	rcfg.Handler = handler.New(hcfg)
	rcfg.Logger = log
	rcfg.AuthToken = cfg.Server.HTTP.AuthToken
	rcfg.CORSAllowedOrigins = cfg.Server.HTTP.CORSAllowedOrigins
	rcfg.RateLimiter = nil
	if rl := cfg.Server.HTTP.RateLimit; rl.Enabled {
		rcfg.RateLimiter = httpserver.NewRateLimiter(rl.RPS, rl.Burst)
	}
	if brg != nil {
		rcfg.Bridge = brg
	}
	rcfg.Metrics = nil
	if cfg.Metrics.Enabled {
		rcfg.Metrics = metrics
		rcfg.MetricsPath = cfg.Metrics.Path
	}

	watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return fmt.Errorf("init config watcher: %w", err)
	}

	opts := []httpserver.Option{httpserver.WithLogger(log)}
	if cfg.Server.HTTP.TLSCertFile != "" {
		kp, err := tlsroots.LoadKeyPair(cfg.Server.HTTP.TLSCertFile, cfg.Server.HTTP.TLSKeyFile, log)
		if err != nil {
			return fmt.Errorf("load tls key pair: %w", err)
		}
		if err := kp.Watch(watcher); err != nil {
			log.Warn("certificate hot reload disabled", "error", err)
		}
		opts = append(opts, httpserver.WithTLS(kp))
	}
	if *configFile != "" {
		if err := watchLogLevel(watcher, *configFile, log); err != nil {
			log.Warn("config hot reload disabled", "error", err)
		}
	}
	watcher.StartAsync()
	sh.OnShutdown(func(ctx context.Context) error {
		return watcher.Stop()
	})

	srv := httpserver.New(cfg.Server.HTTP.Addr, httpserver.NewRouter(rcfg), opts...)
	sh.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return srv.Shutdown(ctx)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "addr", cfg.Server.HTTP.Addr, "tls", srv.TLS())
		if err := srv.ListenAndServe(); err != nil {
			serveErr <- err
			stop()
		}
	}()

	log.Info("server started, press Ctrl+C to stop")
	err = sh.WaitContext(ctx)
	select {
	case serr := <-serveErr:
		log.Error("HTTP server error", "error", serr)
		return errors.Join(serr, err)
	default:
	}
	if err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig loads configuration from file and environment.
func loadConfig(configFile string) (*config.ServerConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}
	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openJournal returns nil when the journal is disabled. An empty data dir
// keeps entries in memory.
func openJournal(cfg config.JournalSection, metrics *metric.Registry, log logger.Logger) (storage.Journal, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.DataDir == "" {
		return storage.NewMemoryJournal(cfg.MaxEntries), nil
	}

	bcfg := storage.DefaultBadgerConfig(cfg.DataDir)
	bcfg.MaxEntries = cfg.MaxEntries
	j, err := storage.OpenBadgerJournal(bcfg, log)
	if err != nil {
		return nil, err
	}
	if err := j.RegisterMetrics(metrics.Registerer()); err != nil {
		j.Close()
		return nil, err
	}
	return j, nil
}

// buildLocator returns the provider locator for the configured wallet. The
// bridge is also returned so it can be mounted and closed.
func buildLocator(cfg config.WalletSection, log logger.Logger) (service.Locator, *bridge.Bridge, error) {
	switch cfg.Provider {
	case config.ProviderBridge:
		b := bridge.New(bridge.Config{
			OriginAllowlist: cfg.Bridge.OriginAllowlist,
			RequestTimeout:  cfg.Bridge.RequestTimeout,
		}, log)
		return b, b, nil

	case config.ProviderNone:
		return service.LocatorFunc(func() (service.Provider, bool) { return nil, false }), nil, nil

	default:
		approver := software.RejectAll()
		if cfg.Software.AutoApprove {
			approver = software.AutoApprove()
		}
		opts := []software.Option{
			software.WithApprover(approver),
			software.WithSignRate(rate.Limit(cfg.Software.SignRate), cfg.Software.SignBurst),
			software.WithLogger(log),
		}

		var (
			w   *software.Wallet
			err error
		)
		if cfg.Software.KeystoreFile != "" {
			w, err = software.LoadKeystore(cfg.Software.KeystoreFile, []byte(cfg.Software.Passphrase), opts...)
		} else {
			log.Warn("no keystore configured, using a throwaway account")
			w, err = software.Generate(1, opts...)
		}
		if err != nil {
			return nil, nil, err
		}
		for i, id := range w.Accounts() {
			log.Info("software wallet account", "index", i, "identity", id.String())
		}
		return service.StaticLocator(w), nil, nil
	}
}

// watchLogLevel re-reads the config file on change and applies a new log
// level. Other settings need a restart.
func watchLogLevel(w *confloader.Watcher, path string, log logger.Logger) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Watch(path); err != nil {
		return err
	}

	w.OnChange(func(changed string) {
		if changed != abs {
			return
		}
		cfg, err := loadConfig(path)
		if err != nil {
			log.Error("config reload failed", "error", err)
			return
		}
		if before := logger.GetLevel(); logger.SetLevel(cfg.Log.Level) == nil && logger.GetLevel() != before {
			log.Info("log level changed", "from", before, "to", logger.GetLevel())
		}
		logger.SetIdentityMask(cfg.Log.IdentityMask)
	})
	return nil
}
