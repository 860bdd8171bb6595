// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bvkgo/kv/kvhttp"
	"github.com/bvkgo/kvbadger"
	"github.com/dgraph-io/badger/v4"
	"github.com/nightlyone/lockfile"
	"github.com/visvasity/cli"
	"github.com/visvasity/sglog"

	"github.com/bvk/floatbid/bot"
	"github.com/bvk/floatbid/config"
	"github.com/bvk/floatbid/ctxutil"
	"github.com/bvk/floatbid/daemonize"
	"github.com/bvk/floatbid/httputil"
	"github.com/bvk/floatbid/server"
	"github.com/bvk/floatbid/telegram"
)

type Run struct {
	ServerFlags

	background bool

	restart         bool
	shutdownTimeout time.Duration

	noPprof bool
	noStart bool

	configPath string
	dataDir    string
}

func (c *Run) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("run", flag.ContinueOnError)
	c.ServerFlags.SetFlags(fset)
	fset.BoolVar(&c.background, "background", false, "runs the daemon in background")
	fset.BoolVar(&c.restart, "restart", false, "when true, kills any old instance")
	fset.DurationVar(&c.shutdownTimeout, "shutdown-timeout", 30*time.Second, "max timeout for shutdown when restarting")
	fset.BoolVar(&c.noPprof, "no-pprof", false, "when true net/http/pprof handler is not registered")
	fset.BoolVar(&c.noStart, "no-start", false, "when true, account polling does not start automatically")
	fset.StringVar(&c.configPath, "config-file", "", "path to the configuration file")
	fset.StringVar(&c.dataDir, "data-dir", "", "path to the data directory")
	return "run", fset, cli.CmdFunc(c.run)
}

func (c *Run) Purpose() string {
	return "Runs the floatbid service in foreground or background"
}

func (c *Run) run(ctx context.Context, args []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(c.dataDir) == 0 {
		c.dataDir = filepath.Join(os.Getenv("HOME"), ".floatbid")
	}
	if _, err := os.Stat(c.dataDir); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("could not stat data directory %q: %w", c.dataDir, err)
		}
		if err := os.MkdirAll(c.dataDir, 0700); err != nil {
			return fmt.Errorf("could not create data directory %q: %w", c.dataDir, err)
		}
	}
	dataDir, err := filepath.Abs(c.dataDir)
	if err != nil {
		return fmt.Errorf("could not determine data-dir %q absolute path: %w", c.dataDir, err)
	}

	if len(c.configPath) == 0 {
		c.configPath = filepath.Join(dataDir, "floatbid.yaml")
	}
	cfg := new(config.Config)
	if _, err := os.Stat(c.configPath); err == nil {
		if cfg, err = config.Load(c.configPath); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("could not stat config file %q: %w", c.configPath, err)
	}

	if ip := net.ParseIP(c.ip); ip == nil {
		return fmt.Errorf("invalid ip address")
	}
	if c.port <= 0 {
		return fmt.Errorf("invalid port number")
	}
	addr := &net.TCPAddr{
		IP:   net.ParseIP(c.ip),
		Port: c.port,
	}

	// Health checker for the background process initialization. The pid
	// endpoint tells us when the child has finished its startup.
	check := func(ctx context.Context) error {
		client := http.Client{Timeout: time.Second}
		resp, err := client.Get(fmt.Sprintf("http://%s/pid", addr.String()))
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("http status: %d", resp.StatusCode)
		}
		return nil
	}

	if c.background {
		if err := daemonize.Daemonize(ctx, check); err != nil {
			return err
		}
	}

	backend := sglog.NewBackend(&sglog.Options{
		LogDirs: []string{filepath.Join(dataDir, "logs")},
	})
	defer backend.Close()
	slog.SetDefault(slog.New(backend.Handler()))

	slog.InfoContext(ctx, "using data directory", "data-dir", dataDir, "config-file", c.configPath)

	lockPath := filepath.Join(dataDir, "floatbid.lock")
	flock, err := lockfile.New(lockPath)
	if err != nil {
		return fmt.Errorf("could not create lock file %q: %w", lockPath, err)
	}
	if err := flock.TryLock(); err != nil {
		if !c.restart {
			return fmt.Errorf("could not get lock on file %q: %w", lockPath, err)
		}
		owner, err := flock.GetOwner()
		if err != nil {
			return fmt.Errorf("could not get current owner of the lock file: %w", err)
		}
		if err := owner.Signal(os.Interrupt); err == nil {
			slog.InfoContext(ctx, "waiting for the previous instance to shutdown")
			if err := ctxutil.RetryTimeout(ctx, time.Second, c.shutdownTimeout, flock.TryLock); err != nil {
				if err := owner.Signal(os.Kill); err != nil {
					return fmt.Errorf("could not kill current owner of the lock file: %w", err)
				}
				ctxutil.Sleep(ctx, time.Millisecond)
			}
		}
		if err := flock.TryLock(); err != nil {
			return fmt.Errorf("could not get lock on file %q after killing previous instance: %w", lockPath, err)
		}
	}
	defer flock.Unlock()

	// Start HTTP server.
	s, err := httputil.New(nil /* opts */)
	if err != nil {
		return err
	}
	defer s.Close()

	tcpServer, err := s.StartTCP(ctx, addr)
	if err != nil {
		return fmt.Errorf("could not start http server on %s: %w", addr, err)
	}
	defer s.Stop(tcpServer)

	if !c.noPprof {
		s.AddHandler("/debug/pprof/heap", pprof.Handler("heap"))
		s.AddHandler("/debug/pprof/goroutine", pprof.Handler("goroutine"))
		s.AddHandler("/debug/pprof/allocs", pprof.Handler("allocs"))
		s.AddHandler("/debug/pprof/block", pprof.Handler("block"))
		s.AddHandler("/debug/pprof/mutex", pprof.Handler("mutex"))
	}

	// Open the database.
	bopts := badger.DefaultOptions(dataDir)
	bdb, err := badger.Open(bopts)
	if err != nil {
		return fmt.Errorf("could not open the database: %w", err)
	}
	defer bdb.Close()
	db := kvbadger.New(bdb, isGoodKey)

	s.AddHandler("/db/", http.StripPrefix("/db", kvhttp.Handler(db)))

	// Start other services.
	b, err := bot.New(db, cfg.BotOptions())
	if err != nil {
		return err
	}

	srv := server.New(db, b)
	apiMap := srv.HandlerMap()
	for k, v := range apiMap {
		s.AddHandler(k, v)
	}
	defer func() {
		for k := range apiMap {
			s.RemoveHandler(k)
		}
	}()

	var tgc *telegram.Client
	if secrets := cfg.TelegramSecrets(); secrets != nil {
		if tgc, err = telegram.New(ctx, db, secrets, b); err != nil {
			return fmt.Errorf("could not create telegram client: %w", err)
		}
		defer tgc.Close()
	}

	if !c.noStart {
		if err := b.Start(ctx); err != nil {
			return err
		}
	}
	defer func() {
		if err := b.Stop(context.Background()); err != nil {
			slog.Error("could not stop the account poller (ignored)", "err", err)
		}
	}()

	// Wait for the signals

	slog.InfoContext(ctx, "started floatbid server", "addr", addr)
	s.AddHandler("/pid", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, fmt.Sprintf("%d", os.Getpid()))
	}))

	<-ctx.Done()
	slog.InfoContext(ctx, "floatbid server is shutting down")
	return nil
}

func isGoodKey(k string) bool {
	return path.IsAbs(k) && k == path.Clean(k)
}
