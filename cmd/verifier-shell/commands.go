package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	llmsverifier "github.com/vasic-digital/LLMsVerifier"
	"github.com/vasic-digital/LLMsVerifier/internal/logger"
	"github.com/vasic-digital/LLMsVerifier/pkg/client"
)

func runServe(flags *ServeFlags) error {
	if flags.ConfigPath == "" {
		return fmt.Errorf("config file required; use --config=shell.toml or provide it as an argument")
	}
	cfg, err := llmsverifier.LoadConfig(flags.ConfigPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	log := logger.NewShellLogger(os.Stderr, slog.LevelInfo, os.Getenv("NO_COLOR") == "")
	slog.SetDefault(log)

	opts := []llmsverifier.Option{llmsverifier.WithLogger(log)}
	if cfg.History.DSN != "" {
		sink, err := llmsverifier.NewSinkFromDSN(cfg.History.DSN)
		if err != nil {
			return fmt.Errorf("history sink %s: %w", cfg.History.DSN, err)
		}
		opts = append(opts, llmsverifier.WithSinks(sink))
	}

	sup, err := llmsverifier.New(cfg.Backend, opts...)
	if err != nil {
		return err
	}

	mountMetrics := false
	if cfg.Metrics.Enabled {
		if err := llmsverifier.RegisterMetricsDefault(); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		if cfg.Metrics.Listen != "" {
			ms := llmsverifier.ServeMetrics(cfg.Metrics.Listen)
			defer func() { _ = ms.Close() }()
			log.Info("metrics listening", "addr", cfg.Metrics.Listen)
		} else {
			mountMetrics = true
		}
	}

	srv := llmsverifier.NewHTTPServer(cfg.Server.Listen, cfg.Server.BasePath, sup, mountMetrics)
	log.Info("command surface listening", "addr", cfg.Server.Listen, "base_path", cfg.Server.BasePath)

	if flags.StartBackend {
		ep, err := sup.Start(context.Background())
		if err != nil {
			log.Error("initial backend start failed", "error", err)
		} else {
			log.Info("backend started", "endpoint", ep.String())
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutting down", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("http server shutdown", "error", err)
	}
	// Terminates the backend; the child never outlives the shell.
	return sup.Shutdown(ctx)
}

func newClient(flags APIFlags) *client.Client {
	return client.New(client.Config{
		BaseURL: flags.APIUrl,
		Timeout: flags.APITimeout,
	})
}

func runStart(flags APIFlags) error {
	c := newClient(flags)
	ep, err := c.StartBackend(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("backend started on %s:%d\n", ep.Host, ep.Port)
	return nil
}

func runStop(flags StopFlags) error {
	c := newClient(flags.APIFlags)
	wait := flags.Wait
	if flags.NoWait {
		wait = 0
	}
	if err := c.StopBackend(context.Background(), wait); err != nil {
		return err
	}
	if flags.NoWait {
		fmt.Println("backend stop initiated")
	} else {
		fmt.Println("backend stopped")
	}
	return nil
}

func runStatus(flags APIFlags) error {
	c := newClient(flags)
	st, err := c.Status(context.Background())
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
