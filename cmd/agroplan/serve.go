package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abutispinach/agroplan/internal/agent"
	"github.com/abutispinach/agroplan/internal/gateway"
	"github.com/abutispinach/agroplan/internal/log"
	"github.com/abutispinach/agroplan/internal/observability"
)

func serveCmd(configPath *string) *cobra.Command {
	var noDashboard bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Answer /plan commands from the enabled chat gateways",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), *configPath, !noDashboard)
		},
	}
	cmd.Flags().BoolVar(&noDashboard, "no-dashboard", false, "Disable the banner and live status line")
	return cmd
}

func serve(parent context.Context, configPath string, dashboard bool) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if dashboard {
		observability.PrintBanner()
		observability.InitializeTerminal()
		defer observability.CleanupTerminal()

		// Route all log output through the terminal mutex so it never
		// interrupts the dashboard's cursor save/restore sequence.
		log.SetOutput(observability.NewTermWriter())
	}

	a, err := newApp(ctx, configPath, appOptions{events: observability.NewTermWriter(), narrate: true})
	if err != nil {
		return err
	}
	defer a.Close()

	handler := gateway.NewHandler(a.runner)
	var messengers []gateway.Messenger

	if g, ok := a.cfg.GetGateway("telegram"); ok {
		tg, err := gateway.NewTelegramGateway(g.Token, handler)
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		messengers = append(messengers, tg)
	}
	if g, ok := a.cfg.GetGateway("discord"); ok {
		dc, err := gateway.NewDiscordGateway(g.Token, handler)
		if err != nil {
			return fmt.Errorf("discord: %w", err)
		}
		messengers = append(messengers, dc)
	}
	if len(messengers) == 0 {
		return fmt.Errorf("no chat gateway is enabled: enable telegram or discord in %s", configPath)
	}

	if a.cfg.Reminders.Enabled {
		byName := make(map[string]agent.Messenger, len(messengers))
		for _, m := range messengers {
			byName[m.Name()] = m
		}
		scheduler := agent.NewScheduler(a.history, byName, a.cfg.Reminders.Interval())
		go scheduler.Start(ctx)
	}

	if dashboard {
		// Start Live Status Line (1-second updates)
		go every(ctx, time.Second, observability.PrintLiveStatus)
	}
	go every(ctx, 30*time.Second, func() {
		observability.Heartbeat()
		a.runner.Events.LogHeartbeat()
	})

	var wg sync.WaitGroup
	for _, m := range messengers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info("gateway started", "gateway", m.Name())
			if err := m.Start(ctx); err != nil {
				log.Error("gateway stopped", "gateway", m.Name(), "error", err)
				stop() // one dead gateway takes the process down
			}
		}()
	}

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info("shutting down, waiting for active runs")
	wg.Wait()
	return nil
}

func every(ctx context.Context, d time.Duration, fn func()) {
	ticker := time.NewTicker(d)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
