// Command demo drives A2DP stream endpoints through a scripted source
// session: open, discovery, connect, start, stream, suspend and close.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/comalice/avssm"
	"github.com/comalice/avssm/internal/core"
	"github.com/comalice/avssm/internal/extensibility"
	"github.com/comalice/avssm/internal/primitives"
	"github.com/comalice/avssm/internal/production"
)

var script = []avssm.Event{
	avssm.EvAPIOpen,
	avssm.EvSDPDiscOK,
	avssm.EvAVDTConnect,
	avssm.EvStrDiscOK,
	avssm.EvStrGetCapOK,
	avssm.EvStrOpenOK,
	avssm.EvAPStart,
	avssm.EvStrStartOK,
	avssm.EvSrcDataReady,
	avssm.EvStrWriteCfm,
	avssm.EvAPStop,
	avssm.EvStrSuspendCfm,
	avssm.EvAPIClose,
	avssm.EvAVDTDisconnect,
}

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	export := flag.String("export", "", "print the transition table as dot, json or yaml and exit")
	step := flag.Duration("step", 200*time.Millisecond, "delay between scripted events")
	flag.Parse()

	if *export != "" {
		if err := exportTable(*export); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	cfg := primitives.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = primitives.LoadConfig(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *step); err != nil {
		slog.Error("demo failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg primitives.Config, step time.Duration) error {
	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	avssm.Logger = logger

	records := make(chan primitives.TransitionRecord, 128)
	publishers := production.MultiPublisher{production.NewChannelPublisher(records)}
	if cfg.MQTT.URL != "" {
		mp, err := production.NewMQTTPublisher(cfg.MQTT, logger)
		if err != nil {
			return err
		}
		if err := mp.Open(ctx); err != nil {
			return fmt.Errorf("mqtt open: %w", err)
		}
		publishers = append(publishers, mp)
	}

	timer := extensibility.NewRoleSwitchTimer(cfg.RoleSwitchTimeout)
	defer timer.Stop()

	opts := []core.Option{
		core.WithLogger(logger),
		core.WithQueueSize(cfg.QueueSize),
		core.WithPublisher(publishers),
		core.WithEventSource(timer),
	}
	if cfg.Snapshot.Format != "" {
		p, err := production.NewPersister(cfg.Snapshot.Format, cfg.Snapshot.Dir)
		if err != nil {
			return err
		}
		opts = append(opts, core.WithPersister(p), core.WithRestore(cfg.Snapshot.Restore))
	}
	m := core.NewManager(opts...)

	endpoints := cfg.Endpoints
	if len(endpoints) == 0 {
		endpoints = []primitives.EndpointConfig{{Handle: 0x41, Peer: avssm.Address{0x00, 0x1a, 0x7d, 0xda, 0x71, 0x13}}}
	}
	for _, ep := range endpoints {
		runner := extensibility.NewRecoveringRunner(
			extensibility.NewLoggingRunner(handlers(timer), logger, slog.LevelDebug),
			logger,
		)
		session, err := m.Register(ctx, avssm.Handle(ep.Handle), ep.Peer, runner)
		if err != nil {
			m.Close()
			return err
		}
		logger.Info("endpoint registered", "peer", ep.Peer, "handle", ep.Handle, "session", session)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for rec := range records {
			fmt.Printf("%s 0x%02x %-16s %-8s -> %-8s %v\n", rec.Peer, rec.Handle, rec.Event, rec.From, rec.To, rec.Actions)
		}
	}()

	err = drive(ctx, m, step)
	if cerr := m.Close(); err == nil {
		err = cerr
	}
	<-done

	vis := &production.TableVisualizer{}
	fmt.Println(vis.ExportDOT(avssm.StreamTable(), avssm.Init))
	return err
}

func drive(ctx context.Context, m *core.Manager, step time.Duration) error {
	ticker := time.NewTicker(step)
	defer ticker.Stop()
	for _, e := range script {
		select {
		case <-ctx.Done():
			fmt.Println("\nShutting down gracefully...")
			return nil
		case <-ticker.C:
		}
		for _, h := range m.Handles() {
			if err := m.Send(h, e, nil); err != nil {
				return fmt.Errorf("send %s: %w", e, err)
			}
		}
	}
	for _, h := range m.Handles() {
		s, err := m.State(ctx, h)
		if err != nil {
			return err
		}
		slog.Info("script complete", "handle", uint8(h), "state", s)
	}
	return nil
}

// handlers are stand-ins for the signaling layer: they log, and the
// reconnect timer handler arms the role-switch countdown.
func handlers(timer *extensibility.RoleSwitchTimer) avssm.ActionTable {
	tbl := avssm.ActionTable{}
	for _, id := range avssm.Actions() {
		tbl[id] = func(*avssm.Connection, any) {}
	}
	tbl[avssm.ActStartReconnectTimer] = func(c *avssm.Connection, _ any) {
		timer.Arm(c.Handle())
	}
	tbl[avssm.ActStreamClosed] = func(c *avssm.Connection, _ any) {
		timer.Disarm(c.Handle())
	}
	tbl[avssm.ActCleanup] = tbl[avssm.ActStreamClosed]
	return tbl
}

func exportTable(format string) error {
	vis := &production.TableVisualizer{}
	tbl := avssm.StreamTable()
	switch format {
	case "dot":
		fmt.Print(vis.ExportDOT(tbl, avssm.State(avssm.NumStates)))
		return nil
	case "json", "yaml":
		var (
			data []byte
			err  error
		)
		if format == "json" {
			data, err = vis.ExportJSON(tbl)
		} else {
			data, err = vis.ExportYAML(tbl)
		}
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}
