package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/emerald-consensus/emerald/adapter"
	"github.com/emerald-consensus/emerald/adminpb"
	"github.com/emerald-consensus/emerald/assembler"
	"github.com/emerald-consensus/emerald/config"
	"github.com/emerald-consensus/emerald/consensusevents"
	"github.com/emerald-consensus/emerald/engineclient"
	"github.com/emerald-consensus/emerald/metrics"
	"github.com/emerald-consensus/emerald/registry"
	"github.com/emerald-consensus/emerald/store"
	"github.com/emerald-consensus/emerald/types"
)

func newStartCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the Emerald adapter",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "emerald.yaml", "path to the configuration file")
	return cmd
}

func runStart(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateRetention(); err != nil {
		return fmt.Errorf("invalid retention config: %w", err)
	}

	log := newLogger(cfg.LogLevel)

	jwtSecret, err := readJWTSecret(cfg.JWTSecretPath)
	if err != nil {
		return fmt.Errorf("read jwt secret: %w", err)
	}

	feeRecipient, err := parseAddress(cfg.FeeRecipient)
	if err != nil {
		return fmt.Errorf("parse fee recipient: %w", err)
	}

	retry := engineclient.RetryConfig{
		InitialDelay:   cfg.RetryInitialDelay,
		Multiplier:     cfg.RetryMultiplier,
		MaxDelay:       cfg.RetryMaxDelay,
		MaxElapsedTime: cfg.RetryMaxElapsed,
	}
	engine := engineclient.New(cfg.EngineAuthRPCAddr, cfg.ExecutionAuthRPCAddr, jwtSecret, retry)

	st, err := store.Open(cfg.ChainID, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	asm := assembler.New()
	reg := registry.New(engine)
	m := metrics.New("emerald")

	adapterCfg := adapter.Config{
		ChainID:                cfg.ChainID,
		FeeRecipient:           feeRecipient,
		CertificatePruneWindow: cfg.CertificatePruneWindow,
		BodyPruneWindow:        cfg.BodyPruneWindow,
	}
	a := adapter.New(adapterCfg, engine, st, asm, reg, m, log)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.MetricsEnabled {
		metricsServer := metrics.NewServer(cfg.MetricsAddr, m)
		metricsServer.Start()
		defer metricsServer.Stop()
		log.Info("metrics server listening", "addr", cfg.MetricsAddr)
	}

	adminServer, err := startAdminServer(a, cfg.AdminAddr, log)
	if err != nil {
		return fmt.Errorf("start admin server: %w", err)
	}
	defer adminServer.GracefulStop()

	log.Info("awaiting execution layer readiness", "addr", cfg.EngineAuthRPCAddr)
	if err := engine.AwaitReady(runCtx, cfg.SyncInitialDelay, cfg.SyncTimeout); err != nil {
		return fmt.Errorf("execution layer not ready: %w", err)
	}

	go a.Run(runCtx)

	readyEv := consensusevents.NewConsensusReady()
	if err := a.Submit(runCtx, readyEv); err != nil {
		return fmt.Errorf("submit consensus-ready: %w", err)
	}
	reply := <-readyEv.Reply
	if reply.ConsensusReadyReply.Err != nil {
		return fmt.Errorf("anchor to execution layer: %w", reply.ConsensusReadyReply.Err)
	}
	log.Info("anchored to execution layer",
		"start_height", reply.ConsensusReadyReply.StartHeight,
		"validators", len(reply.ConsensusReadyReply.ValidatorSet.Validators),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info("received signal, shutting down", "signal", sig)
	case <-runCtx.Done():
		log.Info("shutting down", "reason", runCtx.Err())
	}

	cancel()
	return nil
}

func startAdminServer(a *adapter.Adapter, addr string, log *slog.Logger) (*grpc.Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	server := grpc.NewServer(
		grpc.MaxRecvMsgSize(64*1024*1024),
		grpc.MaxSendMsgSize(64*1024*1024),
	)
	adminpb.RegisterAdminServiceServer(server, adapter.NewAdminServer(a))

	go func() {
		if err := server.Serve(listener); err != nil {
			log.Error("admin server stopped", "err", err)
		}
	}()
	log.Info("admin server listening", "addr", addr)
	return server, nil
}

func readJWTSecret(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	s := strings.TrimSpace(string(raw))
	s = strings.TrimPrefix(s, "0x")
	secret, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode hex secret: %w", err)
	}
	return secret, nil
}

func parseAddress(s string) (types.Address, error) {
	var addr types.Address
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return addr, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if len(b) != len(addr) {
		return addr, fmt.Errorf("address %q must be %d bytes, got %d", s, len(addr), len(b))
	}
	copy(addr[:], b)
	return addr, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
