package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"election-backend/api"
	"election-backend/chain"
	"election-backend/service"
	"election-backend/storage"
)

func main() {
	// Missing .env is fine; the environment may be set by the deployment.
	_ = godotenv.Load()

	var (
		addr       = flag.String("addr", envOr("LISTEN_ADDR", ":8080"), "HTTP listen address")
		dsn        = flag.String("db", envOr("DATABASE_URL", ""), "PostgreSQL DSN")
		rpcURL     = flag.String("rpc", envOr("CHAIN_RPC_URL", "http://localhost:8545"), "Ledger JSON-RPC endpoint")
		privateKey = flag.String("key", envOr("SIGNER_PRIVATE_KEY", ""), "Hex private key for the backend signing account")
		registry   = flag.String("registry", envOr("VOTER_REGISTRY_ADDRESS", ""), "VoterRegistry contract address")
		factory    = flag.String("factory", envOr("ELECTION_FACTORY_ADDRESS", ""), "ElectionFactory contract address")
		verifier   = flag.String("verifier", envOr("VOTE_VERIFIER_ADDRESS", ""), "VoteVerifier contract address")
		debug      = flag.Bool("debug", os.Getenv("DEBUG") != "", "Enable debug logging")
	)
	flag.Parse()

	log, err := newLogger(*debug)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if *dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}
	if *privateKey == "" {
		log.Fatal("SIGNER_PRIVATE_KEY is required")
	}

	store, err := storage.OpenGorm(*dsn)
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}

	client, err := chain.NewEVMClient(chain.Config{
		RPCURL:          *rpcURL,
		PrivateKeyHex:   *privateKey,
		VoterRegistry:   *registry,
		ElectionFactory: *factory,
		VoteVerifier:    *verifier,
	}, log.Named("chain"))
	if err != nil {
		log.Fatal("chain client", zap.Error(err))
	}
	log.Info("chain client ready",
		zap.String("rpc", *rpcURL),
		zap.String("account", client.Account().Hex()))

	recon := service.NewReconciler(log.Named("reconciler"))
	elections := service.NewElectionService(store, client, log.Named("elections"))
	voters := service.NewVoterService(store, client, recon, log.Named("voters"))
	votes := service.NewVoteTracker(store, client, log.Named("votes"))

	server := api.NewServer(elections, voters, votes, client, log.Named("api"))
	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", *addr))
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server stopped", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown", zap.Error(err))
	}
	// Let queued ledger reconciliations finish before the process exits.
	recon.Close()
	log.Info("bye")
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
