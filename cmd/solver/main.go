package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/shivam123-dev/cowSolver/internal/config"
	"github.com/shivam123-dev/cowSolver/internal/oracle"
	"github.com/shivam123-dev/cowSolver/internal/solver"
	"github.com/shivam123-dev/cowSolver/pkg/logger"
)

// auctionFile is the on-disk input of one batch: the snapshot plus optional
// external price hints for the market-price strategy.
type auctionFile struct {
	solver.Snapshot
	PriceHints []oracle.PriceHint `json:"price_hints,omitempty"`
}

func main() {
	configPath := flag.String("config", "", "path to solver config file (optional)")
	auctionPath := flag.String("auction", "", "path to auction snapshot JSON")
	hintMaxAge := flag.Duration("hint-max-age", time.Minute, "freshness window for price hints")
	flag.Parse()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// Create logger
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	zapLogger, err := logger.NewLogger(logLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		zapLogger.Fatal("Failed to load configuration", zap.Error(err))
	}

	if *auctionPath == "" {
		zapLogger.Fatal("Missing required -auction flag")
	}
	auction, err := readAuction(*auctionPath)
	if err != nil {
		zapLogger.Fatal("Failed to read auction snapshot", zap.Error(err))
	}

	var po oracle.PriceOracle
	if len(auction.PriceHints) > 0 {
		po = oracle.NewStaticOracle(auction.PriceHints, *hintMaxAge)
	}

	engine, err := solver.NewEngine(cfg, zapLogger, po)
	if err != nil {
		zapLogger.Fatal("Failed to create solver engine", zap.Error(err))
	}

	zapLogger.Info("Solving batch",
		zap.Int("orders", len(auction.Orders)),
		zap.Int("pools", len(auction.Pools)))
	outcome := engine.Solve(context.Background(), auction.Snapshot)

	out, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		zapLogger.Fatal("Failed to encode outcome", zap.Error(err))
	}
	fmt.Println(string(out))

	if err := outcome.Err(); err != nil {
		zapLogger.Warn("No solution", zap.Error(err))
		os.Exit(1)
	}
}

func readAuction(path string) (*auctionFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var auction auctionFile
	if err := json.Unmarshal(data, &auction); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &auction, nil
}
