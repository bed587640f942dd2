// Package main provides the CLI tool for the citysnap-gateway.
//
// Run with: go run ./cmd/cli lookup --address "Nevsky Prospekt 28, Saint Petersburg"
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fleveque/citysnap-gateway/internal/config"
	"github.com/fleveque/citysnap-gateway/internal/llm"
	"github.com/fleveque/citysnap-gateway/internal/model"
	"github.com/fleveque/citysnap-gateway/internal/provider"
	"github.com/fleveque/citysnap-gateway/internal/service"
	"github.com/fleveque/citysnap-gateway/internal/storage"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// rootCmd builds the command tree:
// citysnap-cli lookup --address "..." [--lat 59.93 --lon 30.32] [--photo house.jpg]
// citysnap-cli history --limit 20
func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "citysnap-cli",
		Short: "CitySnap gateway CLI tools",
	}

	root.AddCommand(lookupCmd())
	root.AddCommand(historyCmd())
	return root
}

func lookupCmd() *cobra.Command {
	var (
		address  string
		lat, lon float64
		photo    string
		noRecord bool
	)

	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Resolve a building and print its profile as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := model.BuildingInfoRequest{Address: address}
			if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon") {
				req.Coordinates = &model.Coordinates{Lat: lat, Lon: lon}
			}
			if photo != "" {
				data, err := os.ReadFile(photo)
				if err != nil {
					return fmt.Errorf("reading photo: %w", err)
				}
				req.ImageBase64 = base64.StdEncoding.EncodeToString(data)
			}
			return runLookup(cmd.Context(), req, !noRecord)
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "Free-text address to geocode")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude for reverse geocoding")
	cmd.Flags().Float64Var(&lon, "lon", 0, "Longitude for reverse geocoding")
	cmd.Flags().StringVar(&photo, "photo", "", "Path to a photo of the building")
	cmd.Flags().BoolVar(&noRecord, "no-record", false, "Do not write the lookup to the history database")
	return cmd
}

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the most recent lookups",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of lookups to show")
	return cmd
}

func runLookup(parent context.Context, req model.BuildingInfoRequest, record bool) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signalContext(parent)
	defer cancel()

	var (
		history  service.LookupRecorder
		recorder llm.CallRecorder
	)
	if record && cfg.Storage.DatabasePath != "" {
		db, err := storage.NewDatabase(cfg.Storage.DatabasePath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()
		history = storage.NewLookupRepository(db)
		recorder = storage.NewLLMCallRepository(db)
	}

	images, err := storage.NewImageStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("creating image store: %w", err)
	}

	var querier service.LLMQuerier
	facade, err := llm.Build(ctx, cfg.LLM, recorder, logger)
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		logger.Info("no LLM provider configured, enrichment disabled")
	case err != nil:
		return fmt.Errorf("configuring LLM providers: %w", err)
	default:
		querier = facade
	}

	svc := service.NewBuildingService(
		provider.NewNominatimClient(cfg.Geocoding, logger),
		provider.NewOSMClient(cfg.BuildingData, logger),
		images,
		service.NewLLMEnricher(querier, cfg.LLM.RatePerMinute, logger),
		history,
		logger,
	)

	resp, err := svc.Build(ctx, req)
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func runHistory(parent context.Context, limit int) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Storage.DatabasePath == "" {
		return fmt.Errorf("storage.database_path is not configured")
	}
	if limit < 1 {
		return fmt.Errorf("limit must be a positive integer")
	}

	db, err := storage.NewDatabase(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	lookups, err := storage.NewLookupRepository(db).ListRecent(parent, limit)
	if err != nil {
		return fmt.Errorf("listing lookups: %w", err)
	}
	return printJSON(lookups)
}

// setup loads config and creates a development logger on stderr, keeping
// stdout clean for the JSON output.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(os.Getenv("CITYSNAP_CONFIG_PATH"))
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, nil, fmt.Errorf("creating logger: %w", err)
	}
	return cfg, logger, nil
}

// signalContext cancels on Ctrl+C so in-flight upstream calls stop.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
