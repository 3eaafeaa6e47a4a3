package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cybership/rating/internal/server"
	"github.com/cybership/rating/pkg/carrier"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "cybership-rating",
	Short:   "Cybership Rating - multi-carrier shipping rate quotation service",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP rating API",
	RunE:  runServe,
}

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Run a demo rate request against the configured carriers",
	RunE:  runQuote,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations for the quote and audit tables",
	RunE:  runMigrate,
}

var quoteCarrier string

func init() {
	quoteCmd.Flags().StringVar(&quoteCarrier, "carrier", "", "target a single carrier instead of rate shopping")
	rootCmd.AddCommand(serveCmd, quoteCmd, migrateCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	app, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	app.Logger.Info("Starting Cybership Rating",
		zap.Int("port", app.Config.Port),
		zap.String("version", app.Config.Version),
		zap.Strings("carriers", app.Registry.Names()),
	)

	srv := server.New(server.Config{Port: app.Config.Port}, app.Rating, app.QuoteReader(), app.Logger)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func runQuote(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	app, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	fmt.Printf("Registered carriers: %v\n\n", app.Registry.Names())

	req := sampleRateRequest()
	printJSON("Sample rate request", req)

	resp, err := app.Rating.GetRates(ctx, req, quoteCarrier)
	if err != nil {
		if issues := carrier.ValidationIssues(err); issues != nil {
			printJSON("Validation failed", issues)
			return err
		}
		return err
	}
	printJSON("Rate quotes (ascending by price)", resp)
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	app, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	if app.Storage == nil {
		return fmt.Errorf("DATABASE_URL is not set, nothing to migrate")
	}
	if err := app.Storage.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	app.Logger.Info("All migrations complete")
	return nil
}

func sampleRateRequest() *carrier.RateRequest {
	return &carrier.RateRequest{
		Origin: carrier.Address{
			Name:        "Cybership HQ",
			Street:      "123 Warehouse Blvd",
			City:        "San Francisco",
			State:       "CA",
			PostalCode:  "94105",
			CountryCode: "US",
		},
		Destination: carrier.Address{
			Name:        "Customer",
			Street:      "456 Delivery Lane",
			City:        "New York",
			State:       "NY",
			PostalCode:  "10001",
			CountryCode: "US",
		},
		Packages: []carrier.PackageInfo{
			{Weight: 5.5, Length: 12, Width: 8, Height: 6, Description: "Electronics"},
		},
	}
}

func printJSON(title string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%s: %v\n", title, v)
		return
	}
	fmt.Printf("%s:\n%s\n\n", title, data)
}
