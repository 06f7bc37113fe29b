// Command rialto runs the activity and stratagem execution engine for the
// merchant republic simulation.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"rialto/internal/activity"
	"rialto/internal/api"
	"rialto/internal/config"
	"rialto/internal/ledger"
	"rialto/internal/model"
	"rialto/internal/notify"
	"rialto/internal/oracle"
	"rialto/internal/relations"
	"rialto/internal/store"
	"rialto/internal/stratagem"
	"rialto/internal/ticker"
	"rialto/internal/travel"
)

var configPath string

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	root := &cobra.Command{
		Use:   "rialto",
		Short: "Activity and stratagem execution engine",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "rialto.yml", "config file path")

	root.AddCommand(serveCmd(), reconcileCmd(), ledgerCmd(), seedCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// openStore loads config and opens the SQLite store.
func openStore() (*config.Config, *store.SQLite, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		os.MkdirAll(dir, 0755)
	}
	db, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return cfg, db, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the ticker and HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()
			slog.Info("database opened", "path", cfg.DBPath)

			led := ledger.New(db, db)

			// Complete or void anything a previous crash left pending.
			grace := time.Duration(cfg.Policy.ReconcileAfterMinutes) * time.Minute
			report, err := led.Reconcile(grace)
			if err != nil {
				slog.Error("startup reconcile failed", "error", err)
			} else if report.Scanned > 0 {
				slog.Info("startup reconcile",
					"scanned", report.Scanned, "completed", report.Completed,
					"voided", report.Voided, "stuck", report.Stuck)
			}

			notifier := notify.New(db)
			book := relations.New(db)
			planner := travel.NewCanalPlanner(cfg.Travel.Seed, cfg.Travel.BaseSpeed, cfg.Travel.WaypointEvery)

			creator := &activity.Creator{
				Citizens:   db,
				Buildings:  db,
				Contracts:  db,
				Activities: db,
				Planner:    planner,
				Policy:     cfg.Policy,
			}
			processor := &activity.Processor{
				Citizens:   db,
				Buildings:  db,
				Contracts:  db,
				Activities: db,
				Ledger:     led,
				Notifier:   notifier,
				Relations:  book,
				Policy:     cfg.Policy,
			}
			stratCrea := &stratagem.Creator{
				Citizens:   db,
				Stratagems: db,
				Policy:     cfg.Policy,
			}
			stratProc := &stratagem.Processor{
				Citizens:   db,
				Stratagems: db,
				Ledger:     led,
				Notifier:   notifier,
				Relations:  book,
				Policy:     cfg.Policy,
			}

			driver := &ticker.Driver{
				Activities: db,
				Stratagems: db,
				Processor:  processor,
				StratProc:  stratProc,
				Interval:   time.Duration(cfg.Ticker.IntervalSeconds) * time.Second,
			}

			adminKey := os.Getenv("RIALTO_ADMIN_KEY")
			if adminKey == "" {
				slog.Warn("RIALTO_ADMIN_KEY not set, admin POST endpoints will be disabled")
			}
			server := &api.Server{
				Store:     db,
				Creator:   creator,
				Ledger:    led,
				StratCrea: stratCrea,
				StratProc: stratProc,
				Port:      cfg.APIPort,
				AdminKey:  adminKey,
			}
			server.Start()

			// The oracle proposes intents for idle citizens when a key is
			// present; without one the engine only executes external triggers.
			var advisor *oracle.Advisor
			var pool *oracle.Pool
			if client := oracle.NewClient(os.Getenv("ANTHROPIC_API_KEY"), cfg.Oracle); client.Enabled() {
				pool = oracle.NewPool(&oracle.LLMOracle{Client: client}, 2)
				advisor = &oracle.Advisor{
					Citizens:   db,
					Activities: db,
					Creator:    creator,
					Pool:       pool,
					Interval:   5 * time.Minute,
					Treasury:   cfg.Policy.TreasuryAccount,
				}
				go advisor.Run()
			} else {
				slog.Warn("ANTHROPIC_API_KEY not set, oracle advisor disabled")
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				sig := <-sigCh
				slog.Info("received signal, shutting down", "signal", sig)
				if advisor != nil {
					advisor.Stop()
					pool.Close()
				}
				driver.Stop()
			}()

			fmt.Printf("Rialto engine running. API: http://localhost:%d/api/v1/status\n", cfg.APIPort)
			fmt.Println("Ctrl+C to stop.")
			driver.Run()
			return nil
		},
	}
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Resolve transactions left pending by a crash",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			led := ledger.New(db, db)
			report, err := led.Reconcile(0)
			if err != nil {
				return err
			}
			fmt.Printf("scanned %d pending: %d completed, %d voided, %d stuck\n",
				report.Scanned, report.Completed, report.Voided, report.Stuck)
			return nil
		},
	}
}

func ledgerCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Show recent ledger transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			txs, err := db.RecentTransactions(limit)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"ID", "Type", "Payer", "Payee", "Amount", "Status", "Created"})
			for _, tx := range txs {
				t.AppendRow(table.Row{
					tx.ID[:8], tx.Type, tx.Payer, tx.Payee, tx.Amount,
					tx.Status, tx.CreatedAt.Format(time.RFC3339),
				})
			}
			t.SetStyle(table.StyleLight)
			t.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 25, "number of transactions to show")
	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Populate the database with a demo district",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			now := time.Now().UTC()
			citizens := []*model.Citizen{
				{Username: cfg.Policy.TreasuryAccount, Name: "Republic Treasury", Ducats: 0, CreatedAt: now},
				{Username: "marco", Name: "Marco Bellini", Ducats: 10000,
					Position: &model.Position{X: 120, Y: 340}, HomeBuilding: "casa_bellini", CreatedAt: now},
				{Username: "lucia", Name: "Lucia Contarini", Ducats: 4500,
					Position: &model.Position{X: 410, Y: 95}, HomeBuilding: "casa_contarini", CreatedAt: now},
				{Username: "pietro", Name: "Pietro Dandolo", Ducats: 800,
					Position: &model.Position{X: 260, Y: 220}, CreatedAt: now},
			}
			for _, c := range citizens {
				if err := db.PutCitizen(c); err != nil {
					return fmt.Errorf("seed citizen %s: %w", c.Username, err)
				}
			}

			buildings := []*model.Building{
				{ID: "casa_bellini", Name: "Casa Bellini", Category: model.CategoryHome,
					Owner: "marco", Occupant: "marco", Position: model.Position{X: 120, Y: 340}},
				{ID: "casa_contarini", Name: "Casa Contarini", Category: model.CategoryHome,
					Owner: "lucia", Occupant: "lucia", Position: model.Position{X: 410, Y: 95}},
				{ID: "parcel_rialto_7", Name: "Rialto Parcel 7", Category: model.CategoryLand,
					Owner: "lucia", Position: model.Position{X: 300, Y: 180}},
				{ID: "bottega_dandolo", Name: "Bottega Dandolo", Category: model.CategoryBusiness,
					Owner: "lucia", Occupant: "pietro", RunBy: "pietro",
					Position: model.Position{X: 265, Y: 210}, RentPrice: 40},
			}
			for _, b := range buildings {
				if err := db.PutBuilding(b); err != nil {
					return fmt.Errorf("seed building %s: %w", b.ID, err)
				}
			}

			contract := &model.Contract{
				ID: "sale_parcel_rialto_7", Type: model.ContractLandSale,
				Seller: "lucia", Asset: "parcel_rialto_7", PricePerUnit: 1000,
				Status: model.ContractActive, CreatedAt: now,
				EndAt: now.Add(time.Duration(cfg.Policy.ListingDurationHours) * time.Hour),
			}
			if err := db.CreateContract(contract); err != nil {
				return fmt.Errorf("seed contract: %w", err)
			}

			fmt.Printf("seeded %d citizens, %d buildings, 1 land sale contract\n",
				len(citizens), len(buildings))
			return nil
		},
	}
}
