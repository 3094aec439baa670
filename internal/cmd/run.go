package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/matthieukhl/backoffice/internal/access"
	"github.com/matthieukhl/backoffice/internal/auth"
	"github.com/matthieukhl/backoffice/internal/inventory"
	"github.com/matthieukhl/backoffice/internal/logging"
	"github.com/matthieukhl/backoffice/internal/orders"
	"github.com/matthieukhl/backoffice/internal/server"
	"github.com/matthieukhl/backoffice/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the back office API server",
	Long: `Start the back office API server which provides:
- Token authentication (register, login, logout)
- Customer, product and review management
- Atomic order placement with stock reservation
- Order status updates for admins`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	fmt.Println("🚀 Backoffice Starting...")

	cfg, db, err := connect()
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Println("✅ Database connected successfully")

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	var cache auth.IdentityCache = auth.NopCache{}
	if cfg.Auth.TokenCache.Addr != "" {
		fmt.Printf("🧠 Caching tokens in redis at %s\n", cfg.Auth.TokenCache.Addr)
		cache = auth.NewRedisCache(cfg.Auth.TokenCache.Addr, "backoffice", cfg.Auth.TokenCache.TTL)
	}

	fmt.Println("⚙️  Setting up server...")
	gin.SetMode(cfg.Server.Mode)
	st := store.New(db)
	srv := server.NewServer(server.Deps{
		DB:       db,
		Store:    st,
		Accounts: auth.NewService(st, cache, logger.Named("auth")),
		Orders:   orders.NewEngine(st, inventory.NewLedger(), logger.Named("orders")),
		Linker:   access.NewLinker(st),
		Logger:   logger.Named("http"),
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("🌐 Starting server on %s...\n", cfg.Server.Addr)
	if err := srv.Start(ctx, cfg.Server.Addr, cfg.Server.ShutdownTimeout); err != nil {
		logger.Error("server failed", zap.Error(err))
		return fmt.Errorf("server failed: %w", err)
	}

	fmt.Println("👋 Server stopped")
	return nil
}
