package cli

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"monsterlab/config"
	apphttp "monsterlab/http"
	"monsterlab/ml"
	"monsterlab/monitoring"
	"monsterlab/pipeline"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web application",
	Long: `Start the web application with its JSON API, websocket feed and metrics.

Examples:
  monsterlab serve              # Start on the configured port (default 5000)
  monsterlab serve --port 8080  # Start on port 8080`,
	RunE: runServe,
}

var servePort int

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides server.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	return invoke(func(cfg *config.Config, logger *zap.Logger, app *apphttp.App,
		provider *ml.Provider, hub *monitoring.Hub, scheduler *pipeline.Scheduler, fetch ml.FetchFunc) error {
		defer logger.Sync()

		serverConfig := apphttp.ConfigFrom(cfg.Server)
		if servePort > 0 {
			serverConfig.Port = servePort
		}

		// Create context that cancels on interrupt
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		provider.Subscribe(hub.Publish)
		if _, err := provider.LoadOrTrain(ctx, fetch); err != nil {
			// 页面/model会在第一次访问时重试
			logger.Warn("Model not ready at startup", zap.Error(err))
		}

		server := apphttp.NewServer(serverConfig, app)
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return hub.Run(ctx)
		})
		if cfg.Model.Watch {
			if err := os.MkdirAll(filepath.Dir(provider.Path()), 0o755); err != nil {
				return err
			}
			g.Go(func() error {
				return provider.Watch(ctx)
			})
		}
		g.Go(func() error {
			return scheduler.Run(ctx)
		})
		g.Go(server.Start)
		g.Go(func() error {
			<-ctx.Done()
			return server.Stop()
		})

		err := g.Wait()
		logger.Info("Server stopped")
		return err
	})
}
