package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/inkpost/internal/live"
	"github.com/ziadkadry99/inkpost/internal/server"
	"github.com/ziadkadry99/inkpost/internal/web"
)

const shutdownGrace = 10 * time.Second

var (
	servePort   int
	serveStrict bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the blog web server",
	Long:  `Starts the HTTP server with the blog pages, the studio, the JSON API and live updates.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if cmd.Flags().Changed("port") {
			a.cfg.Server.Port = servePort
		}

		if err := a.svc.CheckConnection(ctx, a.cfg.Connect.Retries); err != nil {
			if serveStrict {
				return err
			}
			a.log.Warn("store is not reachable, serving anyway", zap.Error(err))
		}

		hub := live.NewHub(a.log.Named("live"))
		srv := server.New(server.Config{
			Port:     a.cfg.Server.Port,
			AllowAll: a.cfg.Server.AllowAllOrigins,
		}, a.log.Named("http"), a.svc.Ping)

		h, err := web.New(a.svc, hub, a.log.Named("web"), web.Options{
			SiteTitle:     a.cfg.Site.Title,
			FeaturedCount: a.cfg.Site.FeaturedCount,
		})
		if err != nil {
			return fmt.Errorf("loading templates: %w", err)
		}
		h.RegisterRoutes(srv.Router())

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			hub.Run(gctx)
			return nil
		})
		g.Go(func() error {
			a.log.Info("inkpost server starting",
				zap.String("version", Version),
				zap.String("addr", srv.Addr()),
				zap.String("backend", string(a.cfg.Backend)))
			return srv.Start()
		})
		g.Go(func() error {
			<-gctx.Done()
			a.log.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			hub.Close()
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "port to listen on (overrides server.port)")
	serveCmd.Flags().BoolVar(&serveStrict, "strict", false, "exit when the store cannot be reached at startup")
	rootCmd.AddCommand(serveCmd)
}
