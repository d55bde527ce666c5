package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"relab/internal/api"
	"relab/pkg/relab"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalogue and spectra over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().String("bind-addr", "", "listen address (env RELAB_SERVER_BIND_ADDR)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The API is live at once and answers 503 until the catalogue is loaded
	h := api.NewHandler(nil)
	e := api.NewServer(h, a.cfg.RateLimit, a.log)

	var store *relab.Store
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info("loading catalogue in background")
		t0 := time.Now()
		s, err := a.open()
		if err != nil {
			return err
		}
		store = s
		h.SetStore(s)
		a.log.Info("catalogue ready", zap.Int("rows", s.Table().Len()), zap.Duration("elapsed", time.Since(t0)))
		return nil
	})

	g.Go(func() error {
		a.log.Info("listening", zap.String("transport", "http"), zap.String("addr", a.cfg.BindAddr))
		if err := e.Start(a.cfg.BindAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return e.Shutdown(shutdown)
	})

	err := g.Wait()
	if store != nil {
		store.Close()
	}
	return err
}
