package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadscout/internal/api"
	"github.com/sells-group/leadscout/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long:  "Serves run and lead data and accepts new acquisition runs over HTTP.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort > 0 {
			cfg.Server.Port = servePort
		}

		env, err := initPipeline(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		g, gctx := errgroup.WithContext(ctx)
		launcher := &runLauncher{env: env, ctx: gctx}
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           api.NewServer(env.Store, launcher).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		err = g.Wait()
		launcher.Wait()
		return err
	},
}

// runLauncher starts acquisitions in the background for POST /runs. Runs
// share the server's lifetime context and execute one at a time, since
// they share the enrichment state and credential pool.
type runLauncher struct {
	env *pipelineEnv
	ctx context.Context
	mu  sync.Mutex
	wg  sync.WaitGroup
}

// Launch implements api.Launcher.
func (l *runLauncher) Launch(ctx context.Context, req api.RunRequest) (*model.Run, error) {
	subject, err := resolveSubject(req.Subject, req.Preset)
	if err != nil {
		return nil, eris.Wrap(api.ErrInvalidRequest, err.Error())
	}
	target := req.Target
	if target <= 0 {
		target = cfg.Pipeline.Target
	}

	run, err := l.env.Store.CreateRun(ctx, subject, target)
	if err != nil {
		return nil, eris.Wrap(err, "create run")
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.mu.Lock()
		defer l.mu.Unlock()
		if err := l.ctx.Err(); err != nil {
			l.env.fail(run.ID, err)
			return
		}
		if _, err := l.env.acquire(l.ctx, run, acquireRequest{Subject: subject, Target: target}); err != nil {
			zap.L().Error("background acquisition failed", zap.String("run_id", run.ID), zap.Error(err))
		}
	}()
	return run, nil
}

// Wait blocks until every launched run has returned.
func (l *runLauncher) Wait() {
	l.wg.Wait()
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
