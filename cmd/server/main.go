package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	router "github.com/dkeye/parlor/internal/adapters/http"
	"github.com/dkeye/parlor/internal/config"
	"github.com/dkeye/parlor/internal/coordinator"
	"github.com/dkeye/parlor/internal/session"
	"github.com/dkeye/parlor/internal/store/memstore"
)

const releaseVersion = "0.1.0"

func main() {
	var (
		bindFlag string
		portFlag int
	)

	cmd := &cobra.Command{
		Use:           "parlor",
		Short:         "Room server for a social-deduction card game: lobbies, membership, presence.",
		Args:          cobra.ExactArgs(0),
		Version:       releaseVersion,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), bindFlag, portFlag)
		},
	}
	cmd.SetVersionTemplate("parlor v{{.Version}}\n")

	fs := cmd.Flags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	fs.StringVarP(&bindFlag, "bind", "b", "", "address to bind to (overrides config, env: PARLOR_BIND)")
	fs.IntVarP(&portFlag, "port", "p", 0, "port to listen on (overrides config, env: PARLOR_PORT)")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cobra.CheckErr(cmd.ExecuteContext(ctx))
}

func run(ctx context.Context, bindFlag string, portFlag int) error {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if bindFlag != "" {
		cfg.Bind = bindFlag
	}
	if portFlag != 0 {
		cfg.Port = portFlag
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	st := memstore.New(memstore.WithTxnAttempts(cfg.TxnAttempts))
	coord := coordinator.New(st)
	profiles := session.NewRegistry()

	go coord.RunSweeper(ctx, cfg.SweepInterval, cfg.GameOverTTL)

	r := router.SetupRouter(cfg, coord, profiles, st, releaseVersion)
	addr := net.JoinHostPort(cfg.Bind, strconv.Itoa(cfg.Port))

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Str("version", releaseVersion).Msg("parlor server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
	return nil
}
