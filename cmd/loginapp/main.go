// Command loginapp serves a local copy of the demo login page.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/tomatool/loginsuite/internal/loginapp"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})

	app := &cli.App{
		Name:  "loginapp",
		Usage: "Serve a login page for loginsuite to test against",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: ":8080", EnvVars: []string{"LOGINAPP_ADDR"}, Usage: "listen address"},
			&cli.StringFlag{Name: "username", Value: loginapp.Username, Usage: "accepted username"},
			&cli.StringFlag{Name: "password", Value: loginapp.Password, Usage: "accepted password"},
		},
		Action: serve,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("loginapp failed")
	}
}

func serve(c *cli.Context) error {
	server := &http.Server{
		Addr:              c.String("addr"),
		Handler:           loginapp.New(c.String("username"), c.String("password")),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", server.Addr).Msg("serving login page at /login")
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
