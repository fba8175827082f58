package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/lox/blackjackgym/cmd/blackjack/shared"
	"github.com/lox/blackjackgym/internal/auth"
	"github.com/lox/blackjackgym/internal/config"
	"github.com/lox/blackjackgym/internal/server"
)

type ServeCmd struct {
	Addr string `help:"Listen address (overrides server.address and server.port)"`
}

func (c *ServeCmd) Run(g *Globals) error {
	logger, err := g.logger()
	if err != nil {
		return err
	}
	cfg, err := g.load()
	if err != nil {
		return err
	}
	idle, err := cfg.Server.IdleTimeoutDuration()
	if err != nil {
		return err
	}
	addr := cfg.Server.Addr()
	if c.Addr != "" {
		addr = c.Addr
	}

	ctx := shared.SetupSignalHandler(logger)
	s := server.New(server.Config{
		Env:         envConfig(cfg, logger),
		IdleTimeout: idle,
		Logger:      logger,
		Auth:        validator(cfg.Server),
	})
	logger.Info("starting blackjack server",
		"addr", addr,
		"decks", cfg.Environment.NumDecks,
		"idle_timeout", idle,
		"auth", cfg.Server.AuthURL != "" || len(cfg.Server.APIKeys) > 0)

	if err := s.ListenAndServe(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

func validator(s config.ServerSettings) auth.Validator {
	switch {
	case s.AuthURL != "":
		return auth.NewHTTPValidator(s.AuthURL, s.AuthSecret)
	case len(s.APIKeys) > 0:
		return auth.NewStaticValidator(s.APIKeys...)
	default:
		return nil
	}
}
