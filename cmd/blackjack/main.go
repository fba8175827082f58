package main

import (
	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Globals

	Version kong.VersionFlag `short:"v" help:"Show version"`
	Train   TrainCmd         `cmd:"" help:"Train a Monte Carlo policy"`
	Eval    EvalCmd          `cmd:"" help:"Evaluate a policy over many episodes"`
	Play    PlayCmd          `cmd:"" help:"Play interactively in the terminal"`
	Serve   ServeCmd         `cmd:"" help:"Serve environments to remote agents"`
	Info    VersionCmd       `cmd:"" name:"version" help:"Print version information"`
}

func main() {
	// a missing .env is fine
	_ = godotenv.Load()

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("blackjack"),
		kong.Description("Blackjack reinforcement learning environment"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
