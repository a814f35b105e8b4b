package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"

	"github.com/broady/openfetch/cmd/openfetch/internal/check"
	"github.com/broady/openfetch/cmd/openfetch/internal/clean"
	"github.com/broady/openfetch/cmd/openfetch/internal/gen"
)

type CLI struct {
	Verbose bool `help:"Log cache activity and other debug output." short:"v"`

	Version VersionCmd `cmd:"" help:"Print version information."`
	Gen     gen.Cmd    `cmd:"" help:"Generate TypeScript clients from OpenAPI schemas."`
	Check   check.Cmd  `cmd:"" help:"Resolve and compile every schema without writing output files."`
	Clean   clean.Cmd  `cmd:"" help:"Remove cached schema artifacts."`
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(Version())
	return nil
}

func main() {
	cli := &CLI{}
	kctx := kong.Parse(cli,
		kong.Name("openfetch"),
		kong.Description("Generate typed fetch clients from OpenAPI schemas."),
		kong.UsageOnError(),
	)

	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	kctx.BindTo(ctx, (*context.Context)(nil))
	kctx.Bind(logger)
	err := kctx.Run()
	kctx.FatalIfErrorf(err)
}
