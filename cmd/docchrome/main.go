package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docchrome/cmd/docchrome/commands"
	derrors "git.home.luguber.info/inful/docchrome/internal/foundation/errors"
	"git.home.luguber.info/inful/docchrome/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("docchrome"),
		kong.Description("Inject site chrome into rustdoc-generated HTML pages."),
		kong.UsageOnError(),
		kong.Vars{"version": version.Version},
	)

	err := parser.Run(&commands.Global{Logger: slog.Default(), Stdout: os.Stdout}, cli)
	derrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
