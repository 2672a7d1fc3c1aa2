package commands

import (
	"fmt"

	"git.home.luguber.info/inful/docchrome/internal/version"
)

// VersionCmd implements the 'version' command.
type VersionCmd struct{}

func (VersionCmd) Run(g *Global) error {
	_, err := fmt.Fprintf(g.Stdout, "docchrome %s (commit %s, built %s)\n",
		version.Version, version.GitCommit, version.BuildTime)
	return err
}
