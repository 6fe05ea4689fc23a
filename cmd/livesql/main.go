package main

import (
	"github.com/jessevdk/go-flags"

	"go.livesql.dev/core/cmd/livesql/livesqlcmd"
	mbp "go.livesql.dev/core/mainboilerplate"
)

func main() {
	var parser = flags.NewParser(livesqlcmd.BaseConfig, flags.Default)

	mbp.AddPrintConfigCmd(parser, livesqlcmd.IniFilename)
	parser.LongDescription = `livesql is a tool for querying and watching SQLite databases.

	See --help pages of each sub-command for documentation and usage examples.
	Optionally configure livesql with a '` + livesqlcmd.IniFilename + `' file in the current working directory,
	or with '~/.config/livesql/` + livesqlcmd.IniFilename + `'. Use the 'print-config' sub-command to inspect
	the tool's current configuration.
	`

	// Add all registered commands to the root parser.Command
	mbp.Must(livesqlcmd.CommandRegistry.AddCommands("", parser.Command, true), "could not add subcommand")

	// Parse config and start app
	mbp.MustParseConfig(parser, livesqlcmd.IniFilename)
}
