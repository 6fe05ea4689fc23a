package livesqlcmd

import (
	"context"
	"io"
	"os"
	"strings"

	mbp "go.livesql.dev/core/mainboilerplate"
)

type cmdExec struct {
	File string `long:"file" short:"f" default:"-" description:"Path of an SQL script to execute. Use '-' for stdin"`

	Positional struct {
		SQL []string `positional-arg-name:"SQL"`
	} `positional-args:"true"`
}

func init() {
	CommandRegistry.AddCommand("", "exec", "Execute an SQL script", `
Execute one or more SQL statements, separated by semicolons.

Statements are given as arguments, or are otherwise read from --file:
>    livesql exec "CREATE TABLE t (id INTEGER PRIMARY KEY, v TEXT)"
>    livesql exec --file schema.sql

A script is run as-is. Unless it includes explicit transaction control
(BEGIN / COMMIT), each of its statements is committed as it runs, and a
failed statement leaves the effects of statements before it in place.
`, &cmdExec{})
}

func (cmd *cmdExec) Execute([]string) error {
	var s = startup()
	defer func() { mbp.Must(s.Close(), "failed to close session") }()

	var script, err = cmd.script(os.Stdin)
	if err != nil {
		return err
	}
	return s.ExecScript(context.Background(), script)
}

func (cmd *cmdExec) script(stdin io.Reader) (string, error) {
	if len(cmd.Positional.SQL) != 0 {
		return strings.Join(cmd.Positional.SQL, ";\n"), nil
	}

	var b []byte
	var err error
	if cmd.File == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(cmd.File)
	}
	return string(b), err
}
