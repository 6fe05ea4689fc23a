package livesqlcmd

import (
	"context"

	mbp "go.livesql.dev/core/mainboilerplate"
)

type cmdQuery struct {
	ArgsConfig
	OutputConfig

	Positional struct {
		SQL string `positional-arg-name:"SQL" required:"true"`
	} `positional-args:"true"`
}

func init() {
	CommandRegistry.AddCommand("", "query", "Run a statement and print its rows", `
Run a single SQL statement and print the rows it returns.

Named placeholders of the statement are bound with --arg. Arguments which
parse as numbers are bound as INTEGER or REAL, "NULL" binds NULL, and other
arguments are bound as TEXT. Quote an argument to bind it as TEXT regardless:
>    livesql query "SELECT * FROM users WHERE id = :id" --arg id=42
>    livesql query "SELECT * FROM users WHERE name = :name" --arg "name='007'"

Placeholders without a matching --arg are bound as NULL.

Results can be output in a variety of --format options:
table: Prints rows as a table
yaml:  Prints rows as a YAML sequence of column mappings
`, &cmdQuery{})
}

func (cmd *cmdQuery) Execute([]string) error {
	var args, err = cmd.ArgsConfig.parse()
	if err != nil {
		return err
	}
	var s = startup()
	defer func() { mbp.Must(s.Close(), "failed to close session") }()

	rows, err := s.Execute(context.Background(), cmd.Positional.SQL, args)
	if err != nil {
		return err
	}
	return cmd.OutputConfig.write(stdout, rows)
}
