package livesqlcmd

import (
	"context"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	mbp "go.livesql.dev/core/mainboilerplate"
	"go.livesql.dev/core/session"
)

type cmdTables struct {
	Columns bool `long:"columns" short:"c" description:"Show the columns of each table"`
}

func init() {
	CommandRegistry.AddCommand("", "tables", "List tables of the database", `
List the tables of the database, and the number of columns of each.

Use --columns to additionally list the ordered column names of each table.
`, &cmdTables{})
}

func (cmd *cmdTables) Execute([]string) error {
	var s = startup()
	defer func() { mbp.Must(s.Close(), "failed to close session") }()

	return cmd.output(context.Background(), s, stdout)
}

func (cmd *cmdTables) output(ctx context.Context, s *session.Session, w io.Writer) error {
	var tables, err = s.Tables(ctx)
	if err != nil {
		return err
	}
	sort.Strings(tables)

	var table = tablewriter.NewWriter(w)
	var headers = []string{"Table", "Columns"}
	if cmd.Columns {
		headers = append(headers, "Names")
	}
	table.SetHeader(headers)

	for _, name := range tables {
		var columns, err = s.Columns(ctx, name)
		if err != nil {
			return err
		}
		var row = []string{name, strconv.Itoa(len(columns))}
		if cmd.Columns {
			row = append(row, strings.Join(columns, ", "))
		}
		table.Append(row)
	}
	table.Render()
	return nil
}
