package livesqlcmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	mbp "go.livesql.dev/core/mainboilerplate"
	"go.livesql.dev/core/session"
)

type cmdInfo struct {
	CompileOptions bool `long:"compile-options" description:"Also list the compile-time options of the SQLite library"`
}

func init() {
	CommandRegistry.AddCommand("", "info", "Describe the database and SQLite library", `
Describe the database file and the capabilities of the linked SQLite library.

Capabilities include whether the library supports JSON functions, and
whether live queries (see "watch") are supported. Live queries require
that the library was built without SQLITE_OMIT_AUTHORIZATION.
`, &cmdInfo{})
}

func (cmd *cmdInfo) Execute([]string) error {
	var s = startup()
	defer func() { mbp.Must(s.Close(), "failed to close session") }()

	return cmd.output(context.Background(), s, BaseConfig.Session.Path, stdout)
}

func (cmd *cmdInfo) output(ctx context.Context, s *session.Session, path string, w io.Writer) error {
	var version, err = s.UserVersion(ctx)
	if err != nil {
		return err
	}
	var size = "unknown"
	if fi, err := os.Stat(path); err == nil {
		size = humanize.IBytes(uint64(fi.Size()))
	}

	var table = tablewriter.NewWriter(w)
	table.SetHeader([]string{"Property", "Value"})
	table.Append([]string{"Path", path})
	table.Append([]string{"Size", size})
	table.Append([]string{"User Version", strconv.FormatInt(version, 10)})
	table.Append([]string{"JSON", fmt.Sprint(s.SupportsJSON())})
	table.Append([]string{"Live Queries", fmt.Sprint(s.CanObserve())})

	if cmd.CompileOptions {
		table.Append([]string{"Compile Options", strings.Join(s.CompileOptions(), "\n")})
	}
	table.Render()
	return nil
}
