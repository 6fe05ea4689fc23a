package livesqlcmd

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	mbp "go.livesql.dev/core/mainboilerplate"
	"go.livesql.dev/core/session"
)

type cmdWatch struct {
	ArgsConfig
	OutputConfig

	Positional struct {
		SQL string `positional-arg-name:"SQL" required:"true"`
	} `positional-args:"true"`
}

func init() {
	CommandRegistry.AddCommand("", "watch", "Print the rows of a live query as they change", `
Watch a live query, printing its current rows and then printing them again
each time a transaction which changes a table the query reads is committed.

Arguments are bound as with "query". Watch runs until interrupted:
>    livesql watch "SELECT status, COUNT(*) AS n FROM jobs GROUP BY status"

Changes are observed only if they're made through this process, so watch is
chiefly useful with --debug.address for exposing metrics of a live process,
or for examples and testing.
`, &cmdWatch{})
}

func (cmd *cmdWatch) Execute([]string) error {
	defer mbp.InitDiagnosticsAndRecover(BaseConfig.Diagnostics)()

	var args, err = cmd.ArgsConfig.parse()
	if err != nil {
		return err
	}
	var s = startup()
	defer func() { mbp.Must(s.Close(), "failed to close session") }()

	var ctx, cancel = signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return cmd.watch(ctx, s, args, stdout)
}

// watch prints each result of the live query until |ctx| is cancelled.
func (cmd *cmdWatch) watch(ctx context.Context, s *session.Session, args session.Args, w io.Writer) error {
	var results, err = s.Watch(ctx, cmd.Positional.SQL, args)
	if err != nil {
		return err
	}
	var start = time.Now()
	var n int

	for rows := range results {
		n++
		fmt.Fprintf(w, "-- result %d: %s rows (%s)\n", n, humanize.Comma(int64(len(rows))),
			humanize.RelTime(start, time.Now(), "after start", "before start"))

		if err = cmd.OutputConfig.write(w, rows); err != nil {
			return err
		}
	}
	log.WithFields(log.Fields{"results": n, "elapsed": time.Since(start)}).Debug("watch stopped")
	return nil
}
