package livesqlcmd

import (
	"encoding/hex"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"go.livesql.dev/core/session"
	"gopkg.in/yaml.v2"
)

// OutputConfig is common configuration of commands which output rows.
type OutputConfig struct {
	Format string `long:"format" short:"o" choice:"table" choice:"yaml" default:"table" description:"Output format"`
}

func (cfg OutputConfig) write(w io.Writer, rows []session.Row) error {
	switch cfg.Format {
	case "yaml":
		return writeYAML(w, rows)
	case "table", "":
		writeTable(w, rows)
		return nil
	default:
		return errors.Errorf("unknown format %q", cfg.Format)
	}
}

func writeTable(w io.Writer, rows []session.Row) {
	if len(rows) == 0 {
		_, _ = io.WriteString(w, "(no rows)\n")
		return
	}
	var table = tablewriter.NewWriter(w)
	table.SetHeader(rows[0].Columns())

	for _, row := range rows {
		var cells = make([]string, row.Len())
		for i := range cells {
			cells[i] = row.At(i).String()
		}
		table.Append(cells)
	}
	table.Render()
}

// writeYAML writes |rows| as a YAML sequence of mappings, preserving the
// order of columns.
func writeYAML(w io.Writer, rows []session.Row) error {
	var docs = make([]yaml.MapSlice, len(rows))

	for i, row := range rows {
		docs[i] = make(yaml.MapSlice, row.Len())
		for j := range docs[i] {
			docs[i][j] = yaml.MapItem{Key: row.Column(j), Value: yamlValue(row.At(j))}
		}
	}
	var b, err = yaml.Marshal(docs)
	if err != nil {
		return errors.WithMessage(err, "encoding rows")
	}
	_, err = w.Write(b)
	return err
}

func yamlValue(v session.Value) interface{} {
	switch v.Kind() {
	case session.Integer:
		return v.Int64()
	case session.Real:
		return v.Float64()
	case session.Text:
		return v.Text()
	case session.Blob:
		return hex.EncodeToString(v.Blob())
	default:
		return nil
	}
}
