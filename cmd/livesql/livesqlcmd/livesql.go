// Package livesqlcmd implements the sub-commands of the livesql tool.
package livesqlcmd

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	mbp "go.livesql.dev/core/mainboilerplate"
	"go.livesql.dev/core/session"
)

// IniFilename is the name of the livesql configuration file.
const IniFilename = "livesql.ini"

var (
	// BaseConfig is the configuration shared by all sub-commands.
	BaseConfig = new(struct {
		Session     session.Config        `group:"Session" namespace:"session" env-namespace:"SESSION"`
		Log         mbp.LogConfig         `group:"Logging" namespace:"log" env-namespace:"LOG"`
		Diagnostics mbp.DiagnosticsConfig `group:"Debug" namespace:"debug" env-namespace:"DEBUG"`
	})

	// CommandRegistry of livesql sub-commands.
	CommandRegistry = mbp.NewCommandRegistry()

	// stdout is the destination of command output.
	stdout io.Writer = os.Stdout
)

// ArgsConfig is common configuration of commands which bind statement arguments.
type ArgsConfig struct {
	Args []string `long:"arg" short:"a" description:"Statement argument as name=value, eg --arg id=42. May be repeated"`
}

// parse the ArgsConfig into session.Args. Values which parse as integers or
// floats are bound as such, and "NULL" is bound as NULL. A value may be forced
// to TEXT by quoting it, as in name='42'.
func (cfg ArgsConfig) parse() (session.Args, error) {
	var out = make(session.Args, len(cfg.Args))

	for _, arg := range cfg.Args {
		var name, value, ok = strings.Cut(arg, "=")
		name = strings.TrimLeft(name, ":@$")

		if !ok || name == "" {
			return nil, errors.Errorf("invalid argument %q (expected name=value)", arg)
		} else if _, dup := out[name]; dup {
			return nil, errors.Errorf("duplicate argument %q", name)
		}
		out[name] = parseValue(value)
	}
	return out, nil
}

func parseValue(s string) session.Value {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return session.TextValue(s[1 : len(s)-1])
	} else if s == "NULL" {
		return session.NullValue()
	} else if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return session.IntegerValue(i)
	} else if f, err := strconv.ParseFloat(s, 64); err == nil {
		return session.RealValue(f)
	}
	return session.TextValue(s)
}

// startup initializes logging and opens the configured Session.
func startup() *session.Session {
	mbp.InitLog(BaseConfig.Log)

	var s, err = session.Open(BaseConfig.Session)
	mbp.Must(err, "failed to open session", "path", BaseConfig.Session.Path)
	return s
}
