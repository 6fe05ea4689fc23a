package mainboilerplate

import (
	"strings"

	"github.com/jessevdk/go-flags"
)

// AddCommandFunc adds a sub-command to a parent go-flags Command.
type AddCommandFunc func(*flags.Command) error

// CommandRegistry collects AddCommandFuncs keyed on the dotted path of their
// parent command, such that a tree of commands may be declared across files
// (typically from init functions) and attached to a Parser in one go.
type CommandRegistry map[string][]AddCommandFunc

// NewCommandRegistry returns an empty CommandRegistry.
func NewCommandRegistry() CommandRegistry {
	return make(CommandRegistry)
}

// AddCommand registers a sub-command of the command at dotted |parentName|.
// The root command has the empty name, and nested commands are addressed by
// joining names with ".":
//
//	AddCommand("", "level1", ...)
//	AddCommand("level1", "level2", ...)
func (cr CommandRegistry) AddCommand(parentName, command, shortDescription, longDescription string, data interface{}) {
	cr[parentName] = append(cr[parentName], func(cmd *flags.Command) error {
		_, err := cmd.AddCommand(command, shortDescription, longDescription, data)
		return err
	})
}

// AddCommands attaches commands registered under |rootName| to |rootCmd|. If
// |recursive|, commands registered under each attached command are attached
// as well, and so on.
func (cr CommandRegistry) AddCommands(rootName string, rootCmd *flags.Command, recursive bool) error {
	for _, fn := range cr[rootName] {
		if err := fn(rootCmd); err != nil {
			return err
		}
	}
	if !recursive {
		return nil
	}

	for _, cmd := range rootCmd.Commands() {
		var name = strings.TrimPrefix(rootName+"."+cmd.Name, ".")

		if err := cr.AddCommands(name, cmd, true); err != nil {
			return err
		}
	}
	return nil
}
