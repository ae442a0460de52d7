// Package builtin provides the registry's default commands: a
// self-describing help command and an echo command with normal/reverse
// subcommands, used by the reference server/client binaries and by the
// end-to-end tests.
package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/shaunie2fly/shellwire/arg"
	"github.com/shaunie2fly/shellwire/registry"
)

// Register adds the built-in command set to reg.
func Register(reg *registry.Registry) {
	reg.Register(newHelpCommand(reg))
	reg.Register(newEchoCommand())
}

func newHelpCommand(reg *registry.Registry) *registry.Command {
	cmd := registry.NewCommand("help", "list commands, or describe one")
	cmd.Action = func(ctx *registry.Context, args *arg.ParsedArguments) error {
		if len(args.Positional) == 0 {
			for _, c := range reg.TopLevel() {
				fmt.Fprintf(ctx, "  %-16s %s\n", c.Name, c.Description)
			}
			return nil
		}
		line := strings.Join(args.Positional, " ") + " --help"
		reg.Execute(context.Background(), line, ctx.Output)
		return nil
	}
	return cmd
}

func newEchoCommand() *registry.Command {
	echo := registry.NewCommand("echo", "echo text back, as-is or reversed")

	normal := registry.NewCommand("normal", "echo the given words back as-is")
	normal.Action = func(ctx *registry.Context, args *arg.ParsedArguments) error {
		ctx.Output(strings.Join(args.Positional, " "))
		return nil
	}

	reverse := registry.NewCommand("reverse", "echo the given words back reversed")
	reverse.Action = func(ctx *registry.Context, args *arg.ParsedArguments) error {
		ctx.Output(reverseString(strings.Join(args.Positional, " ")))
		return nil
	}

	echo.AddSubcommand(normal)
	echo.AddSubcommand(reverse)
	return echo
}

func reverseString(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}
