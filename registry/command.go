// Package registry stores commands, resolves hierarchical command paths,
// and generates help and tab-completion suggestions
package registry

import (
	"context"
	"fmt"

	"github.com/shaunie2fly/shellwire/arg"
)

// Context is the execution context an Action receives. It carries the
// output sink the shell engine renders through, so help and error text
// flow through the same pipe as command output. Init, Cleanup and
// HealthCheck receive a plain context.Context, and ArgumentSuggestions
// receives no context.
type Context struct {
	context.Context
	Output func(chunk string)
	// Path is the resolved command path ("echo normal") for the
	// command currently executing.
	Path string
}

// Write is a convenience so callers can fmt.Fprintf(ctx, ...).
func (c *Context) Write(p []byte) (int, error) {
	c.Output(string(p))
	return len(p), nil
}

// Result is returned by Execute.
type Result struct {
	Success bool
	Error   string
}

// Action is the capability a command invokes once its arguments parse
// cleanly and help was not requested.
type Action func(ctx *Context, args *arg.ParsedArguments) error

// Lifecycle is the signature shared by Init/Cleanup/HealthCheck hooks.
type Lifecycle func(ctx context.Context) error

// ArgumentSuggestions returns candidate completions for argsSoFar/partial.
// argsSoFar is the argument tokens already typed before the token being
// completed; partial is the (possibly empty) prefix of the token under
// the cursor.
type ArgumentSuggestions func(argsSoFar []string, partial string) []string

// Command is one node in the registry tree.
type Command struct {
	Name        string
	Description string
	Parameters  []arg.ParameterDefinition

	// Subcommands preserves registration order for help tables while
	// still supporting name lookup; the name set must be unique.
	subOrder []string
	subs     map[string]*Command

	Action              Action
	Init                Lifecycle
	Cleanup             Lifecycle
	HealthCheck         Lifecycle
	ArgumentSuggestions ArgumentSuggestions
}

// NewCommand constructs a Command ready to accept subcommands.
func NewCommand(name, description string) *Command {
	return &Command{
		Name:        name,
		Description: description,
		subs:        make(map[string]*Command),
	}
}

// AddSubcommand registers a subcommand, overwriting any existing one
// with the same name (mirrors Registry.Register's overwrite policy).
func (c *Command) AddSubcommand(sub *Command) {
	if _, exists := c.subs[sub.Name]; !exists {
		c.subOrder = append(c.subOrder, sub.Name)
	}
	c.subs[sub.Name] = sub
}

// Subcommand looks up a direct child by name.
func (c *Command) Subcommand(name string) (*Command, bool) {
	sub, ok := c.subs[name]
	return sub, ok
}

// Subcommands returns children in registration order.
func (c *Command) Subcommands() []*Command {
	out := make([]*Command, 0, len(c.subOrder))
	for _, name := range c.subOrder {
		out = append(out, c.subs[name])
	}
	return out
}

// IsLeaf reports whether the command has no subcommands, i.e. it is a
// terminal command rather than a parent namespace.
func (c *Command) IsLeaf() bool {
	return len(c.subs) == 0
}

func (c *Command) String() string {
	return fmt.Sprintf("Command(%s)", c.Name)
}
