package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/shaunie2fly/shellwire/arg"
)

// ErrUnknownCommand names the case where no top-level command matches
// the first token of a line. Execute does not return it; it reports
// that case through its Result and the output sink.
var ErrUnknownCommand = errors.New("unknown command")

// Registry is an instance-scoped command tree, passed explicitly rather
// than a process-wide singleton. One Registry typically backs one shell
// engine.
type Registry struct {
	mu       sync.RWMutex
	order    []string
	commands map[string]*Command
	log      *slog.Logger
}

// New creates an empty registry. A nil logger falls back to slog.Default().
func New(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{commands: make(map[string]*Command), log: log}
}

// Register adds cmd under its top-level name. Re-registering an
// existing name overwrites it with a visible warning rather than failing.
func (r *Registry) Register(cmd *Command) {
	r.mu.Lock()
	_, existed := r.commands[cmd.Name]
	if !existed {
		r.order = append(r.order, cmd.Name)
	}
	r.commands[cmd.Name] = cmd
	r.mu.Unlock()

	if existed {
		r.log.Warn("overwriting already-registered command", "name", cmd.Name)
	}

	if cmd.Init != nil {
		if err := cmd.Init(context.Background()); err != nil {
			r.log.Error("command init failed", "name", cmd.Name, "error", err)
		}
	}
}

// Unregister removes a top-level command, best-effort invoking Cleanup.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	cmd, ok := r.commands[name]
	if ok {
		delete(r.commands, name)
		for i, n := range r.order {
			if n == name {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
	}
	r.mu.Unlock()

	if ok && cmd.Cleanup != nil {
		if err := cmd.Cleanup(context.Background()); err != nil {
			r.log.Error("command cleanup failed", "name", name, "error", err)
		}
	}
}

// TopLevel returns top-level commands in registration order.
func (r *Registry) TopLevel() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Command, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.commands[n])
	}
	return out
}

func (r *Registry) lookupTop(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.commands[name]
	return c, ok
}

// resolve walks tokens as deep as possible into the command tree,
// returning the deepest matching node, the command path taken, and the
// remaining argument tail.
func (r *Registry) resolve(tokens []string) (cmd *Command, path []string, tail []string, ok bool) {
	if len(tokens) == 0 {
		return nil, nil, nil, false
	}
	top, found := r.lookupTop(tokens[0])
	if !found {
		return nil, nil, tokens, false
	}
	cur := top
	path = []string{top.Name}
	i := 1
	for i < len(tokens) {
		next, exists := cur.Subcommand(tokens[i])
		if !exists {
			break
		}
		cur = next
		path = append(path, next.Name)
		i++
	}
	return cur, path, tokens[i:], true
}

// Execute splits line, resolves the command, parses the argument tail,
// and invokes the action — or emits help / parse errors to output.
func (r *Registry) Execute(ctx context.Context, line string, output func(string)) *Result {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return &Result{Success: true}
	}

	cmd, path, tail, ok := r.resolve(tokens)
	if !ok {
		msg := fmt.Sprintf("Unknown command %q", tokens[0])
		if best := r.bestPrefixMatch(tokens[0]); best != "" {
			msg += fmt.Sprintf(". Did you mean %q?", best)
		}
		output(msg + "\n")
		return &Result{Success: false, Error: msg}
	}

	parsed := arg.Parse(tail, cmd.Parameters)
	pathStr := strings.Join(path, " ")
	execCtx := &Context{Context: ctx, Output: output, Path: pathStr}

	if len(parsed.Errors) > 0 {
		for _, e := range parsed.Errors {
			output("  - " + e + "\n")
		}
		return &Result{Success: false, Error: strings.Join(parsed.Errors, "; ")}
	}

	if parsed.HelpRequested {
		r.WriteHelp(execCtx, cmd, path)
		return &Result{Success: true}
	}

	if cmd.Action == nil {
		r.WriteHelp(execCtx, cmd, path)
		return &Result{Success: true}
	}

	if err := cmd.Action(execCtx, parsed); err != nil {
		output("Error: " + err.Error() + "\n")
		return &Result{Success: false, Error: err.Error()}
	}
	return &Result{Success: true}
}

// bestPrefixMatch returns the top-level command name with the longest
// shared prefix with name, or "" if none share any prefix at all.
func (r *Registry) bestPrefixMatch(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	best := ""
	bestLen := 0
	for _, n := range r.order {
		l := commonPrefixLen(n, name)
		if l > 0 && l > bestLen {
			best = n
			bestLen = l
		}
	}
	return best
}

func commonPrefixLen(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}
