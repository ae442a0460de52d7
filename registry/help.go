package registry

import (
	"fmt"
	"strings"
)

// WriteHelp emits a help block for cmd (resolved at path) to ctx's
// output sink: one-line description, usage line, option table, and
// subcommand table
func (r *Registry) WriteHelp(ctx *Context, cmd *Command, path []string) {
	pathStr := strings.Join(path, " ")

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", cmd.Description)
	fmt.Fprintf(&b, "Usage: %s [options]", pathStr)
	if !cmd.IsLeaf() {
		fmt.Fprint(&b, " [<subcommand>]")
	}
	fmt.Fprintln(&b)

	if len(cmd.Parameters) > 0 {
		fmt.Fprintln(&b, "\nOptions:")
		for _, p := range cmd.Parameters {
			alias := "  "
			if p.Alias != 0 {
				alias = fmt.Sprintf("-%c", p.Alias)
			}
			req := ""
			if p.Required {
				req = " (required)"
			}
			fmt.Fprintf(&b, "  %s --%-16s %s%s\n", alias, p.Name, p.Description, req)
		}
	}

	if subs := cmd.Subcommands(); len(subs) > 0 {
		fmt.Fprintln(&b, "\nSubcommands:")
		for _, s := range subs {
			fmt.Fprintf(&b, "  %-18s %s\n", s.Name, s.Description)
		}
	}

	ctx.Output(b.String())
}
