package registry

import "strings"

// Suggest implements the tab-completion algorithm: it
// navigates as deep as possible into the command tree and returns an
// ordered list of completion strings for the text typed so far.
func (r *Registry) Suggest(input string) []string {
	endsWithSpace := len(input) > 0 && isSpaceByte(input[len(input)-1])
	tokens := strings.Fields(input)

	if endsWithSpace {
		resolved, path, tail := r.navigate(tokens)
		if resolved != nil && resolved.ArgumentSuggestions != nil {
			if sugg := resolved.ArgumentSuggestions(tail, ""); len(sugg) > 0 {
				return prefixNames(append(append([]string(nil), path...), tail...), sugg)
			}
		}
		return prefixNames(path, subNamesOf(r, resolved))
	}

	partial := ""
	var before []string
	if len(tokens) > 0 {
		partial = tokens[len(tokens)-1]
		before = tokens[:len(tokens)-1]
	}
	resolved, path, argsBeforePartial := r.navigate(before)

	if filtered := filterPrefix(subNamesOf(r, resolved), partial); len(filtered) > 0 {
		return prefixNames(path, filtered)
	}

	if resolved != nil && resolved.ArgumentSuggestions != nil {
		sugg := resolved.ArgumentSuggestions(argsBeforePartial, partial)
		if filtered := filterPrefix(sugg, partial); len(filtered) > 0 {
			return prefixNames(append(append([]string(nil), path...), argsBeforePartial...), filtered)
		}
	}

	if resolved == nil {
		return filterPrefix(subNamesOf(r, nil), partial)
	}

	return nil
}

// IsTerminal reports whether the command named by the whitespace-joined
// path resolves to a leaf command (no subcommands). It is used by
// shellengine to decide whether a completed command name should get a
// trailing space appended.
func (r *Registry) IsTerminal(path string) bool {
	cmd, _, tail, ok := r.resolve(strings.Fields(path))
	if !ok || len(tail) > 0 {
		return false
	}
	return cmd.IsLeaf()
}

// navigate walks tokens as deep as possible into the command tree,
// exactly like Registry.resolve, but tolerates an empty or
// non-matching token list by returning a nil resolved command meaning
// "the virtual root", rather than failing.
func (r *Registry) navigate(tokens []string) (resolved *Command, path []string, tail []string) {
	if len(tokens) == 0 {
		return nil, nil, nil
	}
	top, found := r.lookupTop(tokens[0])
	if !found {
		return nil, nil, tokens
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
	return cur, path, tokens[i:]
}

// subNamesOf returns the child names of cmd, or the top-level command
// names when cmd is nil (the virtual root).
func subNamesOf(r *Registry, cmd *Command) []string {
	if cmd == nil {
		r.mu.RLock()
		defer r.mu.RUnlock()
		return append([]string(nil), r.order...)
	}
	names := make([]string, 0, len(cmd.subOrder))
	for _, s := range cmd.Subcommands() {
		names = append(names, s.Name)
	}
	return names
}

func filterPrefix(names []string, prefix string) []string {
	if prefix == "" {
		return append([]string(nil), names...)
	}
	var out []string
	for _, n := range names {
		if strings.HasPrefix(n, prefix) {
			out = append(out, n)
		}
	}
	return out
}

func prefixNames(path []string, names []string) []string {
	if len(path) == 0 {
		return names
	}
	prefix := strings.Join(path, " ") + " "
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = prefix + n
	}
	return out
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t'
}

// CommonPrefix returns the longest shared leading string of a non-empty
// suggestion set, used by callers to implement partial autocomplete.
func CommonPrefix(suggestions []string) string {
	if len(suggestions) == 0 {
		return ""
	}
	prefix := suggestions[0]
	for _, s := range suggestions[1:] {
		prefix = commonPrefixString(prefix, s)
		if prefix == "" {
			break
		}
	}
	return prefix
}

func commonPrefixString(a, b string) string {
	n := commonPrefixLen(a, b)
	return a[:n]
}
