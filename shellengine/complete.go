package shellengine

import "strings"

// tabComplete queries the suggester with the text up to the cursor and
// either completes a unique match in place or lists candidates,
//
func (e *Engine) tabComplete() {
	if e.suggester == nil {
		return
	}

	runes := []rune(e.buffer)
	upToCursor := string(runes[:e.cursor])

	suggestions := e.suggester.Suggest(upToCursor)
	if len(suggestions) == 0 {
		return
	}

	// Suggestions are always reconstructed from the command path's root
	// (registry.Suggest prefixes subcommand and argument completions
	// alike with everything typed before the edited token), so the
	// replaced span always starts at the beginning of the typed text,
	// never at the last whitespace boundary.
	terminal := len(suggestions) == 1 && isTerminalCompletion(e.suggester, suggestions[0])

	if len(suggestions) == 1 {
		e.replaceTokenSpan(0, suggestions[0], terminal)
		return
	}

	e.emit("\r\n")
	e.emit(strings.Join(suggestions, "  ") + "\r\n")

	if prefix := commonPrefix(suggestions); len(prefix) > len(upToCursor) {
		e.replaceTokenSpan(0, prefix, false)
		return
	}
	e.redraw()
}

// replaceTokenSpan replaces the buffer's [tokenStart:cursor] span with
// replacement, appending a trailing space when the completion is a
// terminal (non-parent) command.
func (e *Engine) replaceTokenSpan(tokenStart int, replacement string, terminal bool) {
	runes := []rune(e.buffer)
	head := string(runes[:tokenStart])
	tail := string(runes[e.cursor:])

	newLine := head + replacement
	if terminal {
		newLine += " "
	}
	e.buffer = newLine + tail
	e.cursor = len([]rune(newLine))
	e.redraw()
}

// isTerminalCompletion reports whether completion names a leaf command
// (one with no subcommands), so tabComplete knows whether to append a
// trailing space.
func isTerminalCompletion(s Suggester, completion string) bool {
	resolver, ok := s.(interface{ IsTerminal(path string) bool })
	if !ok {
		return false
	}
	return resolver.IsTerminal(completion)
}

// commonPrefix returns the longest shared leading string of a
// non-empty suggestion set.
func commonPrefix(suggestions []string) string {
	if len(suggestions) == 0 {
		return ""
	}
	prefix := suggestions[0]
	for _, s := range suggestions[1:] {
		n := 0
		for n < len(prefix) && n < len(s) && prefix[n] == s[n] {
			n++
		}
		prefix = prefix[:n]
		if prefix == "" {
			break
		}
	}
	return prefix
}
