// Package shellengine implements the line-editor state machine described
// in spec.md §4.4: it turns raw input bytes into buffer edits, history
// navigation, tab completion, and line submissions, delegating both
// command execution and rendered output to pluggable collaborators so
// the same engine runs unmodified locally or behind a server session.
package shellengine

import (
	"fmt"
	"strings"
)

// InputProcessor is invoked with a completed, trimmed command line.
type InputProcessor func(line string)

// OutputSink is invoked with an opaque chunk of bytes destined for the
// user's terminal.
type OutputSink func(chunk string)

// Suggester resolves tab-completion candidates for the text typed so
// far, matching registry.Registry.Suggest's signature without importing
// the registry package (the engine must not depend on the dispatcher
// it happens to be wired to).
type Suggester interface {
	Suggest(input string) []string
}

// Engine holds line-editor state and interprets raw input bytes per
// spec.md §4.4's escape-sequence state machine.
type Engine struct {
	buffer string
	cursor int

	history      []string
	historyIndex int
	tempBuffer   string

	prompt    string
	suggester Suggester

	inputProcessor InputProcessor
	outputSink     OutputSink
	running        bool

	esc       escapeState
	csiParams []byte

	onStop []func()
}

type escapeState int

const (
	stateGround escapeState = iota
	stateGotEsc
	stateInCSI
)

// New constructs an Engine with the given prompt and (optional) tab
// completion source. Call Start before feeding it input bytes.
func New(prompt string, suggester Suggester) *Engine {
	return &Engine{
		prompt:       prompt,
		suggester:    suggester,
		historyIndex: -1,
	}
}

// Start marks the engine running, wires its collaborators, and emits a
// welcome message followed by the initial prompt.
func (e *Engine) Start(inputProcessor InputProcessor, outputSink OutputSink) {
	e.inputProcessor = inputProcessor
	e.outputSink = outputSink
	e.running = true
	e.emit("Welcome. Type a command, or `help`.\r\n")
	e.redraw()
}

// Stop emits a termination message, marks the engine stopped, and notifies
// any registered stop hooks (a server session uses this to tear itself, or
// in shared-shell mode every session, down). It is idempotent: hooks never
// fire more than once.
func (e *Engine) Stop() {
	if !e.running {
		return
	}
	e.running = false
	e.emit("\r\nSession terminated.\r\n")
	for _, fn := range e.onStop {
		fn()
	}
}

// OnStop registers a callback invoked once when Stop is called.
func (e *Engine) OnStop(fn func()) {
	e.onStop = append(e.onStop, fn)
}

// Running reports whether Start has been called without a matching Stop.
func (e *Engine) Running() bool {
	return e.running
}

// Prompt returns the configured prompt string.
func (e *Engine) Prompt() string {
	return e.prompt
}

// Buffer returns the current, unsubmitted input buffer (for tests and
// introspection).
func (e *Engine) Buffer() string {
	return e.buffer
}

// History returns the command history, most recent last.
func (e *Engine) History() []string {
	return append([]string(nil), e.history...)
}

func (e *Engine) emit(s string) {
	if e.outputSink != nil {
		e.outputSink(s)
	}
}

// HandleInputBytes decodes raw input as UTF-8 and consumes it one code
// point at a time through the escape-sequence state machine.
func (e *Engine) HandleInputBytes(data []byte) {
	for _, r := range string(data) {
		e.handleRune(r)
	}
}

func (e *Engine) handleRune(r rune) {
	switch e.esc {
	case stateGotEsc:
		if r == '[' {
			e.esc = stateInCSI
			e.csiParams = e.csiParams[:0]
			return
		}
		e.esc = stateGround
		return
	case stateInCSI:
		e.handleCSIByte(r)
		return
	}

	switch {
	case r == 0x1B: // ESC
		e.esc = stateGotEsc
	case r == '\r' || r == '\n':
		e.submit()
	case r == 0x03: // Ctrl-C
		e.emit("^C\r\n")
		e.resetLine()
		e.redraw()
	case r == 0x7F || r == 0x08: // DEL or backspace
		e.backspace()
	case r == 0x09: // TAB
		e.tabComplete()
	case r >= 0x20:
		e.insert(r)
	default:
		// Other control bytes are ignored.
	}
}

func (e *Engine) resetLine() {
	e.buffer = ""
	e.cursor = 0
	e.historyIndex = -1
	e.tempBuffer = ""
}

func (e *Engine) insert(r rune) {
	runes := []rune(e.buffer)
	runes = append(runes[:e.cursor], append([]rune{r}, runes[e.cursor:]...)...)
	e.buffer = string(runes)
	e.cursor++
	e.redraw()
}

func (e *Engine) backspace() {
	if e.cursor == 0 {
		return
	}
	runes := []rune(e.buffer)
	runes = append(runes[:e.cursor-1], runes[e.cursor:]...)
	e.buffer = string(runes)
	e.cursor--
	e.redraw()
}

func (e *Engine) submit() {
	e.emit("\r\n")
	trimmed := strings.TrimSpace(e.buffer)
	if trimmed != "" {
		if len(e.history) == 0 || e.history[len(e.history)-1] != trimmed {
			e.history = append(e.history, trimmed)
		}
	}
	e.resetLine()
	if trimmed != "" && e.inputProcessor != nil {
		e.inputProcessor(trimmed)
	}
	if e.running {
		e.redraw()
	}
}

// redraw emits a line-redraw: erase line, go to column 1, prompt plus
// buffer, then move the cursor to its logical column.
func (e *Engine) redraw() {
	col := len([]rune(e.prompt)) + e.cursor + 1
	e.emit(fmt.Sprintf("\x1b[2K\x1b[G%s%s\x1b[%dG", e.prompt, e.buffer, col))
}
