package builtin

import (
	"context"
	"strings"
	"testing"

	"github.com/shaunie2fly/shellwire/registry"
)

func newFixture() *registry.Registry {
	r := registry.New(nil)
	Register(r)
	return r
}

func collect(r *registry.Registry, line string) string {
	var out strings.Builder
	r.Execute(context.Background(), line, func(s string) { out.WriteString(s) })
	return out.String()
}

func TestEchoNormal(t *testing.T) {
	got := collect(newFixture(), "echo normal hello world")
	if got != "hello world" {
		t.Fatalf("got %q", got)
	}
}

func TestEchoReverse(t *testing.T) {
	got := collect(newFixture(), "echo reverse hello")
	if got != "olleh" {
		t.Fatalf("got %q", got)
	}
}

func TestHelpListsTopLevelCommands(t *testing.T) {
	got := collect(newFixture(), "help")
	if !strings.Contains(got, "echo") || !strings.Contains(got, "help") {
		t.Fatalf("expected top-level commands listed, got %q", got)
	}
}

func TestHelpDescribesSubcommand(t *testing.T) {
	got := collect(newFixture(), "help echo normal")
	if !strings.Contains(got, "echo the given words back as-is") {
		t.Fatalf("expected subcommand description, got %q", got)
	}
}

func TestUnknownCommandSuggestsPrefixMatch(t *testing.T) {
	got := collect(newFixture(), "ech")
	if !strings.Contains(got, `Unknown command "ech"`) || !strings.Contains(got, `Did you mean "echo"?`) {
		t.Fatalf("got %q", got)
	}
}
