package arg

import "testing"

func schemaFixture() []ParameterDefinition {
	return []ParameterDefinition{
		{Name: "name", Type: TypeString, Required: true, Alias: 'n'},
		{Name: "count", Type: TypeNumber, Alias: 'c'},
		{Name: "verbose", Type: TypeBoolean, IsFlag: true, Alias: 'v'},
	}
}

func TestParseLongOptionEquals(t *testing.T) {
	r := Parse([]string{"--name=alice"}, schemaFixture())
	if len(r.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", r.Errors)
	}
	if r.Options["name"] != "alice" {
		t.Fatalf("got options: %v", r.Options)
	}
}

func TestParseLongOptionSpaceValue(t *testing.T) {
	r := Parse([]string{"--name", "bob", "--count", "3"}, schemaFixture())
	if len(r.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", r.Errors)
	}
	if r.Options["name"] != "bob" || r.Options["count"] != 3.0 {
		t.Fatalf("got options: %v", r.Options)
	}
}

func TestParseMissingValueErrors(t *testing.T) {
	r := Parse([]string{"--name"}, schemaFixture())
	// --name is also required, so its absence adds a second error.
	if len(r.Errors) != 2 || r.Errors[0] != "option --name requires a value" {
		t.Fatalf("expected a missing-value error then a missing-required error, got %v", r.Errors)
	}
}

func TestParseFlagRejectsInlineValue(t *testing.T) {
	r := Parse([]string{"--verbose=true", "--name=x"}, schemaFixture())
	if len(r.Errors) != 1 {
		t.Fatalf("expected one error, got %v", r.Errors)
	}
}

func TestParseShortAlias(t *testing.T) {
	r := Parse([]string{"-n", "alice", "-v"}, schemaFixture())
	if len(r.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", r.Errors)
	}
	if r.Options["name"] != "alice" || r.Options["verbose"] != true {
		t.Fatalf("got options: %v", r.Options)
	}
}

func TestParseMultiCharShortRejected(t *testing.T) {
	r := Parse([]string{"-abc", "--name=x"}, schemaFixture())
	if len(r.Errors) != 1 {
		t.Fatalf("expected invalid short option error, got %v", r.Errors)
	}
}

func TestParseUnknownOptionContinues(t *testing.T) {
	r := Parse([]string{"--bogus", "--name=x"}, schemaFixture())
	if len(r.Errors) != 1 {
		t.Fatalf("expected exactly one error, got %v", r.Errors)
	}
	if r.Options["name"] != "x" {
		t.Fatalf("parsing should continue after unknown option: %v", r.Options)
	}
}

func TestParseMissingRequired(t *testing.T) {
	r := Parse(nil, schemaFixture())
	if len(r.Errors) != 1 {
		t.Fatalf("expected missing required error, got %v", r.Errors)
	}
}

func TestParseHelpShortCircuits(t *testing.T) {
	r := Parse([]string{"--help", "--name=x"}, schemaFixture())
	if !r.HelpRequested {
		t.Fatal("expected HelpRequested")
	}
	if len(r.Errors) != 0 {
		t.Fatalf("help should suppress required-option errors, got %v", r.Errors)
	}
}

func TestParsePositionals(t *testing.T) {
	r := Parse([]string{"foo", "--name=x", "bar"}, schemaFixture())
	if len(r.Positional) != 2 || r.Positional[0] != "foo" || r.Positional[1] != "bar" {
		t.Fatalf("got positionals: %v", r.Positional)
	}
}

func TestParseNegativeNumberIsPositional(t *testing.T) {
	r := Parse([]string{"--name=x", "-5"}, schemaFixture())
	if len(r.Positional) != 1 || r.Positional[0] != "-5" {
		t.Fatalf("expected -5 treated as positional, got %v / errors %v", r.Positional, r.Errors)
	}
}

func TestParseErrorOrderMatchesTokenOrder(t *testing.T) {
	r := Parse([]string{"--bogus1", "--bogus2", "--name=x"}, schemaFixture())
	if len(r.Errors) != 2 {
		t.Fatalf("expected two errors, got %v", r.Errors)
	}
	if r.Errors[0] != "unknown option --bogus1" || r.Errors[1] != "unknown option --bogus2" {
		t.Fatalf("errors out of order: %v", r.Errors)
	}
}
