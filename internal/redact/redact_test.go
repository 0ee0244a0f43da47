package redact

import "testing"

func TestTokenRedactsEnvAssignment(t *testing.T) {
	got := Token("API_TOKEN=super-secret")
	want := "API_TOKEN=***"
	if got != want {
		t.Fatalf("Token() = %q, want %q", got, want)
	}
}

func TestTokenLeavesPlainArgsAlone(t *testing.T) {
	for _, tok := range []string{"sh", "-c", "echo hi"} {
		if got := Token(tok); got != tok {
			t.Fatalf("Token(%q) = %q, want unchanged", tok, got)
		}
	}
}

func TestTokenLeavesNonIdentifierKeyAlone(t *testing.T) {
	tok := "--flag=value"
	if got := Token(tok); got != tok {
		t.Fatalf("Token(%q) = %q, want unchanged (key isn't a valid env identifier)", tok, got)
	}
}

func TestCommandLineRedactsOnlyEnvLookingTokens(t *testing.T) {
	got := CommandLine([]string{"env", "PASSWORD=hunter2", "--", "/bin/echo", "hi"})
	want := "env PASSWORD=*** -- /bin/echo hi"
	if got != want {
		t.Fatalf("CommandLine() = %q, want %q", got, want)
	}
}
