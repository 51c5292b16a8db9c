package mailnorm

import "testing"

func TestNormalizeThreadSubject(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Hello", "Hello"},
		{"Re: Hello", "Hello"},
		{"RE: Hello", "Hello"},
		{"Fwd: Re: Hello", "Hello"},
		{"Re[2]: Hello", "Hello"},
		{"  Re: Hello  ", "Hello"},
		{"Re: Re: Re: Hello", "Hello"},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizeThreadSubject(c.in); got != c.want {
			t.Errorf("NormalizeThreadSubject(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestHasReplyPrefix(t *testing.T) {
	if !HasReplyPrefix("Re: hi") {
		t.Error("expected Re: hi to have a reply prefix")
	}
	if HasReplyPrefix("hi") {
		t.Error("expected hi to have no reply prefix")
	}
}

func TestNormalizeEmailSubject(t *testing.T) {
	if got := NormalizeEmailSubject("   "); got != "(no subject)" {
		t.Errorf("NormalizeEmailSubject(blank) = %q, want (no subject)", got)
	}
	if got := NormalizeEmailSubject("hi"); got != "hi" {
		t.Errorf("NormalizeEmailSubject(hi) = %q, want hi", got)
	}
}

func TestIsDisplayNameAbsent(t *testing.T) {
	cases := []struct {
		name, email string
		want        bool
	}{
		{"", "alice@example.com", true},
		{"alice", "alice@example.com", true},
		{"Alice", "alice@example.com", true},
		{"Alice Smith", "alice@example.com", false},
		{`"alice"`, "alice@example.com", true},
	}
	for _, c := range cases {
		if got := IsDisplayNameAbsent(c.name, c.email); got != c.want {
			t.Errorf("IsDisplayNameAbsent(%q, %q) = %v, want %v", c.name, c.email, got, c.want)
		}
	}
}

func TestNormalizeAddress(t *testing.T) {
	name, email := NormalizeAddress("Alice Smith", "  Alice@Example.com  ")
	if name != "Alice Smith" || email != "alice@example.com" {
		t.Errorf("got (%q, %q)", name, email)
	}

	name, email = NormalizeAddress("alice", "Alice@Example.com")
	if name != "" || email != "alice@example.com" {
		t.Errorf("expected absent display name to collapse to empty, got (%q, %q)", name, email)
	}
}
