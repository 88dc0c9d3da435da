package common

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input string
		want  Command
	}{
		{"CONNECT alice", Command{Verb: VerbConnect, Arg: "alice", HasArg: true}},
		{"PUT my key", Command{Verb: VerbPut, Arg: "my key", HasArg: true}},
		{"GET a", Command{Verb: VerbGet, Arg: "a", HasArg: true}},
		{"DISCONNECT", Command{Verb: VerbDisconnect}},
		{"DELETE ", Command{Verb: VerbDelete, Arg: "", HasArg: true}},
		{"", Command{}},
		{"FOO bar baz", Command{Verb: "FOO", Arg: "bar baz", HasArg: true}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseCommand(tt.input)
			if got != tt.want {
				t.Errorf("ParseCommand(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestCommandString(t *testing.T) {
	if s := NewCommand(VerbGet, "a").String(); s != "GET a" {
		t.Errorf("String() = %q, want %q", s, "GET a")
	}
	if s := (Command{Verb: VerbDisconnect}).String(); s != "DISCONNECT" {
		t.Errorf("String() = %q, want %q", s, "DISCONNECT")
	}

	// parsing the rendered form yields the same command
	c := NewCommand(VerbPut, "some key")
	if got := ParseCommand(c.String()); got != c {
		t.Errorf("ParseCommand(String()) = %+v, want %+v", got, c)
	}
}
