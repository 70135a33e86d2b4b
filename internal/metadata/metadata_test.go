package metadata

import (
	"testing"

	"nit/internal/predicate"
)

func moduleHeader() []byte {
	return []byte{0x00, 'a', 's', 'm', 0x01, 0x00, 0x00, 0x00}
}

func sampleContract() Contract {
	return Contract{
		Filter:         predicate.Glob("**/*.go"),
		InvocationMode: ModeOneShot,
		ArgvTemplate:   []Token{Literal("--check"), FilesToken()},
		Fixes:          false,
		Env:            map[string]string{"NO_COLOR": "1"},
		Argv0:          "mylint",
		MaxFilenames:   256,
		RequireSerial:  false,
		Repo:           "https://example.com/mylint",
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := sampleContract()
	payload, err := Encode(c)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Argv0 != c.Argv0 || decoded.MaxFilenames != c.MaxFilenames {
		t.Fatalf("round trip mismatch: %+v vs %+v", decoded, c)
	}
	if len(decoded.ArgvTemplate) != 2 || decoded.ArgvTemplate[0].Literal != "--check" {
		t.Fatalf("unexpected argv template after round trip: %+v", decoded.ArgvTemplate)
	}
	if decoded.ArgvTemplate[1].Placeholder != PlaceholderFiles {
		t.Fatalf("expected {files} placeholder to survive round trip: %+v", decoded.ArgvTemplate[1])
	}
	if decoded.Env["NO_COLOR"] != "1" {
		t.Fatalf("expected env to survive round trip, got %+v", decoded.Env)
	}
}

func TestWriteThenReadFromModule(t *testing.T) {
	c := sampleContract()
	module, err := Write(moduleHeader(), c)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(module)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Repo != c.Repo {
		t.Fatalf("expected repo %q, got %q", c.Repo, got.Repo)
	}
}

func TestReadMissingSectionFails(t *testing.T) {
	if _, err := Read(moduleHeader()); err == nil {
		t.Fatalf("expected error when no nit_metadata section is present")
	}
}

func TestInvocationModeRoundTrip(t *testing.T) {
	for _, m := range []Mode{ModeOneShot, ModePerFile, ModeStdinStream} {
		c := sampleContract()
		c.InvocationMode = m
		if m == ModePerFile {
			c.ArgvTemplate = []Token{FileToken()}
		}
		payload, err := Encode(c)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		decoded, err := Decode(payload)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if decoded.InvocationMode != m {
			t.Fatalf("mode round trip mismatch: want %v got %v", m, decoded.InvocationMode)
		}
	}
}

func TestValidateRejectsFileTokenOutsidePerFile(t *testing.T) {
	c := sampleContract()
	c.InvocationMode = ModeOneShot
	c.ArgvTemplate = []Token{FileToken()}
	if _, err := Encode(c); err == nil {
		t.Fatalf("expected {file} outside per-file mode to be rejected")
	}
}

func TestExpandArgv(t *testing.T) {
	c := sampleContract()
	argv, err := ExpandArgv(c, []string{"a.go", "b.go"}, "/")
	if err != nil {
		t.Fatalf("ExpandArgv: %v", err)
	}
	want := []string{"mylint", "--check", "a.go", "b.go"}
	if len(argv) != len(want) {
		t.Fatalf("unexpected argv: %v", argv)
	}
	for i := range want {
		if argv[i] != want[i] {
			t.Fatalf("argv[%d] = %q, want %q", i, argv[i], want[i])
		}
	}
}

func TestExpandArgvPerFileRejectsMultipleFiles(t *testing.T) {
	c := Contract{Argv0: "mylint", InvocationMode: ModePerFile, ArgvTemplate: []Token{FileToken()}}
	if _, err := ExpandArgv(c, []string{"a.go", "b.go"}, "/"); err == nil {
		t.Fatalf("expected {file} with a multi-file batch to fail")
	}
}
