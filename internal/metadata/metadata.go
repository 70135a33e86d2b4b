// Package metadata implements the metadata codec (component C): reading
// and writing the "nit_metadata" custom section embedded in a linter's
// WASM module, which describes how the dispatcher should invoke it.
//
// The Contract shape (filter/mode/argv_template/fixes/env) follows
// spec.md's data model directly. MaxFilenames, RequireSerial, Argv0, and
// Repo supplement it with fields original_source/metadata.rs carries that
// the distilled spec dropped but that a complete implementation still
// needs: a one-shot batch has to know how many filenames it may carry per
// invocation, and a linter that must never run in parallel with itself
// needs a way to say so.
package metadata

import (
	"encoding/json"
	"fmt"

	"nit/internal/metadata/wasmsection"
	"nit/internal/predicate"
)

// SectionName is the reserved custom-section name the dispatcher looks for.
const SectionName = "nit_metadata"

// Mode describes how the dispatcher feeds candidate files to an
// invocation of the module. ModeStdinStream is handled like ModeOneShot:
// {files} is expanded into argv and nothing is written to the module's
// stdin. The one difference is batching, which splits its batches by
// MaxFilenames only, not by argv length.
type Mode int

const (
	// ModeOneShot passes every matched file in a single invocation's argv
	// (subject to MaxFilenames batching).
	ModeOneShot Mode = iota
	// ModePerFile invokes the module once per matched file.
	ModePerFile
	// ModeStdinStream currently behaves like ModeOneShot.
	// See the Mode doc comment.
	ModeStdinStream
)

func (m Mode) String() string {
	switch m {
	case ModePerFile:
		return "per-file"
	case ModeStdinStream:
		return "stdin-stream"
	default:
		return "one-shot"
	}
}

// Token is one element of an ArgvTemplate: either a literal string or a
// placeholder expanded by the dispatcher at invocation time.
type Token struct {
	Literal     string
	Placeholder Placeholder
}

// Placeholder identifies which dynamic value a Token expands to.
// PlaceholderNone means Token.Literal should be used verbatim.
type Placeholder int

const (
	PlaceholderNone Placeholder = iota
	PlaceholderFiles
	PlaceholderFile
	PlaceholderRoot
)

// Literal builds a plain argv token.
func Literal(s string) Token { return Token{Literal: s} }

// FilesToken expands to every path in the current batch, one per argv slot.
func FilesToken() Token { return Token{Placeholder: PlaceholderFiles} }

// FileToken expands to the single file in a per-file invocation. Valid
// only when Contract.InvocationMode is ModePerFile; Validate rejects it
// elsewhere.
func FileToken() Token { return Token{Placeholder: PlaceholderFile} }

// RootToken expands to the repository root as the module sees it (always
// "/" inside the sandbox's single preopen).
func RootToken() Token { return Token{Placeholder: PlaceholderRoot} }

// Contract is the decoded form of a module's nit_metadata section.
type Contract struct {
	// Filter is the module's own predicate. The dispatcher always applies
	// it, ANDed with the config's include (and any override_include) and
	// with the config's exclude (and any override_exclude) subtracted.
	Filter predicate.Expr

	// InvocationMode selects how matched files reach the module.
	InvocationMode Mode

	// ArgvTemplate is the ordered token list argv is built from, before
	// argv[0].
	ArgvTemplate []Token

	// Fixes is true if this invocation may mutate the files it is given;
	// it controls whether the sandbox mounts the repository root
	// read-write and whether the dispatcher's per-file fix lock applies.
	Fixes bool

	// Env is passed into the sandbox, plus LANG=C.UTF-8 added by the
	// dispatcher when Env does not set LANG itself; the host's own
	// environment is never propagated.
	Env map[string]string

	// Argv0 is passed as argv[0] to the module; cosmetic only.
	Argv0 string

	// MaxFilenames bounds how many filenames one one-shot invocation's
	// argv may carry. Zero means unbounded (a single invocation covers
	// every matched file) — deliberately the inverse of
	// original_source/metadata.rs's field of the same name, where zero
	// means no filenames are passed and the linter runs exactly once;
	// nit's one-shot mode has no use for a linter that never sees its
	// matched files, so zero is repurposed as "no cap" instead.
	MaxFilenames uint64

	// RequireSerial forces the dispatcher to run this module with an
	// effective concurrency of one, regardless of the run's configured
	// concurrency limit.
	RequireSerial bool

	// Repo identifies the source repository the module was built from,
	// for provenance display; nit does not itself verify it.
	Repo string
}

// Validate enforces the one mode-specific argv constraint Design Notes §9
// calls out: {file} is only legal under per-file mode.
func (c Contract) Validate() error {
	if c.InvocationMode == ModePerFile {
		return nil
	}
	for _, t := range c.ArgvTemplate {
		if t.Placeholder == PlaceholderFile {
			return fmt.Errorf("METADATA_VALIDATE: {file} is only valid in per-file mode, got %s", c.InvocationMode)
		}
	}
	return nil
}

type wireContract struct {
	Filter         predicate.Expr      `json:"filter"`
	InvocationMode string              `json:"mode,omitempty"`
	ArgvTemplate   []string            `json:"argv_template"`
	Fixes          bool                `json:"fixes,omitempty"`
	Env            map[string]string   `json:"env,omitempty"`
	Argv0          string              `json:"argv0,omitempty"`
	MaxFilenames   uint64              `json:"max_filenames,omitempty"`
	RequireSerial  bool                `json:"require_serial,omitempty"`
	Repo           string              `json:"repo,omitempty"`
}

func modeToWire(m Mode) string {
	switch m {
	case ModePerFile:
		return "per_file"
	case ModeStdinStream:
		return "stdin_stream"
	default:
		return "one_shot"
	}
}

// ParseMode parses a mode's wire name (as used in the nit_metadata
// section and in a config's override_mode field) into a Mode.
func ParseMode(s string) (Mode, error) { return modeFromWire(s) }

// ParseArgvTemplate parses a config's override_argv_template token list
// (raw strings, with "{files}"/"{file}"/"{root}" recognized as
// placeholders) into the Token slice ExpandArgv consumes.
func ParseArgvTemplate(raw []string) []Token {
	tokens := make([]Token, 0, len(raw))
	for _, r := range raw {
		tokens = append(tokens, tokenFromWire(r))
	}
	return tokens
}

func modeFromWire(s string) (Mode, error) {
	switch s {
	case "", "one_shot":
		return ModeOneShot, nil
	case "per_file":
		return ModePerFile, nil
	case "stdin_stream":
		return ModeStdinStream, nil
	default:
		return 0, fmt.Errorf("METADATA_DECODE: unknown mode %q", s)
	}
}

func tokenToWire(t Token) string {
	switch t.Placeholder {
	case PlaceholderFiles:
		return "{files}"
	case PlaceholderFile:
		return "{file}"
	case PlaceholderRoot:
		return "{root}"
	default:
		return t.Literal
	}
}

func tokenFromWire(s string) Token {
	switch s {
	case "{files}":
		return FilesToken()
	case "{file}":
		return FileToken()
	case "{root}":
		return RootToken()
	default:
		return Literal(s)
	}
}

// Decode parses a Contract from the raw JSON payload of a nit_metadata
// section.
func Decode(payload []byte) (Contract, error) {
	var w wireContract
	if err := json.Unmarshal(payload, &w); err != nil {
		return Contract{}, &Error{Code: "METADATA_DECODE", Err: err}
	}
	mode, err := modeFromWire(w.InvocationMode)
	if err != nil {
		return Contract{}, &Error{Code: "METADATA_DECODE", Err: err}
	}
	if err := predicate.Compile(&w.Filter); err != nil {
		return Contract{}, &Error{Code: "METADATA_DECODE", Err: err}
	}

	tokens := make([]Token, 0, len(w.ArgvTemplate))
	for _, raw := range w.ArgvTemplate {
		tokens = append(tokens, tokenFromWire(raw))
	}

	c := Contract{
		Filter:         w.Filter,
		InvocationMode: mode,
		ArgvTemplate:   tokens,
		Fixes:          w.Fixes,
		Env:            w.Env,
		Argv0:          w.Argv0,
		MaxFilenames:   w.MaxFilenames,
		RequireSerial:  w.RequireSerial,
		Repo:           w.Repo,
	}
	if err := c.Validate(); err != nil {
		return Contract{}, &Error{Code: "METADATA_DECODE", Err: err}
	}
	return c, nil
}

// Encode serializes a Contract back to the JSON payload stored in a
// nit_metadata section.
func Encode(c Contract) ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	tokens := make([]string, 0, len(c.ArgvTemplate))
	for _, t := range c.ArgvTemplate {
		tokens = append(tokens, tokenToWire(t))
	}
	w := wireContract{
		Filter:         c.Filter,
		InvocationMode: modeToWire(c.InvocationMode),
		ArgvTemplate:   tokens,
		Fixes:          c.Fixes,
		Env:            c.Env,
		Argv0:          c.Argv0,
		MaxFilenames:   c.MaxFilenames,
		RequireSerial:  c.RequireSerial,
		Repo:           c.Repo,
	}
	b, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("METADATA_ENCODE: %w", err)
	}
	return b, nil
}

// Read extracts and decodes the single nit_metadata section from a
// module's raw bytes. It is an error for the section to be absent or to
// appear more than once.
func Read(moduleBytes []byte) (Contract, error) {
	_, contents, err := wasmsection.FindCustom(moduleBytes, SectionName)
	if err != nil {
		return Contract{}, &Error{Code: "METADATA_SECTION", Err: err}
	}
	if len(contents) == 0 {
		return Contract{}, &Error{Code: "METADATA_MISSING", Err: fmt.Errorf("no %s section found", SectionName)}
	}
	if len(contents) > 1 {
		return Contract{}, &Error{Code: "METADATA_DUPLICATE", Err: fmt.Errorf("multiple %s sections found", SectionName)}
	}
	return Decode(contents[0])
}

// Write returns a copy of moduleBytes with its nit_metadata section set
// (replacing any existing one) to the encoding of c. Used by the
// metadata-write tool (component I).
func Write(moduleBytes []byte, c Contract) ([]byte, error) {
	payload, err := Encode(c)
	if err != nil {
		return nil, err
	}
	return wasmsection.ReplaceCustom(moduleBytes, SectionName, payload)
}

// ExpandArgv renders a contract's argv template against one invocation's
// batch of files and the sandbox-visible root, producing the full argv
// (argv[0] followed by every expanded token).
func ExpandArgv(c Contract, files []string, root string) ([]string, error) {
	argv := []string{c.Argv0}
	for _, t := range c.ArgvTemplate {
		switch t.Placeholder {
		case PlaceholderFiles:
			argv = append(argv, files...)
		case PlaceholderFile:
			if len(files) != 1 {
				return nil, fmt.Errorf("METADATA_EXPAND: {file} requires exactly one file in the batch, got %d", len(files))
			}
			argv = append(argv, files[0])
		case PlaceholderRoot:
			argv = append(argv, root)
		default:
			argv = append(argv, t.Literal)
		}
	}
	return argv, nil
}
