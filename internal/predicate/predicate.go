// Package predicate implements the predicate engine (component E): a
// small expression tree evaluated against a candidate file's path and a
// cheap content sniff.
//
// Expr is modeled as a tagged variant rather than an interface hierarchy
// per the design notes in spec.md §9 — evaluation is a single recursive
// traversal over a Kind enum, and compiled regex matchers are held by
// reference so one Expr can be shared across every file evaluation in a
// run. Glob patterns are only validated up front; doublestar matches them
// on each call (see Compile).
package predicate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Kind identifies which case of Expr is populated.
type Kind int

const (
	KindAll Kind = iota
	KindNone
	KindGlob
	KindRegex
	KindIsText
	KindIsExecutable
	KindExtension
	KindNot
	KindAnd
	KindOr
)

// Expr is a predicate tree node. Only the fields relevant to Kind are
// populated; the zero value of the others is ignored.
type Expr struct {
	Kind Kind

	// KindGlob / KindRegex
	Pattern string
	re      *regexp.Regexp // compiled lazily by Compile, for KindRegex

	// KindExtension
	Extensions map[string]struct{}

	// KindNot
	Operand *Expr

	// KindAnd / KindOr
	Operands []Expr
}

// File is the minimal view of a candidate file the predicate engine needs.
// internal/fileset.CandidateFile satisfies this interface.
type File interface {
	Path() string
	IsText() (bool, error)
	IsExecutable() (bool, bool) // (executable, known) — see spec.md §9 open question
}

// All matches every file.
func All() Expr { return Expr{Kind: KindAll} }

// None matches no file.
func None() Expr { return Expr{Kind: KindNone} }

// Glob matches path against a doublestar pattern ("**" = any number of
// path segments).
func Glob(pattern string) Expr { return Expr{Kind: KindGlob, Pattern: pattern} }

// Regex matches path against an uncompiled regular expression. Call
// Compile before Eval to validate and cache the compiled matcher.
func Regex(pattern string) Expr { return Expr{Kind: KindRegex, Pattern: pattern} }

// IsText matches files whose first 8000 bytes contain no NUL byte.
func IsText() Expr { return Expr{Kind: KindIsText} }

// IsExecutable matches files whose executable bit is set and known.
func IsExecutable() Expr { return Expr{Kind: KindIsExecutable} }

// Extension matches files whose extension (without the leading dot) is
// in the given set.
func Extension(exts ...string) Expr {
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		set[strings.TrimPrefix(e, ".")] = struct{}{}
	}
	return Expr{Kind: KindExtension, Extensions: set}
}

// Not negates inner.
func Not(inner Expr) Expr { return Expr{Kind: KindNot, Operand: &inner} }

// And requires every operand to match.
func And(operands ...Expr) Expr { return Expr{Kind: KindAnd, Operands: operands} }

// Or requires at least one operand to match.
func Or(operands ...Expr) Expr { return Expr{Kind: KindOr, Operands: operands} }

// Compile validates patterns and caches compiled regex matchers
// recursively. Glob patterns are validated but not pre-compiled (doublestar
// has no persistent matcher object to hold onto — it compiles per Match
// call, so sharing is at the Expr level, not a cached object).
func Compile(e *Expr) error {
	switch e.Kind {
	case KindGlob:
		if !doublestar.ValidatePattern(e.Pattern) {
			return fmt.Errorf("PRED_GLOB: invalid glob pattern %q", e.Pattern)
		}
	case KindRegex:
		re, err := regexp.Compile(e.Pattern)
		if err != nil {
			return fmt.Errorf("PRED_REGEX: %w", err)
		}
		e.re = re
	case KindNot:
		return Compile(e.Operand)
	case KindAnd, KindOr:
		for i := range e.Operands {
			if err := Compile(&e.Operands[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// Eval evaluates expr against file, short-circuiting And/Or.
func Eval(expr Expr, file File) bool {
	switch expr.Kind {
	case KindAll:
		return true
	case KindNone:
		return false
	case KindGlob:
		ok, _ := doublestar.Match(expr.Pattern, file.Path())
		return ok
	case KindRegex:
		if expr.re == nil {
			re, err := regexp.Compile(expr.Pattern)
			if err != nil {
				return false
			}
			expr.re = re
		}
		return expr.re.MatchString(file.Path())
	case KindIsText:
		isText, err := file.IsText()
		return err == nil && isText
	case KindIsExecutable:
		exec, known := file.IsExecutable()
		return known && exec
	case KindExtension:
		ext := strings.TrimPrefix(pathExt(file.Path()), ".")
		_, ok := expr.Extensions[ext]
		return ok
	case KindNot:
		return !Eval(*expr.Operand, file)
	case KindAnd:
		for _, op := range expr.Operands {
			if !Eval(op, file) {
				return false
			}
		}
		return true
	case KindOr:
		for _, op := range expr.Operands {
			if Eval(op, file) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func pathExt(p string) string {
	i := strings.LastIndexByte(p, '.')
	slash := strings.LastIndexByte(p, '/')
	if i <= slash {
		return ""
	}
	return p[i:]
}

// Effective builds the combined filter a linter actually runs under:
// default_filter AND include AND NOT exclude, where an absent include
// defaults to All and an absent exclude defaults to None (spec.md §4.E).
func Effective(defaultFilter, include, exclude Expr) Expr {
	return And(defaultFilter, include, Not(exclude))
}
