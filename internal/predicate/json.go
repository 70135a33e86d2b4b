package predicate

import (
	"encoding/json"
	"fmt"
	"sort"
)

// wireExpr is the on-the-wire shape of an Expr: a discriminated union
// keyed by "kind", matching how the original implementation's
// MatchExpression serializes as a serde enum (original_source/
// file_matching.rs) — translated to Go's usual "kind + optional payload
// fields" JSON convention rather than serde's externally-tagged enum
// syntax, since that's what internal/config's own types already use.
type wireExpr struct {
	Kind       string     `json:"kind"`
	Pattern    string     `json:"pattern,omitempty"`
	Extensions []string   `json:"extensions,omitempty"`
	Operand    *wireExpr  `json:"operand,omitempty"`
	Operands   []wireExpr `json:"operands,omitempty"`
}

// UnmarshalJSON decodes an Expr from its wire form and compiles it.
func (e *Expr) UnmarshalJSON(data []byte) error {
	var w wireExpr
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("PRED_DECODE: %w", err)
	}
	built, err := fromWire(w)
	if err != nil {
		return err
	}
	if err := Compile(&built); err != nil {
		return err
	}
	*e = built
	return nil
}

func fromWire(w wireExpr) (Expr, error) {
	switch w.Kind {
	case "", "all":
		return All(), nil
	case "none":
		return None(), nil
	case "glob":
		return Glob(w.Pattern), nil
	case "regex":
		return Regex(w.Pattern), nil
	case "is_text":
		return IsText(), nil
	case "is_executable":
		return IsExecutable(), nil
	case "extension":
		return Extension(w.Extensions...), nil
	case "not":
		if w.Operand == nil {
			return Expr{}, fmt.Errorf("PRED_DECODE: %q requires \"operand\"", w.Kind)
		}
		inner, err := fromWire(*w.Operand)
		if err != nil {
			return Expr{}, err
		}
		return Not(inner), nil
	case "and", "or":
		ops := make([]Expr, 0, len(w.Operands))
		for _, o := range w.Operands {
			inner, err := fromWire(o)
			if err != nil {
				return Expr{}, err
			}
			ops = append(ops, inner)
		}
		if w.Kind == "and" {
			return And(ops...), nil
		}
		return Or(ops...), nil
	default:
		return Expr{}, fmt.Errorf("PRED_DECODE: unknown predicate kind %q", w.Kind)
	}
}

// MarshalJSON encodes an Expr back to its wire form. Used by the
// set-metadata tool and by config round-tripping in tests.
func (e Expr) MarshalJSON() ([]byte, error) {
	return json.Marshal(toWire(e))
}

func toWire(e Expr) wireExpr {
	switch e.Kind {
	case KindAll:
		return wireExpr{Kind: "all"}
	case KindNone:
		return wireExpr{Kind: "none"}
	case KindGlob:
		return wireExpr{Kind: "glob", Pattern: e.Pattern}
	case KindRegex:
		return wireExpr{Kind: "regex", Pattern: e.Pattern}
	case KindIsText:
		return wireExpr{Kind: "is_text"}
	case KindIsExecutable:
		return wireExpr{Kind: "is_executable"}
	case KindExtension:
		exts := make([]string, 0, len(e.Extensions))
		for ext := range e.Extensions {
			exts = append(exts, ext)
		}
		sort.Strings(exts)
		return wireExpr{Kind: "extension", Extensions: exts}
	case KindNot:
		inner := toWire(*e.Operand)
		return wireExpr{Kind: "not", Operand: &inner}
	case KindAnd, KindOr:
		ops := make([]wireExpr, 0, len(e.Operands))
		for _, op := range e.Operands {
			ops = append(ops, toWire(op))
		}
		kind := "and"
		if e.Kind == KindOr {
			kind = "or"
		}
		return wireExpr{Kind: kind, Operands: ops}
	default:
		return wireExpr{Kind: "none"}
	}
}
