package generate

import (
	"fmt"
	"go/ast"
	"go/types"
	"strings"
)

// matchSignature reports how got differs from the template declaration
// want. Receiver, type parameters, parameters and results must agree in
// both names and types, since the reply's body is spliced under want's
// signature. The function name itself may differ.
func matchSignature(want, got *ast.FuncDecl) error {
	parts := []struct {
		what      string
		want, got *ast.FieldList
	}{
		{"receivers", want.Recv, got.Recv},
		{"type parameters", want.Type.TypeParams, got.Type.TypeParams},
		{"parameters", want.Type.Params, got.Type.Params},
		{"results", want.Type.Results, got.Type.Results},
	}
	for _, p := range parts {
		w, g := fieldList(p.want), fieldList(p.got)
		if w != g {
			return fmt.Errorf("%s differ from the declaration: got (%s), want (%s)", p.what, g, w)
		}
	}
	return nil
}

// fieldList renders fields one name at a time, so `a, b int` and
// `a int, b int` compare equal.
func fieldList(fl *ast.FieldList) string {
	if fl == nil {
		return ""
	}
	var out []string
	for _, f := range fl.List {
		typ := types.ExprString(f.Type)
		if len(f.Names) == 0 {
			out = append(out, typ)
			continue
		}
		for _, name := range f.Names {
			out = append(out, name.Name+" "+typ)
		}
	}
	return strings.Join(out, ", ")
}
