// Package config decodes bakemeta configuration files. A .conf file
// is a flat HCL attribute file; every attribute becomes one build
// context variable.
package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Variable is one decoded configuration attribute, in file order.
type Variable struct {
	Name  string
	Value string
	Range hcl.Range
}

// DecodeFile parses path as an HCL attribute file and returns its
// variables in declaration order. Attribute expressions must be
// self-contained; references to other variables are a parse error at
// this layer (variable expansion belongs to the parsers proper).
func DecodeFile(path string) ([]Variable, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	attrs, diags := file.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	vars := make([]Variable, 0, len(attrs))
	for _, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to evaluate %q in %s: %w", attr.Name, path, diags)
		}
		str, err := valueToString(val)
		if err != nil {
			return nil, fmt.Errorf("attribute %q in %s: %w", attr.Name, path, err)
		}
		vars = append(vars, Variable{
			Name:  attr.Name,
			Value: str,
			Range: attr.Range,
		})
	}

	// JustAttributes returns a map; restore declaration order so
	// callers apply the variables in the order the file states them.
	sortByRange(vars)
	return vars, nil
}

func sortByRange(vars []Variable) {
	for i := 1; i < len(vars); i++ {
		for j := i; j > 0 && before(vars[j].Range, vars[j-1].Range); j-- {
			vars[j], vars[j-1] = vars[j-1], vars[j]
		}
	}
}

func before(a, b hcl.Range) bool {
	if a.Start.Line != b.Start.Line {
		return a.Start.Line < b.Start.Line
	}
	return a.Start.Column < b.Start.Column
}

func valueToString(val cty.Value) (string, error) {
	converted, err := convert.Convert(val, cty.String)
	if err != nil {
		return "", fmt.Errorf("value is not convertible to string: %w", err)
	}
	if converted.IsNull() {
		return "", nil
	}
	return converted.AsString(), nil
}
