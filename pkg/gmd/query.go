package gmd

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"

	"github.com/modworks/gmdkit/pkg/gmdformat"
)

// Query evaluates an expr expression against a plain-map view of a
// decoded Root and returns the result. Two variables are in scope:
// world_version (int) and tables (the root table as nested maps).
//
// The plain view drops the key-namespace split: string keys appear
// as-is and number keys in decimal form, so NumberKey(1) and
// StringKey("1") collapse onto the same map key. The view is for
// inspection only and is never fed back into the encoder.
//
//	gmd.Query(ctx, root, `tables["MyMod"]["_spawn count"]`)
func Query(ctx context.Context, root *gmdformat.Root, expression string) (any, error) {
	return getGlobalConverter().Query(ctx, root, expression)
}

// Query evaluates an expr expression against a plain-map view of a
// decoded Root. See the package-level Query.
func (c *Converter) Query(ctx context.Context, root *gmdformat.Root, expression string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if root == nil || root.Data == nil {
		return nil, fmt.Errorf("query: nil root")
	}

	env := map[string]any{
		"world_version": int(root.WorldVersion),
		"tables":        plainValue(root.Data),
	}
	program, err := expr.Compile(expression, expr.Env(env))
	if err != nil {
		return nil, fmt.Errorf("compiling query: %w", err)
	}
	result, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("running query: %w", err)
	}
	c.logger.DebugContext(ctx, "query evaluated", "expression", expression)
	return result, nil
}

// plainValue converts a value tree into plain Go maps, slices and
// scalars for expression evaluation.
func plainValue(v gmdformat.Value) any {
	switch val := v.(type) {
	case gmdformat.String:
		return string(val)
	case gmdformat.Integer:
		return int64(val)
	case gmdformat.Float:
		return float64(val)
	case gmdformat.Boolean:
		return bool(val)
	case gmdformat.Null:
		return nil
	case *gmdformat.Table:
		m := make(map[string]any, len(val.Entries))
		for _, entry := range val.Entries {
			m[plainKey(entry.Key)] = plainValue(entry.Value)
		}
		return m
	case *gmdformat.List:
		items := make([]any, len(val.Items))
		for i, item := range val.Items {
			items[i] = plainValue(item)
		}
		return items
	default:
		return nil
	}
}

func plainKey(k gmdformat.Key) string {
	if k.Kind == gmdformat.KeyString {
		return k.Str
	}
	return gmdformat.EncodeKey(k)[len(gmdformat.NumberKeyPrefix):]
}
