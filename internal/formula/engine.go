// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrEee Contributors

// Package formula evaluates the literal and scripted values carried by
// abilities. Scripts run in a sandboxed Lua state.
package formula

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"
)

// CodeEvalFailed marks formula evaluation failures.
const CodeEvalFailed = "FORMULA_EVAL_FAILED"

type safeLibrary struct {
	name string
	fn   lua.LGFunction
}

// Safe: base, table, string, math. Blocked: os, io, debug, package.
func defaultSafeLibraries() []safeLibrary {
	return []safeLibrary{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	}
}

// Base functions that reach the filesystem or compile arbitrary chunks.
var unsafeBaseFunctions = []string{"dofile", "loadfile", "loadstring", "load", "require"}

// Engine evaluates script expressions. Each evaluation gets a fresh state,
// so an Engine can be shared between formulas.
type Engine struct {
	libraries []safeLibrary
}

// NewEngine creates a script engine with the sandboxed library set.
func NewEngine() *Engine {
	return &Engine{libraries: defaultSafeLibraries()}
}

func (e *Engine) newState(ctx context.Context) (*lua.LState, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range e.libraries {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, fmt.Errorf("failed to open library %s: %w", lib.name, err)
		}
	}
	for _, fn := range unsafeBaseFunctions {
		L.SetGlobal(fn, lua.LNil)
	}
	if ctx != nil {
		L.SetContext(ctx)
	}
	return L, nil
}

// Evaluate runs expr as a single Lua expression with vars bound as globals
// and returns the result as text.
func (e *Engine) Evaluate(ctx context.Context, expr string, vars map[string]any) (string, error) {
	L, err := e.newState(ctx)
	if err != nil {
		return "", oops.Code(CodeEvalFailed).With("formula", expr).Hint("failed to create state").Wrap(err)
	}
	defer L.Close()

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		lv, err := toLua(L, vars[name])
		if err != nil {
			return "", oops.Code(CodeEvalFailed).With("formula", expr).With("variable", name).Wrap(err)
		}
		L.SetGlobal(name, lv)
	}

	fn, err := L.LoadString("return " + expr)
	if err != nil {
		return "", oops.Code(CodeEvalFailed).With("formula", expr).Hint("syntax error").Wrap(err)
	}
	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		return "", oops.Code(CodeEvalFailed).With("formula", expr).Wrap(err)
	}
	ret := L.Get(-1)
	L.Pop(1)

	out, err := fromLua(ret)
	if err != nil {
		return "", oops.Code(CodeEvalFailed).With("formula", expr).Wrap(err)
	}
	return out, nil
}

func toLua(L *lua.LState, v any) (lua.LValue, error) {
	switch val := v.(type) {
	case nil:
		return lua.LNil, nil
	case string:
		return lua.LString(val), nil
	case bool:
		return lua.LBool(val), nil
	case int:
		return lua.LNumber(val), nil
	case int64:
		return lua.LNumber(val), nil
	case float64:
		return lua.LNumber(val), nil
	case map[string]any:
		tbl := L.NewTable()
		for k, item := range val {
			lv, err := toLua(L, item)
			if err != nil {
				return nil, err
			}
			tbl.RawSetString(k, lv)
		}
		return tbl, nil
	default:
		return nil, fmt.Errorf("unsupported variable type %T", v)
	}
}

func fromLua(v lua.LValue) (string, error) {
	switch val := v.(type) {
	case *lua.LNilType:
		return "", nil
	case lua.LBool:
		return strconv.FormatBool(bool(val)), nil
	case lua.LNumber:
		return FormatNumber(float64(val)), nil
	case lua.LString:
		return string(val), nil
	default:
		return "", fmt.Errorf("expression returned a %s, want a scalar", v.Type())
	}
}
