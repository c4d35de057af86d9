package plugins

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"specrun/internal/stepdef"
	"specrun/pkg/logging"
)

const stepsFuncName = "Steps"

var (
	worldType = reflect.TypeOf(map[string]interface{}{})
	argsType  = reflect.TypeOf([]string{})
	errorType = reflect.TypeOf((*error)(nil)).Elem()
)

// RegisterPaths evaluates every path in order and registers the declared
// step definitions into b. Registration order follows the path order, and
// within a directory the file name order.
func RegisterPaths(b *stepdef.Builder, paths []string) error {
	for _, p := range paths {
		if err := RegisterPath(b, p); err != nil {
			return err
		}
	}
	return nil
}

// RegisterPath evaluates path, a .go file or a directory of .go files, and
// registers every step definition it declares into b.
func RegisterPath(b *stepdef.Builder, path string) error {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil
	}
	info, err := os.Stat(trimmed)
	if err != nil {
		return fmt.Errorf("plugin: %s: %w", trimmed, err)
	}
	if !info.IsDir() {
		return registerFile(b, trimmed)
	}
	entries, err := os.ReadDir(trimmed)
	if err != nil {
		return fmt.Errorf("plugin: read %s: %w", trimmed, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".go" {
			continue
		}
		if err := registerFile(b, filepath.Join(trimmed, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func registerFile(b *stepdef.Builder, path string) error {
	code, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("plugin: read %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(code))) == 0 {
		return fmt.Errorf("plugin: %s is empty", path)
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return fmt.Errorf("plugin: loading stdlib symbols: %w", err)
	}
	if _, err := i.EvalPath(path); err != nil {
		return fmt.Errorf("plugin: interpret %s: %w", path, err)
	}
	fnValue, err := i.Eval(stepsFuncName)
	if err != nil {
		return fmt.Errorf("plugin: %s must define %s() []map[string]interface{}: %w", path, stepsFuncName, err)
	}
	rows, err := invokeStepsFunc(fnValue)
	if err != nil {
		return fmt.Errorf("plugin: %s: %w", path, err)
	}
	for idx, row := range rows {
		if err := registerRow(b, row); err != nil {
			return fmt.Errorf("plugin: %s row %d: %w", path, idx+1, err)
		}
	}
	logging.Debug("Plugins", "Registered %d step definition(s) from %s", len(rows), path)
	return nil
}

// invokeStepsFunc calls the interpreted Steps function and normalizes its
// return value into definition rows.
func invokeStepsFunc(value reflect.Value) ([]map[string]interface{}, error) {
	if !value.IsValid() {
		return nil, fmt.Errorf("missing %s function", stepsFuncName)
	}
	if value.Kind() != reflect.Func {
		return nil, fmt.Errorf("%s is not a function", stepsFuncName)
	}
	results := value.Call(nil)
	if len(results) != 1 {
		return nil, fmt.Errorf("%s must return []map[string]interface{}", stepsFuncName)
	}
	out := results[0]
	if rows, ok := out.Interface().([]map[string]interface{}); ok {
		return rows, nil
	}
	if out.Kind() == reflect.Slice {
		rows := make([]map[string]interface{}, out.Len())
		for i := 0; i < out.Len(); i++ {
			m, ok := out.Index(i).Interface().(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("%s[%d] is not map[string]interface{}", stepsFuncName, i)
			}
			rows[i] = m
		}
		return rows, nil
	}
	return nil, fmt.Errorf("%s must return []map[string]interface{}", stepsFuncName)
}

func registerRow(b *stepdef.Builder, row map[string]interface{}) error {
	keyword, _ := row["keyword"].(string)
	switch strings.ToLower(strings.TrimSpace(keyword)) {
	case "given":
		return registerStepRow(b, stepdef.MatchGiven, row)
	case "when":
		return registerStepRow(b, stepdef.MatchWhen, row)
	case "then":
		return registerStepRow(b, stepdef.MatchThen, row)
	case "any", "*":
		return registerStepRow(b, stepdef.MatchAny, row)
	case "before":
		return registerHookRow(b, "before", row)
	case "after":
		return registerHookRow(b, "after", row)
	default:
		return fmt.Errorf("unknown keyword %q (want given, when, then, any, before or after)", keyword)
	}
}

func registerStepRow(b *stepdef.Builder, keywords stepdef.KeywordSet, row map[string]interface{}) error {
	handler, err := stepHandler(row["func"])
	if err != nil {
		return err
	}
	pattern, hasPattern := row["pattern"].(string)
	text, hasText := row["text"].(string)
	switch {
	case hasPattern && hasText:
		return errors.New(`row has both "pattern" and "text"`)
	case hasPattern:
		b.Register(keywords, pattern, handler)
	case hasText:
		b.Literal(keywords, text, handler)
	default:
		return errors.New(`row needs a "pattern" or "text" key`)
	}
	return nil
}

func registerHookRow(b *stepdef.Builder, phase string, row map[string]interface{}) error {
	fn, err := hookHandler(row["func"])
	if err != nil {
		return err
	}
	var opts []stepdef.HookOption
	if expr, ok := row["tags"].(string); ok && expr != "" {
		opts = append(opts, stepdef.WithTags(expr))
	}
	if phase == "before" {
		b.Before(fn, opts...)
	} else {
		b.After(fn, opts...)
	}
	return nil
}

// stepHandler adapts a plugin step function into a stepdef.Handler. Plugin
// functions have no context parameter, so a timed-out plugin step is
// abandoned rather than cancelled.
func stepHandler(v interface{}) (stepdef.Handler, error) {
	fn, err := pluginFunc(v, 2, "func(world map[string]interface{}, args []string) error")
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, sc *stepdef.StepContext) error {
		world, ok := sc.World.(map[string]interface{})
		if !ok {
			return fmt.Errorf("plugin steps need a map World, got %T", sc.World)
		}
		args := sc.Args
		if args == nil {
			args = []string{}
		}
		return callPluginFunc(fn, reflect.ValueOf(world), reflect.ValueOf(args))
	}, nil
}

// hookHandler adapts a plugin hook function into a stepdef.HookFunc.
func hookHandler(v interface{}) (stepdef.HookFunc, error) {
	fn, err := pluginFunc(v, 1, "func(world map[string]interface{}) error")
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, sc *stepdef.ScenarioContext) error {
		world, ok := sc.World.(map[string]interface{})
		if !ok {
			return fmt.Errorf("plugin hooks need a map World, got %T", sc.World)
		}
		return callPluginFunc(fn, reflect.ValueOf(world))
	}, nil
}

// pluginFunc validates the shape of an interpreted function value: numIn
// parameters starting with the World map, returning exactly one error.
func pluginFunc(v interface{}, numIn int, want string) (reflect.Value, error) {
	if v == nil {
		return reflect.Value{}, errors.New(`row is missing the "func" key`)
	}
	fn := reflect.ValueOf(v)
	if fn.Kind() != reflect.Func {
		return reflect.Value{}, fmt.Errorf(`"func" is %T, want %s`, v, want)
	}
	t := fn.Type()
	ok := t.NumIn() == numIn && t.In(0) == worldType &&
		t.NumOut() == 1 && t.Out(0) == errorType
	if ok && numIn == 2 {
		ok = t.In(1) == argsType
	}
	if !ok {
		return reflect.Value{}, fmt.Errorf(`"func" has signature %s, want %s`, t, want)
	}
	return fn, nil
}

func callPluginFunc(fn reflect.Value, args ...reflect.Value) error {
	out := fn.Call(args)
	if e := out[0].Interface(); e != nil {
		return e.(error)
	}
	return nil
}
