package steplib

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"specrun/internal/stepdef"
)

// RegisterSteps adds the built-in variable and command steps to b.
func RegisterSteps(b *stepdef.Builder) {
	registerVarSteps(b)
	registerExecSteps(b)
}

func registerVarSteps(b *stepdef.Builder) {
	b.Given(`the variable "([^"]+)" is "([^"]*)"`, setVariable)
	b.When(`I render "([^"]+)" into "([^"]+)"`, renderIntoVariable)
	b.When(`I render the template into "([^"]+)"`, renderDocStringIntoVariable)
	b.Then(`the variable "([^"]+)" equals "([^"]*)"`, assertVariable)
}

func worldMap(sc *stepdef.StepContext) (map[string]interface{}, error) {
	w, ok := sc.World.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("built-in steps need a map World, got %T", sc.World)
	}
	return w, nil
}

// renderTemplate executes src against the World in strict mode, so a step
// referencing a variable nothing has set fails instead of printing
// "<no value>".
func renderTemplate(src string, world map[string]interface{}) (string, error) {
	tmpl, err := template.New("step").Option("missingkey=error").Parse(src)
	if err != nil {
		return "", fmt.Errorf("invalid template %q: %w", src, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, world); err != nil {
		return "", fmt.Errorf("rendering %q: %w", src, err)
	}
	return buf.String(), nil
}

func setVariable(ctx context.Context, sc *stepdef.StepContext) error {
	w, err := worldMap(sc)
	if err != nil {
		return err
	}
	w[sc.Args[0]] = sc.Args[1]
	return nil
}

func renderIntoVariable(ctx context.Context, sc *stepdef.StepContext) error {
	w, err := worldMap(sc)
	if err != nil {
		return err
	}
	rendered, err := renderTemplate(sc.Args[0], w)
	if err != nil {
		return err
	}
	w[sc.Args[1]] = rendered
	return nil
}

func renderDocStringIntoVariable(ctx context.Context, sc *stepdef.StepContext) error {
	w, err := worldMap(sc)
	if err != nil {
		return err
	}
	if sc.DocString == nil {
		return fmt.Errorf("step needs a doc string holding the template")
	}
	rendered, err := renderTemplate(sc.DocString.Content, w)
	if err != nil {
		return err
	}
	w[sc.Args[0]] = rendered
	return nil
}

func assertVariable(ctx context.Context, sc *stepdef.StepContext) error {
	w, err := worldMap(sc)
	if err != nil {
		return err
	}
	name, want := sc.Args[0], sc.Args[1]
	got, exists := w[name]
	if !exists {
		return fmt.Errorf("variable %q is not set", name)
	}
	if fmt.Sprint(got) != want {
		return fmt.Errorf("variable %q is %q, want %q", name, fmt.Sprint(got), want)
	}
	return nil
}
