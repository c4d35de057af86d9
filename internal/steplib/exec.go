package steplib

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"specrun/internal/stepdef"
)

func registerExecSteps(b *stepdef.Builder) {
	b.When(`I run "([^"]+)"`, runCommand)
	b.Then(`the command succeeds`, assertCommandSucceeded)
	b.Then(`the exit code is (\d+)`, assertExitCode)
	b.Then(`the output contains "([^"]+)"`, assertOutputContains)
}

// runCommand executes the template-rendered command line under the step's
// context and records stdout, stderr and the exit code in the World. A
// non-zero exit is not a step failure; assertions on the recorded values
// decide that. Only a command that cannot run at all fails the step.
func runCommand(ctx context.Context, sc *stepdef.StepContext) error {
	w, err := worldMap(sc)
	if err != nil {
		return err
	}
	line, err := renderTemplate(sc.Args[0], w)
	if err != nil {
		return err
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return fmt.Errorf("command %q is empty", sc.Args[0])
	}

	cmd := exec.CommandContext(ctx, fields[0], fields[1:]...)
	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	runErr := cmd.Run()

	w["stdout"] = stdoutBuf.String()
	w["stderr"] = stderrBuf.String()

	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
		w["exit_code"] = 0
	case errors.As(runErr, &exitErr):
		w["exit_code"] = exitErr.ExitCode()
	default:
		return fmt.Errorf("failed to run %q: %w. Stderr: %s", line, runErr, stderrBuf.String())
	}
	return nil
}

func assertCommandSucceeded(ctx context.Context, sc *stepdef.StepContext) error {
	w, err := worldMap(sc)
	if err != nil {
		return err
	}
	code, exists := w["exit_code"]
	if !exists {
		return fmt.Errorf("no command has run in this scenario")
	}
	if code != 0 {
		return fmt.Errorf("command exited with %v. Stderr: %v", code, w["stderr"])
	}
	return nil
}

func assertExitCode(ctx context.Context, sc *stepdef.StepContext) error {
	w, err := worldMap(sc)
	if err != nil {
		return err
	}
	want, err := strconv.Atoi(sc.Args[0])
	if err != nil {
		return err
	}
	code, exists := w["exit_code"]
	if !exists {
		return fmt.Errorf("no command has run in this scenario")
	}
	if code != want {
		return fmt.Errorf("exit code is %v, want %d", code, want)
	}
	return nil
}

func assertOutputContains(ctx context.Context, sc *stepdef.StepContext) error {
	w, err := worldMap(sc)
	if err != nil {
		return err
	}
	stdout, _ := w["stdout"].(string)
	if !strings.Contains(stdout, sc.Args[0]) {
		return fmt.Errorf("output does not contain %q:\n%s", sc.Args[0], stdout)
	}
	return nil
}
