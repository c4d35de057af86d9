// Package steplib is the built-in step library for map-backed Worlds
// (engine.MapWorldFactory and plugin handlers use the same shape).
//
// Two groups ship today:
//
//   - Variable steps: set World entries, render text/template strings
//     against the World (strict mode, missing keys fail the step), and
//     assert on entries.
//   - Command steps: run a program with the step's context, capturing
//     stdout, stderr and the exit code into the World under "stdout",
//     "stderr" and "exit_code" for later assertions. The command line is
//     template-rendered against the World first and split on whitespace;
//     no shell is involved.
package steplib
