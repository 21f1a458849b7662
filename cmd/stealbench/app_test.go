package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	app.ExitErrHandler = func(*cli.Context, error) {}

	err := app.Run(append([]string{"stealbench"}, args...))
	return out.String(), err
}

func TestRunCommand_Succeeds(t *testing.T) {
	out, err := runApp(t, "run", "--threads", "2", "--tasks", "20", "--task-duration", "1ms", "--producers", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "20 correct, 0 wrong, 0 failed")
	assert.Contains(t, out, "workers:   2 (affinity routing, producers)")
}

func TestRunCommand_Skew(t *testing.T) {
	out, err := runApp(t, "run", "--threads", "2", "--tasks", "10", "--skew", "--routing", "affinity", "--log-format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, "(affinity routing, skew)")
}

func TestRunCommand_InvalidFlags(t *testing.T) {
	cases := map[string][]string{
		"routing":    {"run", "--routing", "fastest"},
		"log level":  {"run", "--log-level", "loud"},
		"log format": {"run", "--log-format", "xml"},
		"tasks":      {"run", "--tasks", "0"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := runApp(t, args...)
			var exitErr cli.ExitCoder
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.ExitCode())
		})
	}
}
