package commands

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

// findSubcommand finds a subcommand by name within a cobra command.
func findSubcommand(cmd *cobra.Command, name string) *cobra.Command {
	for _, c := range cmd.Commands() {
		if c.Name() == name {
			return c
		}
	}

	return nil
}

// configure points the CLI at endpoint. Viper is global, so callers must not
// run in parallel.
func configure(t *testing.T, endpoint, output string) {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("api", endpoint)
	viper.Set("token", "test-token")
	viper.Set("output", output)
	viper.Set("cache.type", "none")
}

// execute runs cmd with args and returns what it printed.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())

	return out.String(), err
}

// mustExecute runs cmd and fails the test on error.
func mustExecute(t *testing.T, cmd *cobra.Command, args ...string) string {
	t.Helper()

	out, err := execute(t, cmd, args...)
	require.NoError(t, err)

	return out
}
