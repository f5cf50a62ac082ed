package cmd

import (
	"bytes"
	"sync"
	"testing"

	"github.com/spf13/cobra"
)

// commands are pointers shared between parallel tests, so only one executes at a time.
var executeMu sync.Mutex

// TestExecute runs command with args and returns everything it wrote to its out and err streams.
// All geocontrol commands write via cmd.OutOrStdout, so os.Stdout is left untouched.
func TestExecute(t *testing.T, command *cobra.Command, args ...string) (string, error) {
	t.Helper()

	executeMu.Lock()
	defer executeMu.Unlock()

	var out bytes.Buffer

	command.SetOut(&out)
	command.SetErr(&out)
	command.SetArgs(args)

	_, err := command.ExecuteC()

	command.SetOut(nil)
	command.SetErr(nil)

	return out.String(), err //nolint:wrapcheck // return the command's error as is
}
