package cmd

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const develVersion = "(devel)"

// BuildVersion describes the binary as recorded by the go toolchain.
type BuildVersion struct {
	Module    string
	Commit    string
	Committed string
	Dirty     bool
	Go        string
}

func (v BuildVersion) String() string {
	commit := v.Commit
	if commit == "" || v.Dirty {
		commit = "@latest"
	}

	return fmt.Sprintf("%s (%s from %s, %s)", v.Module, commit, v.Committed, v.Go)
}

// Version returns the `version` command of name.
func Version(name string) *cobra.Command {
	name = strings.TrimSpace(name)

	short := "Print version"
	prefix := "version: "

	if name != "" {
		short = "Print " + name + " version"
		prefix = name + " version: "
	}

	return &cobra.Command{
		Use:                   "version",
		Short:                 short,
		Args:                  cobra.NoArgs,
		DisableFlagsInUseLine: true,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), prefix+ReadBuildVersion().String())
		},
	}
}

// ReadBuildVersion reads the module version and vcs stamp of the running binary.
// Binaries from `go run` or `go test` carry no vcs stamp, they report the current time.
func ReadBuildVersion() BuildVersion {
	v := BuildVersion{
		Module:    develVersion,
		Committed: time.Now().UTC().Format(time.RFC3339),
		Go:        runtime.Version(),
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return v
	}

	if info.Main.Version != "" {
		v.Module = info.Main.Version
	}

	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			v.Commit = s.Value
		case "vcs.time":
			v.Committed = s.Value
		case "vcs.modified":
			v.Dirty = s.Value == "true"
		}
	}

	return v
}
