// Package cli holds the foldervault commands.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"foldervault/internal/config"
)

// VersionInfo is stamped into the binary at build time
type VersionInfo struct {
	Version string
	Commit  string
}

var buildInfo VersionInfo

func (v VersionInfo) String() string {
	return fmt.Sprintf("%s.%s", v.Version, v.Commit)
}

func NewRootCommand(info VersionInfo) *cobra.Command {
	var path string
	buildInfo = info

	cmd := &cobra.Command{
		Use:           "foldervault",
		Short:         "Hierarchical folder and file storage service",
		Long:          "foldervault stores files in a tree of folders, streams uploads into a storage backend and reports upload progress over Server-Sent Events.",
		SilenceErrors: true,
		SilenceUsage:  true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.Init(path)
		},
	}

	cmd.PersistentFlags().StringVar(&path, "config", "", "config file (default is ./foldervault.yaml)")
	cmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	viper.BindPFlag("log.level", cmd.PersistentFlags().Lookup("log-level"))

	cmd.Version = info.String()

	return cmd
}
