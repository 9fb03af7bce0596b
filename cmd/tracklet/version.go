package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hfleming/tracklet/internal/version"
)

var versionFull bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		if versionFull {
			fmt.Printf("tracklet %s\n", version.Full())
			return
		}
		fmt.Printf("tracklet version %s\n", version.Get())
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionFull, "full", false, "Include commit and build date")
}
