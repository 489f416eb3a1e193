package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the cockpit CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("cockpit version %s\n", version)
		fmt.Println("An AI-assisted stock trading cockpit")
		fmt.Println("https://github.com/rustyeddy/cockpit")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
