package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of specrun",
		Long:  `All software has versions. This is specrun's.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("specrun version %s\n", rootCmd.Version)
		},
	}
}
