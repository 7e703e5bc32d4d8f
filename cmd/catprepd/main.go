package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/preplab/catprep/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "catprepd",
		Short: "CAT prep daemon and CLI",
		Long:  "Catprep daemon for running the API server and ingesting study material",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(cli.ServeCmd())
	rootCmd.AddCommand(cli.IngestCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
