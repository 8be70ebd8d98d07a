package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const longDesc = `docchat answers questions about PDF and Word documents.

Documents are extracted, chunked, embedded and indexed in memory; questions
are answered from the retrieved passages by a hosted chat model or a local
extractive reader.

  docchat chat report.pdf notes.docx     Interactive terminal chat
  docchat ask -q "What is it about?" a.pdf
  docchat serve                          Run the HTTP API
  docchat config init                    Write the default config`

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "docchat",
		Short:         "Chat with your documents",
		Long:          longDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	cmd.PersistentFlags().String("config", "", "Path to YAML config file (default ./config.yaml or ~/.config/docchat/config.yaml)")
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")

	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
