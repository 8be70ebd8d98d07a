package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"docchat/internal/tui"
)

func newChatCmd() *cobra.Command {
	var exportDir string
	cmd := &cobra.Command{
		Use:   "chat file [file...]",
		Short: "Index documents and chat with them in the terminal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := newRuntime(cmd, true)
			if err != nil {
				return err
			}
			defer r.Close()

			fmt.Fprintf(cmd.ErrOrStderr(), "Indexing %d file(s)...\n", len(args))
			report, err := r.ingest(cmd.Context(), args)
			if err != nil {
				return err
			}
			notice := fmt.Sprintf("Indexed %d chunks.", report.Chunks)
			if len(report.Warnings) > 0 {
				notice += " Skipped: " + strings.Join(report.Warnings, "; ")
			}

			m := tui.New(r.svc, tui.Options{Notice: notice, ExportDir: exportDir})
			_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
			return err
		},
	}
	cmd.Flags().StringVar(&exportDir, "export-dir", ".", "Directory for exported transcripts")
	return cmd
}
