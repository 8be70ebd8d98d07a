package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newAskCmd() *cobra.Command {
	var question string
	cmd := &cobra.Command{
		Use:   "ask --question q file [file...]",
		Short: "Answer one question about the given documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := newRuntime(cmd, false)
			if err != nil {
				return err
			}
			defer r.Close()

			if _, err := r.ingest(cmd.Context(), args); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			reply, _ := r.svc.Ask(cmd.Context(), question, func(tok string) {
				fmt.Fprint(out, tok)
			})
			if reply.Failed {
				if reply.Err != nil {
					return fmt.Errorf("%s (%w)", reply.Text, reply.Err)
				}
				return errors.New(reply.Text)
			}
			fmt.Fprintln(out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&question, "question", "q", "", "Question to ask")
	_ = cmd.MarkFlagRequired("question")
	return cmd
}
