package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tendant/simple-translator/pkg/schema"
)

var statusCmd = &cobra.Command{
	Use:   "status JOB_ID",
	Short: "Print the current status of a job once, without polling",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := a.client.GetStatus(cmd.Context(), schema.JobID(args[0]))
		if err != nil {
			return err
		}
		status, err := schema.ParseJobStatus(payload.Result)
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\n", payload.JobID, status)
		return nil
	},
}

func init() { rootCmd.AddCommand(statusCmd) }
