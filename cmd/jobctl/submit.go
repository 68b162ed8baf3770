package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tendant/simple-translator/pkg/schema"
)

var (
	videoLength int
	jobCount    int
	noWatch     bool
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Create translation jobs and watch them to completion",
	RunE: func(cmd *cobra.Command, args []string) error {
		if videoLength < 0 {
			return fmt.Errorf("--video-length must not be negative (got %d)", videoLength)
		}
		if jobCount <= 0 {
			return fmt.Errorf("--count must be greater than zero (got %d)", jobCount)
		}

		ctx := cmd.Context()
		ids := make([]schema.JobID, 0, jobCount)
		for i := 0; i < jobCount; i++ {
			id, err := a.client.CreateJob(ctx, schema.CreateJobRequest{VideoLength: videoLength})
			if err != nil {
				return err
			}
			a.logger.Info("created translation job", "job_id", id, "video_length", videoLength)
			ids = append(ids, id)
		}

		if noWatch {
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		}
		return a.watchAll(ctx, ids)
	},
}

func init() {
	submitCmd.Flags().IntVar(&videoLength, "video-length", 10, "Video length in seconds")
	submitCmd.Flags().IntVar(&jobCount, "count", 1, "Number of jobs to create and watch concurrently")
	submitCmd.Flags().BoolVar(&noWatch, "no-watch", false, "Print job ids and exit without polling")
	rootCmd.AddCommand(submitCmd)
}
