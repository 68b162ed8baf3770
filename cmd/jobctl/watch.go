package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tendant/simple-translator/internal/poller"
	"github.com/tendant/simple-translator/pkg/schema"
)

var watchCmd = &cobra.Command{
	Use:   "watch JOB_ID [JOB_ID...]",
	Short: "Poll existing jobs until each reaches a terminal status",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := make([]schema.JobID, len(args))
		for i, arg := range args {
			ids[i] = schema.JobID(arg)
		}
		return a.watchAll(cmd.Context(), ids)
	},
}

func init() { rootCmd.AddCommand(watchCmd) }

// watchAll runs one independent polling session per job. A failing session
// does not cancel the others.
func (a *app) watchAll(ctx context.Context, ids []schema.JobID) error {
	var g errgroup.Group
	errs := make([]error, len(ids))
	for i, id := range ids {
		g.Go(func() error {
			errs[i] = a.watch(ctx, id)
			return nil
		})
	}
	_ = g.Wait()
	a.poller.Wait()
	return errors.Join(errs...)
}

func (a *app) watch(ctx context.Context, id schema.JobID) error {
	logger := a.logger.With("job_id", id)
	obs := poller.Observers(
		poller.ObserverFuncs{
			StatusChange: func(jobID schema.JobID, status schema.JobStatus) error {
				logger.Info("job status changed", "status", status)
				return nil
			},
			Completion: func(jobID schema.JobID, payload schema.StatusPayload) error {
				logger.Info("job completed", "result", payload.Body)
				return nil
			},
		},
		a.eventObserver(),
	)

	res, err := a.poller.Poll(ctx, id, obs)
	if err != nil {
		if a.events != nil {
			if pubErr := a.events.PublishFailure(id, err); pubErr != nil {
				logger.Warn("publish failure event failed", "err", pubErr)
			}
		}
		fmt.Printf("%s\t%s\t%v\n", id, poller.FailureTypeOf(err), err)
		return err
	}

	fmt.Printf("%s\t%s\t%d requests in %s\n", id, res.Status, res.Attempts, res.Elapsed.Round(10*time.Millisecond))
	return nil
}

// eventObserver returns nil when NATS is not configured.
func (a *app) eventObserver() poller.StatusObserver {
	if a.events == nil {
		return nil
	}
	return a.events
}
