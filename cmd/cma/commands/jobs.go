package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/fivetwenty-io/cma-client/internal/constants"
	"github.com/fivetwenty-io/cma-client/pkg/cma"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// jobResultView is a job result with its payload decoded for output.
type jobResultView struct {
	ID      string      `json:"id"      yaml:"id"`
	Status  int         `json:"status"  yaml:"status"`
	Payload interface{} `json:"payload" yaml:"payload"`
}

func newJobResultView(result *cma.JobResult) jobResultView {
	view := jobResultView{ID: result.ID, Status: result.Status}

	if len(result.Payload) > 0 {
		var payload interface{}
		if err := json.Unmarshal(result.Payload, &payload); err == nil {
			view.Payload = payload
		}
	}

	return view
}

// NewJobsCommand creates the jobs command group.
func NewJobsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "jobs",
		Aliases: []string{"job"},
		Short:   "Inspect asynchronous jobs",
		Long:    "Look up and wait for the results of asynchronous jobs",
	}

	cmd.AddCommand(newJobsGetCommand())
	cmd.AddCommand(newJobsWaitCommand())

	return cmd
}

func newJobsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get JOB_ID",
		Short: "Get job result",
		Long:  "Display the result of a completed job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			result, err := client.JobResults().Find(cmd.Context(), args[0])
			if err != nil {
				if cma.IsNotFound(err) {
					return fmt.Errorf("job %s has not completed yet: %w", args[0], err)
				}

				return fmt.Errorf("failed to get job result: %w", err)
			}

			return outputJobResult(cmd, result)
		},
	}
}

func newJobsWaitCommand() *cobra.Command {
	var (
		poll    bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "wait JOB_ID",
		Short: "Wait for a job result",
		Long: `Wait until a job completes and display its result.

The result is received over the realtime channel when one is configured,
otherwise (or with --poll) the job results endpoint is polled.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			usePoll := poll || loadConfig().Realtime.Cluster == ""

			result, err := waitForJobResult(ctx, client.JobResults(), args[0], usePoll)
			if err != nil {
				return fmt.Errorf("failed to wait for job %s: %w", args[0], err)
			}

			return outputJobResult(cmd, result)
		},
	}

	cmd.Flags().BoolVar(&poll, "poll", false, "poll the job results endpoint instead of using the realtime channel")
	cmd.Flags().DurationVar(&timeout, "timeout", constants.DefaultJobPollTimeout, "maximum time to wait")

	return cmd
}

// waitForJobResult waits for jobID over the realtime channel, or by polling
// when usePoll is set. A result published before the subscription completed
// is picked up by a lookup right after subscribing.
func waitForJobResult(ctx context.Context, jobResults cma.JobResultsClient, jobID string, usePoll bool) (*cma.JobResult, error) {
	if usePoll {
		log.Debug().Str("job_id", jobID).Msg("Polling for job result")

		return jobResults.PollUntilComplete(ctx, jobID)
	}

	err := jobResults.SubscribeToEvents(ctx)
	if err != nil {
		return nil, err
	}

	defer func() { _ = jobResults.UnsubscribeToEvents() }()

	result, err := jobResults.Find(ctx, jobID)
	if err == nil {
		return result, nil
	}

	if !cma.IsNotFound(err) {
		return nil, err
	}

	log.Debug().Str("job_id", jobID).Msg("Waiting for job result on the realtime channel")

	return jobResults.Fetch(ctx, jobID)
}

func outputJobResult(cmd *cobra.Command, result *cma.JobResult) error {
	view := newJobResultView(result)

	return render(cmd.OutOrStdout(), outputFormat(), view, func(table *tablewriter.Table) {
		table.Header("Property", "Value")
		_ = table.Append("ID", view.ID)
		_ = table.Append("Status", strconv.Itoa(view.Status))
		_ = table.Append("Payload", formatValue(view.Payload))
	})
}
