package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bountylab/reviewd/internal/models"
	"github.com/bountylab/reviewd/internal/queue"
	"github.com/bountylab/reviewd/internal/worker"
)

var (
	enqueueSubmissionID string
	enqueueExternalID   string
	enqueueTitle        string
	enqueueRequirements []string
	enqueueModel        string
	enqueuePR           bool
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <url>",
	Short: "Queue a submission for asynchronous review",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := getDispatcher()
		if err != nil {
			return err
		}

		kind := models.CodeKindRepository
		if enqueuePR {
			kind = models.CodeKindPullRequest
		}

		event, err := queue.NewEvent(queue.EventReviewSingle, worker.ReviewJob{
			SubmissionID: enqueueSubmissionID,
			ExternalID:   enqueueExternalID,
			Bounty: models.BountyContext{
				Title:        enqueueTitle,
				Requirements: enqueueRequirements,
			},
			URL:   args[0],
			Kind:  kind,
			Model: enqueueModel,
		})
		if err != nil {
			return err
		}

		jobID, err := d.Send(cmd.Context(), event, queue.DefaultJobOptions())
		if err != nil {
			return fmt.Errorf("enqueue submission: %w", err)
		}

		ui.Success("Queued submission %s as job %s", enqueueSubmissionID, jobID)
		return nil
	},
}

func init() {
	enqueueCmd.Flags().StringVar(&enqueueSubmissionID, "submission-id", "", "Submission ID (required)")
	enqueueCmd.Flags().StringVar(&enqueueExternalID, "external-id", "", "External listing ID")
	enqueueCmd.Flags().StringVarP(&enqueueTitle, "title", "t", "", "Bounty title (required)")
	enqueueCmd.Flags().StringSliceVarP(&enqueueRequirements, "requirement", "r", nil, "Bounty requirement (repeatable)")
	enqueueCmd.Flags().StringVarP(&enqueueModel, "model", "m", "", "Model identifier")
	enqueueCmd.Flags().BoolVar(&enqueuePR, "pr", false, "Treat the URL as a pull request")
	_ = enqueueCmd.MarkFlagRequired("submission-id")
	_ = enqueueCmd.MarkFlagRequired("title")

	rootCmd.AddCommand(enqueueCmd)
}
