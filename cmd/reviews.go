package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bountylab/reviewd/internal/output"
)

var reviewsLimit int

var reviewsCmd = &cobra.Command{
	Use:   "reviews",
	Short: "List persisted reviews",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := getStore()
		if err != nil {
			return err
		}

		reviews, err := s.ListReviews(cmd.Context(), reviewsLimit)
		if err != nil {
			return err
		}
		if len(reviews) == 0 {
			ui.Info("No reviews persisted yet")
			return nil
		}

		table := ui.Table([]string{"Submission", "Bounty", "Score", "Label", "Model", "Cost"})
		for _, r := range reviews {
			table.Append([]string{
				r.SubmissionID,
				r.BountyTitle,
				output.ScoreColor(r.Score),
				output.LabelColor(r.Label),
				r.ModelUsed,
				fmt.Sprintf("$%.4f", r.Cost),
			})
		}
		return table.Render()
	},
}

func init() {
	reviewsCmd.Flags().IntVarP(&reviewsLimit, "limit", "l", 20, "Maximum reviews to list")
	rootCmd.AddCommand(reviewsCmd)
}
