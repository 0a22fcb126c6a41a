package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bountylab/reviewd/internal/accuracy"
	"github.com/bountylab/reviewd/internal/models"
	"github.com/bountylab/reviewd/internal/output"
)

var (
	accuracyDays       int
	recordSubmissionID string
	recordHumanScore   float64
	recordHumanLabel   string
)

var accuracyCmd = &cobra.Command{
	Use:   "accuracy",
	Short: "Show AI/human review accuracy metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := getStore()
		if err != nil {
			return err
		}
		v := accuracy.NewValidator(s, slog.New(slog.NewTextHandler(os.Stderr, nil)))

		var since time.Time
		if accuracyDays > 0 {
			since = time.Now().AddDate(0, 0, -accuracyDays)
		}

		m, err := v.Metrics(cmd.Context(), since)
		if err != nil {
			return err
		}

		if m.Total == 0 {
			ui.Info("No validations recorded yet")
			return nil
		}

		switch m.Status {
		case accuracy.StatusGood:
			ui.Success("Status: %s", output.Green(m.Status))
		case accuracy.StatusAcceptable:
			ui.Info("Status: %s", output.Yellow(m.Status))
		default:
			ui.Warning("Status: %s", output.Red(m.Status))
		}

		table := ui.Table([]string{"Metric", "Value"})
		table.Append([]string{"Validations", fmt.Sprintf("%d", m.Total)})
		table.Append([]string{"Score accuracy", fmt.Sprintf("%.1f%%", m.ScoreAccuracy)})
		table.Append([]string{"Label accuracy", fmt.Sprintf("%.1f%%", m.LabelAccuracy)})
		table.Append([]string{"Mean score delta", fmt.Sprintf("%.1f", m.MeanScoreDelta)})
		if err := table.Render(); err != nil {
			return err
		}

		if ui.Verbose && len(m.Confusion) > 0 {
			ui.Info("Confusion (human → AI):")
			for human, row := range m.Confusion {
				for ai, count := range row {
					ui.VerboseLog("%s → %s: %d", human, ai, count)
				}
			}
		}
		return nil
	},
}

var accuracyRecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a human review outcome for a submission",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := getStore()
		if err != nil {
			return err
		}

		review, err := s.GetReviewBySubmission(cmd.Context(), recordSubmissionID)
		if err != nil {
			return err
		}

		v := accuracy.NewValidator(s, slog.New(slog.NewTextHandler(os.Stderr, nil)))
		record := v.Record(cmd.Context(), recordSubmissionID,
			review.Score, review.Label,
			recordHumanScore, models.EarnLabel(recordHumanLabel))

		ui.Success("Recorded validation for %s", recordSubmissionID)
		ui.Info("Score: AI %.0f vs human %.0f (Δ %.0f, accurate=%t)",
			record.AIScore, record.HumanScore, record.ScoreDelta, record.ScoreAccurate)
		ui.Info("Label: AI %s vs human %s (accurate=%t)",
			output.LabelColor(record.AILabel), output.LabelColor(record.HumanLabel), record.LabelAccurate)
		return nil
	},
}

func init() {
	accuracyCmd.Flags().IntVar(&accuracyDays, "days", 0, "Only include validations from the last N days")

	accuracyRecordCmd.Flags().StringVar(&recordSubmissionID, "submission-id", "", "Submission ID (required)")
	accuracyRecordCmd.Flags().Float64Var(&recordHumanScore, "score", 0, "Human-assigned score 0-100 (required)")
	accuracyRecordCmd.Flags().StringVar(&recordHumanLabel, "label", "", "Human-assigned label (required)")
	_ = accuracyRecordCmd.MarkFlagRequired("submission-id")
	_ = accuracyRecordCmd.MarkFlagRequired("score")
	_ = accuracyRecordCmd.MarkFlagRequired("label")

	accuracyCmd.AddCommand(accuracyRecordCmd)
	rootCmd.AddCommand(accuracyCmd)
}
