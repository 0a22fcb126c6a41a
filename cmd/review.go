package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bountylab/reviewd/internal/chunker"
	"github.com/bountylab/reviewd/internal/fetch"
	"github.com/bountylab/reviewd/internal/models"
	"github.com/bountylab/reviewd/internal/output"
	"github.com/bountylab/reviewd/internal/review"
)

var (
	reviewTitle        string
	reviewDescription  string
	reviewRequirements []string
	reviewTechStack    []string
	reviewModel        string
	reviewPR           bool
	reviewSubmissionID string
	reviewSave         bool
)

var reviewCmd = &cobra.Command{
	Use:   "review <url>",
	Short: "Review a submission inline and print the result",
	Long: `Fetch a repository or pull request, run the AI review pipeline
against the given bounty context, and print the scored result. Large
repositories are split into chunks and the chunk reviews are merged.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewRun(cmd.Context(), args[0])
	},
}

func init() {
	reviewCmd.Flags().StringVarP(&reviewTitle, "title", "t", "", "Bounty title (required)")
	reviewCmd.Flags().StringVarP(&reviewDescription, "description", "d", "", "Bounty description")
	reviewCmd.Flags().StringSliceVarP(&reviewRequirements, "requirement", "r", nil, "Bounty requirement (repeatable)")
	reviewCmd.Flags().StringSliceVar(&reviewTechStack, "tech", nil, "Expected tech stack (repeatable)")
	reviewCmd.Flags().StringVarP(&reviewModel, "model", "m", "", "Model identifier (default from config)")
	reviewCmd.Flags().BoolVar(&reviewPR, "pr", false, "Treat the URL as a pull request")
	reviewCmd.Flags().StringVar(&reviewSubmissionID, "submission-id", "", "Submission ID to persist under")
	reviewCmd.Flags().BoolVar(&reviewSave, "save", false, "Persist the result (requires --submission-id)")
	_ = reviewCmd.MarkFlagRequired("title")

	rootCmd.AddCommand(reviewCmd)
}

func reviewRun(ctx context.Context, url string) error {
	if reviewSave && reviewSubmissionID == "" {
		return fmt.Errorf("--save requires --submission-id")
	}

	bounty := models.BountyContext{
		Title:        reviewTitle,
		Description:  reviewDescription,
		Requirements: reviewRequirements,
		TechStack:    reviewTechStack,
	}

	fetcher := fetch.NewGitHub()

	ui.Info("Fetching %s", url)
	var code models.CodeContext
	var err error
	if reviewPR {
		code, err = fetcher.PRData(ctx, url)
	} else {
		code, err = fetcher.RepositoryData(ctx, url)
	}
	if err != nil {
		return err
	}
	ui.VerboseLog("fetched %d key files", len(code.KeyFiles))

	result, err := generatePipeline(ctx, bounty, code, reviewModel)
	if err != nil {
		return err
	}

	label := review.MapLabel(result.OverallScore, result.SuggestedLabels)
	renderReview(result, label)

	if reviewSave {
		return persistReview(ctx, result, label, bounty)
	}
	return nil
}

// generatePipeline runs chunk/generate/aggregate for one submission.
func generatePipeline(ctx context.Context, bounty models.BountyContext, code models.CodeContext, modelID string) (*models.GeneratedReview, error) {
	budget := viper.GetInt("review.max_chunk_tokens")

	if !chunker.NeedsChunking(code.KeyFiles, budget) {
		return review.Generate(ctx, bounty, code, modelID)
	}

	chunks := chunker.Split(code.KeyFiles, budget)
	ui.Info("Splitting into %d chunks", len(chunks))

	results := make([]models.ReviewResult, 0, len(chunks))
	var tokens int
	var cost float64
	var model string

	for _, c := range chunks {
		ui.VerboseLog("reviewing chunk %d (%d files, ~%d tokens)", c.Index+1, len(c.Files), c.TotalTokens)
		gr, err := review.Generate(ctx, bounty, review.ChunkContext(code, c), modelID)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", c.Index, err)
		}
		results = append(results, gr.ReviewResult)
		tokens += gr.TokensUsed
		cost += gr.EstimatedCost
		model = gr.ModelUsed
	}

	merged, err := review.Aggregate(results, bounty)
	if err != nil {
		return nil, err
	}
	return &models.GeneratedReview{
		ReviewResult:  merged,
		TokensUsed:    tokens,
		ModelUsed:     model,
		EstimatedCost: cost,
	}, nil
}

func renderReview(r *models.GeneratedReview, label models.EarnLabel) {
	ui.Success("Overall %s/100 → %s (confidence %.2f)",
		output.ScoreColor(r.OverallScore), output.LabelColor(label), r.Confidence)

	table := ui.Table([]string{"Category", "Score", "Notes"})
	table.Append([]string{"Requirements", output.ScoreColor(r.RequirementMatch.Score), r.RequirementMatch.Notes})
	table.Append([]string{"Code quality", output.ScoreColor(r.CodeQuality.Score), r.CodeQuality.Notes})
	table.Append([]string{"Completeness", output.ScoreColor(r.Completeness.Score), r.Completeness.Notes})
	table.Append([]string{"Security", output.ScoreColor(r.Security.Score), r.Security.Notes})
	_ = table.Render()

	if len(r.RedFlags) > 0 {
		ui.Warning("%d red flags:", len(r.RedFlags))
		for _, f := range r.RedFlags {
			ui.Warning("  [%s] %s: %s", f.Severity, f.Type, f.Description)
		}
	}
	if len(r.MissingRequirements) > 0 {
		ui.Warning("Missing requirements:")
		for _, m := range r.MissingRequirements {
			ui.Warning("  - %s", m)
		}
	}

	ui.Info("%s", r.Summary)
	ui.Info("Model %s, ~%d tokens, est. cost $%.4f", r.ModelUsed, r.TokensUsed, r.EstimatedCost)
}

func persistReview(ctx context.Context, r *models.GeneratedReview, label models.EarnLabel, bounty models.BountyContext) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	resultJSON, err := json.Marshal(r.ReviewResult)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	inserted, err := s.SaveReview(ctx, &models.SubmissionReview{
		SubmissionID: reviewSubmissionID,
		BountyTitle:  bounty.Title,
		Score:        r.OverallScore,
		Label:        label,
		ResultJSON:   string(resultJSON),
		ModelUsed:    r.ModelUsed,
		TokensUsed:   r.TokensUsed,
		Cost:         r.EstimatedCost,
	})
	if err != nil {
		return err
	}
	if !inserted {
		ui.Warning("submission %s already has a persisted review, keeping it", reviewSubmissionID)
		return nil
	}
	ui.Success("Saved review for submission %s", reviewSubmissionID)
	return nil
}
