package commands

import (
	"github.com/spf13/cobra"
)

var (
	recommendStudent string
	recommendTopN    int
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Print the weakness-ranked topic recommendations for a student",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		container, err := newContainer(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = container.Close() }()

		records, err := container.AttemptStore.LoadAttemptsByStudent(ctx, recommendStudent)
		if err != nil {
			return err
		}
		vectors, err := container.Analytics.AggregateFeatures(ctx, records)
		if err != nil {
			return err
		}
		rec, err := container.Recommendation.RecommendTopics(ctx, recommendStudent, vectors, recommendTopN)
		if err != nil {
			return err
		}
		return printJSON(rec)
	},
}

func init() {
	recommendCmd.Flags().StringVar(&recommendStudent, "student", "", "student id")
	recommendCmd.Flags().IntVar(&recommendTopN, "top-n", 0, "number of topics to recommend (0 = default)")
	_ = recommendCmd.MarkFlagRequired("student")
}
