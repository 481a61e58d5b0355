package commands

import (
	"learnpath/internal/models"
	contextutils "learnpath/internal/utils"

	"github.com/spf13/cobra"
)

var (
	pathStudent string
	pathPace    string
	pathTopN    int
)

var pathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the personalized learning path for a student",
	RunE: func(cmd *cobra.Command, args []string) error {
		pace := models.Pace(pathPace)
		switch pace {
		case models.PaceSlow, models.PaceNormal, models.PaceFast:
		default:
			return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown pace %q", pathPace)
		}

		ctx := cmd.Context()
		container, err := newContainer(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = container.Close() }()

		records, err := container.AttemptStore.LoadAttemptsByStudent(ctx, pathStudent)
		if err != nil {
			return err
		}
		vectors, err := container.Analytics.AggregateFeatures(ctx, records)
		if err != nil {
			return err
		}
		rec, err := container.Recommendation.RecommendTopics(ctx, pathStudent, vectors, pathTopN)
		if err != nil {
			return err
		}
		path, err := container.LearningPath.GeneratePath(ctx, rec, pace)
		if err != nil {
			return err
		}
		return printJSON(path)
	},
}

func init() {
	pathCmd.Flags().StringVar(&pathStudent, "student", "", "student id")
	pathCmd.Flags().StringVar(&pathPace, "pace", "normal", "pace: slow, normal or fast")
	pathCmd.Flags().IntVar(&pathTopN, "top-n", 0, "number of topics in the path (0 = default)")
	_ = pathCmd.MarkFlagRequired("student")
}
