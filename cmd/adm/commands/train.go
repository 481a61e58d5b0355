package commands

import (
	"github.com/spf13/cobra"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Run one full training cycle over the attempt log",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		container, err := newContainer(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = container.Close() }()

		records, err := container.AttemptStore.LoadAttempts(ctx)
		if err != nil {
			return err
		}
		vectors, err := container.Analytics.AggregateFeatures(ctx, records)
		if err != nil {
			return err
		}

		globalReport, err := container.Mastery.TrainGlobal(ctx, vectors)
		if err != nil {
			return err
		}
		topicReport, err := container.Mastery.TrainPerTopic(ctx, vectors)
		if err != nil {
			return err
		}

		return printJSON(map[string]interface{}{
			"global": globalReport,
			"topics": topicReport,
		})
	},
}
