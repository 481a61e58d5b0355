package commands

import (
	"os"

	contextutils "learnpath/internal/utils"

	"github.com/spf13/cobra"
)

var (
	quizgenTopic string
	quizgenFile  string
)

var quizgenCmd = &cobra.Command{
	Use:   "quizgen",
	Short: "Generate a quiz from a lesson text file",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(quizgenFile)
		if err != nil {
			return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "failed to read lesson file: %w", err)
		}

		ctx := cmd.Context()
		container, err := newContainer(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = container.Close() }()

		quiz, err := container.Quiz.ProcessLesson(ctx, quizgenTopic, string(data))
		if err != nil {
			return err
		}
		return printJSON(quiz)
	},
}

func init() {
	quizgenCmd.Flags().StringVar(&quizgenTopic, "topic", "", "lesson topic")
	quizgenCmd.Flags().StringVar(&quizgenFile, "file", "", "path to the lesson text file")
	_ = quizgenCmd.MarkFlagRequired("topic")
	_ = quizgenCmd.MarkFlagRequired("file")
}
