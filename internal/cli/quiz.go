package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"

	"quizforge/internal/app"
	"quizforge/internal/domain"
	transport "quizforge/internal/transport/http"
)

// NewGenerateCmd asks the server to generate a quiz and remembers it.
func NewGenerateCmd(configPath *string) *cobra.Command {
	var topic string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a ten-question quiz on a topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newClientRuntime(cmd, *configPath)
			if err != nil {
				return err
			}
			defer rt.close()

			if _, err := rt.requireUser(); err != nil {
				return err
			}
			if topic == "" {
				if topic, err = rt.prompt("Topic: "); err != nil {
					return err
				}
			}
			fmt.Fprintf(rt.out, "Generating a quiz about %q...\n", topic)
			quiz, err := rt.api.GenerateQuiz(cmd.Context(), topic)
			if domain.IsRateLimit(err) {
				return fmt.Errorf("%w (generation is not retried automatically)", err)
			}
			if err != nil {
				return err
			}
			if err := rt.session.SetCurrentQuiz(cmd.Context(), quiz); err != nil {
				return err
			}
			fmt.Fprintf(rt.out, "Created quiz %s with %d questions.\n", quiz.ID, len(quiz.Questions))
			fmt.Fprintf(rt.out, "Share: %s\n", transport.TakeURL(rt.cfg.Server.PublicURL, quiz.ID))
			return nil
		},
	}
	cmd.Flags().StringVarP(&topic, "topic", "t", "", "quiz topic (prompted when empty)")
	return cmd
}

// NewShareCmd prints the participant link and writes it as a QR code PNG.
func NewShareCmd(configPath *string) *cobra.Command {
	var output string
	var size int
	cmd := &cobra.Command{
		Use:   "share [quizId]",
		Short: "Print the participant link and write a QR code",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newClientRuntime(cmd, *configPath)
			if err != nil {
				return err
			}
			defer rt.close()

			quizID, err := rt.quizArg(args)
			if err != nil {
				return err
			}
			quiz, err := rt.api.GetQuiz(cmd.Context(), quizID)
			if err != nil {
				return err
			}
			link := transport.TakeURL(rt.cfg.Server.PublicURL, quiz.ID)
			if output == "" {
				output = quiz.ID + ".png"
			}
			if err := qrcode.WriteFile(link, qrcode.Medium, size, output); err != nil {
				return fmt.Errorf("write qr code: %w", err)
			}
			fmt.Fprintf(rt.out, "%s\nQR code written to %s\n", link, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "PNG path (default <quizId>.png)")
	cmd.Flags().IntVar(&size, "size", 256, "QR code size in pixels")
	return cmd
}

// NewLeaderboardCmd prints the ranked results of a quiz.
func NewLeaderboardCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard [quizId]",
		Short: "Show a quiz leaderboard",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newClientRuntime(cmd, *configPath)
			if err != nil {
				return err
			}
			defer rt.close()

			quizID, err := rt.quizArg(args)
			if err != nil {
				return err
			}
			quiz, err := rt.api.GetQuiz(cmd.Context(), quizID)
			if err != nil {
				return err
			}
			results, err := rt.api.Leaderboard(cmd.Context(), quizID)
			if err != nil {
				return err
			}
			printLeaderboard(rt.out, quiz, app.BuildLeaderboard(quizID, results))
			return nil
		},
	}
}

// NewResultsCmd lists the signed-in user's results or shows one of them.
func NewResultsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "results [resultId]",
		Short: "Show your quiz results",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newClientRuntime(cmd, *configPath)
			if err != nil {
				return err
			}
			defer rt.close()

			if len(args) == 1 {
				result, err := rt.api.Result(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printResult(rt.out, result)
				return nil
			}

			user, err := rt.requireUser()
			if err != nil {
				return err
			}
			results, err := rt.api.ResultsByUser(cmd.Context(), user.ID)
			if err != nil {
				return err
			}
			printResults(rt.out, results, app.SummarizeResults(results))
			return nil
		},
	}
}

// quizArg resolves the quiz id from args (a bare id or a share link) or the
// remembered current quiz.
func (r *clientRuntime) quizArg(args []string) (string, error) {
	if len(args) == 1 && args[0] != "" {
		if id, ok := transport.QuizIDFromTakeURL(args[0]); ok {
			return id, nil
		}
		return args[0], nil
	}
	if quiz, ok := r.session.CurrentQuiz(); ok {
		return quiz.ID, nil
	}
	return "", &domain.ValidationError{Field: "quizId", Reason: "quiz id required (no current quiz)"}
}

func printLeaderboard(out io.Writer, quiz domain.Quiz, lb domain.Leaderboard) {
	fmt.Fprintf(out, "Leaderboard: %s\n", quiz.Topic)
	if len(lb.Entries) == 0 {
		fmt.Fprintln(out, "No attempts yet.")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tNAME\tSCORE\tPERCENT\t")
	for _, e := range lb.Entries {
		rank := e.Label
		if e.Badge != "" {
			rank += " " + e.Badge
		}
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%d%%\t\n", rank, e.Result.PlayerName, e.Result.Score, e.Result.TotalQuestions, e.Percentage)
	}
	_ = tw.Flush()
	fmt.Fprintf(out, "Participants: %d  Mean score: %.1f  Top score: %d\n", lb.Stats.Participants, lb.Stats.MeanScore, lb.Stats.MaxScore)
}

func printResult(out io.Writer, r domain.AttemptResult) {
	fmt.Fprintf(out, "%s: %s scored %d/%d (%d%%) on %s\n",
		r.ID, r.PlayerName, r.Score, r.TotalQuestions, r.Percentage(), r.CompletedAt.Format("2006-01-02 15:04"))
}

func printResults(out io.Writer, results []domain.AttemptResult, summary domain.ResultsSummary) {
	if len(results) == 0 {
		fmt.Fprintln(out, "No results yet.")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTOPIC\tSCORE\tPERCENT\tCOMPLETED\t")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%d%%\t%s\t\n", r.ID, r.Topic, r.Score, r.TotalQuestions, r.Percentage(), r.CompletedAt.Format("2006-01-02 15:04"))
	}
	_ = tw.Flush()
	fmt.Fprintf(out, "Attempts: %d  Average: %d%%  Best: %d%%\n", summary.Attempts, summary.AveragePercentage, summary.BestPercentage)
}
