package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quizforge/internal/app"
	"quizforge/internal/domain"
)

var errTakeAbandoned = errors.New("quiz abandoned")

// NewTakeCmd runs an interactive quiz-taking session in the terminal.
func NewTakeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "take [quizId|link]",
		Short: "Take a quiz",
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
			if err := rt.session.SetCurrentQuiz(cmd.Context(), quiz); err != nil {
				rt.log.Warn("could not remember quiz", zap.Error(err))
			}

			taker := app.NewTaker(quiz, rt.session, rt.api)
			reauth := func(ctx context.Context) error {
				_, err := rt.login(ctx, "", "")
				return err
			}
			result, err := runTake(cmd.Context(), taker, rt.in, rt.out, reauth)
			if err != nil {
				return err
			}
			rt.log.Info("attempt submitted", zap.String("result_id", result.ID))
			fmt.Fprintf(rt.out, "See how you rank: quizforge leaderboard %s\n", quiz.ID)
			return nil
		},
	}
}

// runTake drives taker from line-oriented input until the attempt is stored,
// the user quits, or input ends. reauth is called whenever the session is
// missing or expired.
func runTake(ctx context.Context, taker *app.Taker, in *bufio.Reader, out io.Writer, reauth func(context.Context) error) (domain.AttemptResult, error) {
	for {
		switch taker.Phase() {
		case app.PhaseUnauthenticated:
			fmt.Fprintln(out, "Sign in to take this quiz.")
			if err := signInAgain(ctx, taker, out, reauth); err != nil {
				return domain.AttemptResult{}, err
			}

		case app.PhaseNamePrompt:
			snap := taker.Snapshot()
			label := "Your name: "
			if snap.PlayerName != "" {
				label = fmt.Sprintf("Your name [%s]: ", snap.PlayerName)
			}
			name, err := readLine(in, out, label)
			if err != nil {
				return domain.AttemptResult{}, inputErr(err)
			}
			if name == "" {
				name = snap.PlayerName
			}
			if err := taker.Start(name); err != nil {
				fmt.Fprintf(out, "%v\n", err)
			}

		case app.PhaseInProgress:
			renderQuestion(out, taker.Snapshot())
			line, err := readLine(in, out, "> ")
			if err != nil {
				return domain.AttemptResult{}, inputErr(err)
			}
			if err := step(ctx, taker, line); err != nil {
				if errors.Is(err, errTakeAbandoned) {
					return domain.AttemptResult{}, err
				}
				fmt.Fprintf(out, "%v\n", err)
				if domain.IsAuth(err) {
					fmt.Fprintln(out, "Your session expired. Sign in again, then press Enter to submit.")
					if err := signInAgain(ctx, taker, out, reauth); err != nil {
						return domain.AttemptResult{}, err
					}
				} else if domain.IsNetwork(err) {
					fmt.Fprintln(out, "Your answers are kept. Press Enter to try again.")
				}
			}

		case app.PhaseCompleted:
			result, _ := taker.Result()
			fmt.Fprintf(out, "\nDone, %s! You scored %d/%d (%d%%).\n", result.PlayerName, result.Score, result.TotalQuestions, result.Percentage())
			return result, nil
		}
	}
}

func step(ctx context.Context, taker *app.Taker, line string) error {
	switch line {
	case "", "n":
		return taker.Advance(ctx)
	case "p":
		return taker.Retreat()
	case "q":
		return errTakeAbandoned
	}
	choice, err := strconv.Atoi(line)
	if err != nil {
		return &domain.ValidationError{Field: "input", Reason: "enter 1-4, Enter, p or q"}
	}
	return taker.Select(choice - 1)
}

// signInAgain retries reauth until the taker sees an identity or input ends.
func signInAgain(ctx context.Context, taker *app.Taker, out io.Writer, reauth func(context.Context) error) error {
	for {
		err := reauth(ctx)
		if err == nil && taker.Authenticate() {
			return nil
		}
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return inputErr(err)
			}
			fmt.Fprintf(out, "Sign in failed: %v\n", err)
		}
	}
}

func renderQuestion(out io.Writer, snap app.TakerSnapshot) {
	if snap.Question == nil {
		return
	}
	fmt.Fprintf(out, "\nQuestion %d of %d (%d%%)\n%s\n", snap.Index+1, snap.Total, int(snap.ProgressRatio*100), snap.Question.Prompt)
	for i, option := range snap.Question.Options {
		marker := " "
		if snap.Selected != nil && *snap.Selected == i {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %d) %s\n", marker, i+1, option)
	}
	next := "next"
	if snap.IsLast {
		next = "submit"
	}
	fmt.Fprintf(out, "[1-4] choose, Enter %s, p back, q quit\n", next)
}

func inputErr(err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return errTakeAbandoned
	}
	return err
}
