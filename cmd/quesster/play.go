package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/quesster/client-sdk-go/services/community"
	"github.com/quesster/client-sdk-go/services/profile"
	"github.com/quesster/client-sdk-go/services/quest"
	"github.com/quesster/client-sdk-go/services/quiz"
	"github.com/quesster/client-sdk-go/utils"
)

func newStatusCmd(run runner) *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show allowance, join status, badge balance and score",
	}
	cmd.Flags().StringVar(&address, "address", "", "player address (defaults to the wallet)")
	cmd.RunE = run(func(ctx context.Context, a *app, out io.Writer) error {
		player, err := a.player(address)
		if err != nil {
			return err
		}
		state, err := a.orch.Refresh(ctx, player)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
		fmt.Fprintf(w, "Player\t%s\n", player.Hex())
		fmt.Fprintf(w, "Allowance\t%s cUSD (fee %s)\n",
			utils.FormatUnits(state.Allowance, utils.TokenDecimals),
			utils.FormatUnits(a.settings.Services.EntryFee, utils.TokenDecimals))
		fmt.Fprintf(w, "Joined today\t%t\n", state.HasJoined)
		fmt.Fprintf(w, "Genius badges\t%s\n", state.BadgeBalance)

		p, err := a.profiles.GetProfile(ctx, player)
		switch {
		case errors.Is(err, profile.ErrNotFound):
			fmt.Fprintf(w, "Score\t0\n")
		case err != nil:
			return err
		default:
			fmt.Fprintf(w, "Score\t%d\n", p.Score)
			fmt.Fprintf(w, "Streak\t%d\n", p.CurrentStreak)
		}
		return w.Flush()
	})
	return cmd
}

func newApproveCmd(run runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approve",
		Short: "Approve the game contract to take the entry fee and wait until it lands",
	}
	cmd.RunE = run(func(ctx context.Context, a *app, out io.Writer) error {
		w, err := a.requireWallet()
		if err != nil {
			return err
		}
		ticket, err := a.orch.Approve(ctx, w)
		if err != nil {
			return err
		}
		_, err = await(ctx, out, ticket)
		return err
	})
	return cmd
}

func newTodayCmd(run runner) *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "today",
		Short: "Print today's questions",
	}
	cmd.Flags().StringVar(&mode, "mode", string(quiz.ModeDaily), "daily | pro")
	cmd.RunE = run(func(ctx context.Context, a *app, out io.Writer) error {
		m, err := quiz.ParseMode(mode)
		if err != nil {
			return err
		}
		questions, err := a.quizzes.Today(ctx, m)
		if err != nil {
			return err
		}
		if len(questions) == 0 {
			fmt.Fprintln(out, "No questions in the bank yet.")
			return nil
		}
		for i, q := range questions {
			fmt.Fprintf(out, "%d. %s\n", i+1, q.Text)
			for _, o := range q.Options {
				fmt.Fprintf(out, "   - %s\n", o)
			}
		}
		return nil
	})
	return cmd
}

func newJoinCmd(run runner) *cobra.Command {
	var (
		mode    string
		answers []string
	)
	cmd := &cobra.Command{
		Use:   "join",
		Short: "Commit today's answers on-chain",
		Example: `  quesster join --answer Paris --answer 4 --answer Blue
  quesster join --mode pro --answer ... --answer ... --answer ...`,
	}
	cmd.Flags().StringVar(&mode, "mode", string(quiz.ModeDaily), "daily | pro")
	cmd.Flags().StringArrayVar(&answers, "answer", nil, "answer, in question order (repeat per question)")
	cmd.RunE = run(func(ctx context.Context, a *app, out io.Writer) error {
		m, err := quiz.ParseMode(mode)
		if err != nil {
			return err
		}
		questions, err := a.quizzes.Today(ctx, m)
		if err != nil {
			return err
		}
		if len(questions) == 0 {
			return fmt.Errorf("no %s questions available today", m)
		}
		w, err := a.requireWallet()
		if err != nil {
			return err
		}
		ticket, err := a.orch.Join(ctx, w, m, questions, answers)
		if err != nil {
			return err
		}
		res, err := await(ctx, out, ticket)
		if err != nil {
			return err
		}
		if res.Warning != nil {
			fmt.Fprintln(out, "Warning:", res.Message)
		}
		if res.Score != nil && res.Score.Profile != nil {
			fmt.Fprintf(out, "Score %d, streak %d\n", res.Score.Profile.Score, res.Score.Profile.CurrentStreak)
		}
		return nil
	})
	return cmd
}

func newCreateCmd(run runner) *cobra.Command {
	var (
		title    string
		fee      string
		duration uint64
		file     string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a community quiz from a JSON question file",
		Long: `Create a community quiz. The file holds a JSON array of
{"text": "...", "options": ["..."], "correct": "..."} objects; each correct
answer must equal one of its options exactly.`,
	}
	cmd.Flags().StringVar(&title, "title", "", "quiz title")
	cmd.Flags().StringVar(&fee, "fee", "0.1", "entry fee in cUSD")
	cmd.Flags().Uint64Var(&duration, "duration", 24, "duration in hours")
	cmd.Flags().StringVar(&file, "file", "", "questions JSON file")
	_ = cmd.MarkFlagRequired("file")
	cmd.RunE = run(func(ctx context.Context, a *app, out io.Writer) error {
		var questions []community.Question
		if err := readJSONFile(file, &questions); err != nil {
			return err
		}
		entryFee, err := utils.ParseUnits(fee, utils.TokenDecimals)
		if err != nil {
			return err
		}
		w, err := a.requireWallet()
		if err != nil {
			return err
		}
		ticket, err := a.orch.CreateQuest(ctx, w, &quest.CreateRequest{
			Title:         title,
			EntryFee:      entryFee,
			DurationHours: duration,
			Questions:     questions,
		})
		if err != nil {
			return err
		}
		res, err := await(ctx, out, ticket)
		if err != nil {
			return err
		}
		if res.Warning != nil {
			fmt.Fprintln(out, "Warning:", res.Message)
		}
		if res.Quiz != nil {
			fmt.Fprintf(out, "Listed as %s\n", res.Quiz.ID)
		}
		return nil
	})
	return cmd
}

func newMintBadgeCmd(run runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mint-badge",
		Short: "Mint the Genius badge that unlocks Pro mode",
	}
	cmd.RunE = run(func(ctx context.Context, a *app, out io.Writer) error {
		w, err := a.requireWallet()
		if err != nil {
			return err
		}
		ticket, err := a.orch.MintBadge(ctx, w)
		if err != nil {
			return err
		}
		_, err = await(ctx, out, ticket)
		return err
	})
	return cmd
}

func newCommunityCmd(run runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "community",
		Short: "Browse and play community quizzes",
	}

	var limit int
	list := &cobra.Command{Use: "list", Short: "List community quizzes, newest first"}
	list.Flags().IntVar(&limit, "limit", 20, "maximum quizzes to show")
	list.RunE = run(func(ctx context.Context, a *app, out io.Writer) error {
		quizzes, err := a.community.List(ctx, limit)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tQUESTIONS\tCREATOR\tCREATED")
		for _, q := range quizzes {
			creator, err := parseAddress(q.Creator)
			name := q.Creator
			if err == nil {
				name = utils.ShortAddress(creator)
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", q.ID, q.Title, len(q.Questions), name, q.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	})

	var (
		id      string
		answers []string
	)
	play := &cobra.Command{Use: "play", Short: "Score answers against a community quiz"}
	play.Flags().StringVar(&id, "id", "", "quiz id")
	play.Flags().StringArrayVar(&answers, "answer", nil, "answer, in question order (repeat per question)")
	_ = play.MarkFlagRequired("id")
	play.RunE = run(func(ctx context.Context, a *app, out io.Writer) error {
		quizID, err := uuid.Parse(id)
		if err != nil {
			return fmt.Errorf("invalid quiz id %q: %w", id, err)
		}
		res, err := a.community.Play(ctx, quizID, answers)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, res.Message)
		return nil
	})

	cmd.AddCommand(list, play)
	return cmd
}

func newLeaderboardCmd(run runner) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the top players by score",
	}
	cmd.Flags().IntVar(&limit, "limit", profile.DefaultLeaderboardSize, "number of players")
	cmd.RunE = run(func(ctx context.Context, a *app, out io.Writer) error {
		top, err := a.profiles.Leaderboard(ctx, limit)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
		fmt.Fprintln(w, "#\tPLAYER\tSCORE\tSTREAK")
		for i, p := range top {
			fmt.Fprintf(w, "%d\t%s\t%d\t%d\n", i+1, p.WalletAddress, p.Score, p.CurrentStreak)
		}
		return w.Flush()
	})
	return cmd
}
