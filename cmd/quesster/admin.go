package main

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quesster/client-sdk-go/services/payout"
	"github.com/quesster/client-sdk-go/services/quiz"
	"github.com/quesster/client-sdk-go/storage"
)

func newAdminCmd(run runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Contract owner actions",
	}

	var questID uint64
	distribute := &cobra.Command{Use: "distribute", Short: "Distribute rewards for a quest"}
	distribute.Flags().Uint64Var(&questID, "quest-id", 0, "quest id")
	_ = distribute.MarkFlagRequired("quest-id")
	distribute.RunE = run(func(ctx context.Context, a *app, out io.Writer) error {
		w, err := a.requireWallet()
		if err != nil {
			return err
		}
		ticket, err := a.orch.DistributeRewards(ctx, w, new(big.Int).SetUint64(questID))
		if err != nil {
			return err
		}
		_, err = await(ctx, out, ticket)
		return err
	})

	withdraw := &cobra.Command{Use: "withdraw", Short: "Withdraw the pot to the owner"}
	withdraw.RunE = run(func(ctx context.Context, a *app, out io.Writer) error {
		w, err := a.requireWallet()
		if err != nil {
			return err
		}
		ticket, err := a.orch.Withdraw(ctx, w)
		if err != nil {
			return err
		}
		_, err = await(ctx, out, ticket)
		return err
	})

	var firstQuestID uint64
	schedule := &cobra.Command{
		Use:   "schedule",
		Short: "Distribute rewards every day at schedule.distribute_at until interrupted",
	}
	schedule.Flags().Uint64Var(&firstQuestID, "quest-id", 0, "quest id for the first run; later runs add one per day")
	_ = schedule.MarkFlagRequired("quest-id")
	schedule.RunE = run(func(ctx context.Context, a *app, out io.Writer) error {
		w, err := a.requireWallet()
		if err != nil {
			return err
		}
		s, err := payout.NewScheduler(a.orch, w, new(big.Int).SetUint64(firstQuestID), a.settings.DistributeAt,
			payout.WithLogger(a.logger))
		if err != nil {
			return err
		}
		stopMetrics := a.serveMetrics()

		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		if err := s.Start(); err != nil {
			return err
		}
		fmt.Fprintf(out, "Distributing daily at %s, starting with quest %d. Ctrl-C to stop.\n", a.settings.DistributeAt, firstQuestID)

		<-ctx.Done()
		if err := s.Shutdown(); err != nil {
			a.logger.Warn("scheduler shutdown failed", "error", err)
		}
		return stopMetrics(context.Background())
	})

	cmd.AddCommand(distribute, withdraw, schedule)
	return cmd
}

func newQuestionsCmd(run runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "Manage the daily question bank",
	}

	var entry storage.BankEntry
	var difficulty string
	add := &cobra.Command{Use: "add", Short: "Add a question to the bank"}
	add.Flags().StringVar(&entry.Text, "text", "", "question text")
	add.Flags().StringArrayVar(&entry.Options, "option", nil, "answer option (repeat per option)")
	add.Flags().StringVar(&entry.CorrectAnswer, "correct", "", "correct answer; must equal one option")
	add.Flags().StringVar(&difficulty, "difficulty", string(quiz.DifficultyEasy), "easy | hard")
	add.RunE = run(func(ctx context.Context, a *app, out io.Writer) error {
		entry.Difficulty = quiz.Difficulty(difficulty)
		id, err := a.store.AddQuestion(ctx, &entry)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Added question %d\n", id)
		return nil
	})

	var id int64
	deactivate := &cobra.Command{Use: "deactivate", Short: "Remove a question from future daily selections"}
	deactivate.Flags().Int64Var(&id, "id", 0, "question id")
	_ = deactivate.MarkFlagRequired("id")
	deactivate.RunE = run(func(ctx context.Context, a *app, out io.Writer) error {
		if err := a.store.Deactivate(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(out, "Deactivated question %d\n", id)
		return nil
	})

	cmd.AddCommand(add, deactivate)
	return cmd
}
