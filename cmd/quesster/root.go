package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/quesster/client-sdk-go/config"
	"github.com/quesster/client-sdk-go/services/quest"
	"github.com/quesster/client-sdk-go/types"
	"github.com/quesster/client-sdk-go/utils"
)

// waitTimeout 命令等待确认的上限（后台流程自身另有收据超时）
const waitTimeout = 5 * time.Minute

func newRootCmd() *cobra.Command {
	v := config.NewViper()
	var cfgFile string

	root := &cobra.Command{
		Use:           "quesster",
		Short:         "Play and administer the Quesster daily quiz on Celo",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	flags.String("rpc", "", "JSON-RPC endpoint (http(s):// or ws(s)://)")
	flags.String("log-level", "", "trace | debug | info | warn | error")
	flags.String("db", "", "PostgreSQL DSN; empty uses an in-memory store")
	flags.String("private-key", "", "hex private key of the signing account")
	flags.String("keystore", "", "path to a V3 keystore file")
	flags.String("password", "", "keystore password")
	for flag, key := range map[string]string{
		"rpc":         config.KeyRPCEndpoint,
		"log-level":   config.KeyLogLevel,
		"db":          config.KeyDatabaseURL,
		"private-key": config.KeyPrivateKey,
		"keystore":    config.KeyKeystorePath,
		"password":    config.KeyKeystorePassword,
	} {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}

	run := func(fn action) cobraRunE {
		return func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(v, cfgFile)
			if err != nil {
				return err
			}
			defer a.Close()
			err = fn(cmd.Context(), a, cmd.OutOrStdout())
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), types.UserMessage(err))
			}
			return err
		}
	}

	root.AddCommand(
		newStatusCmd(run),
		newApproveCmd(run),
		newTodayCmd(run),
		newJoinCmd(run),
		newCreateCmd(run),
		newMintBadgeCmd(run),
		newCommunityCmd(run),
		newLeaderboardCmd(run),
		newQuestionsCmd(run),
		newAdminCmd(run),
	)
	return root
}

// action 命令主体，运行在已初始化的 app 上
type action func(ctx context.Context, a *app, out io.Writer) error

type cobraRunE = func(*cobra.Command, []string) error

// runner 将 action 包装为 cobra RunE
type runner func(fn action) cobraRunE

func parseAddress(s string) (common.Address, error) {
	addr, err := utils.ParseAddress(s)
	if err != nil {
		return common.Address{}, types.NewValidationError("INVALID_ADDRESS", fmt.Sprintf("Invalid address %q.", s))
	}
	return addr, nil
}

// await 等待后台流程结束并打印结果
func await(ctx context.Context, out io.Writer, ticket *quest.Ticket) (*quest.Result, error) {
	fmt.Fprintf(out, "Sent %s: %s\n", ticket.Kind, ticket.Hash.Hex())

	ctx, cancel := context.WithTimeout(ctx, waitTimeout)
	defer cancel()
	res, err := ticket.Wait(ctx)
	if res != nil && res.Message != "" && err == nil {
		fmt.Fprintln(out, res.Message)
	}
	return res, err
}

func readJSONFile(path string, dst interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
