package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dimi/config"
	"dimi/core/address"
	"dimi/core/ledger"
	"dimi/core/studio"
	"dimi/logger"
	"dimi/repository"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "dimi",
	Short: "dimi 伴奏与录音账本客户端",
	Long:  `读取链上的用户、beat 和 track 账户，准备指令数据，并提供内容上传服务。`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		logger.InitLogger(logger.Config{
			Level:      cfg.LogLevel,
			OutputPath: cfg.LogFile,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
	SilenceUsage: true,
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func programID() (address.PublicKey, error) {
	if cfg.ProgramID == "" {
		return address.PublicKey{}, fmt.Errorf("PROGRAM_ID is not set")
	}
	id, err := address.ParsePublicKey(cfg.ProgramID)
	if err != nil {
		return address.PublicKey{}, fmt.Errorf("invalid PROGRAM_ID: %w", err)
	}
	return id, nil
}

// ledgerStack 账本读取需要的全部对象
type ledgerStack struct {
	deriver *address.Deriver
	beats   repository.BeatRepository
	tracks  repository.TrackRepository
	users   repository.UserRepository
	config  repository.ConfigRepository
	studio  *studio.Service
}

func newLedgerStack() (*ledgerStack, error) {
	pid, err := programID()
	if err != nil {
		return nil, err
	}
	client := ledger.NewClient(cfg.RPCURL, pid, cfg.RPCTimeout)
	deriver := address.NewDeriver(pid)
	s := &ledgerStack{
		deriver: deriver,
		beats:   repository.NewLedgerBeatRepository(client, deriver),
		tracks:  repository.NewLedgerTrackRepository(client),
		users:   repository.NewLedgerUserRepository(client, deriver),
		config:  repository.NewLedgerConfigRepository(client, deriver),
	}
	s.studio = studio.NewService(s.beats, s.tracks, s.users, deriver)
	return s, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseKeyArg(name, value string) (address.PublicKey, error) {
	pk, err := address.ParsePublicKey(value)
	if err != nil {
		return address.PublicKey{}, fmt.Errorf("invalid %s: %w", name, err)
	}
	return pk, nil
}
