package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	tracksArtist string
	beatsFanOut  int
)

var beatsCmd = &cobra.Command{
	Use:   "beats <owner>",
	Short: "列出某个制作人的 beat 及其 take",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := parseKeyArg("owner", args[0])
		if err != nil {
			return err
		}
		stack, err := newLedgerStack()
		if err != nil {
			return err
		}
		if beatsFanOut > 0 {
			stack.studio.SetFanOut(beatsFanOut)
		}
		beats, err := stack.studio.MyBeats(context.Background(), owner)
		if err != nil {
			return err
		}
		return printJSON(beats)
	},
}

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "公开且未归档的 beat",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stack, err := newLedgerStack()
		if err != nil {
			return err
		}
		beats, err := stack.studio.SharedFeed(context.Background())
		if err != nil {
			return err
		}
		return printJSON(beats)
	},
}

var tracksCmd = &cobra.Command{
	Use:   "tracks <beat>",
	Short: "列出某个 beat 上的 take",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		beat, err := parseKeyArg("beat", args[0])
		if err != nil {
			return err
		}
		stack, err := newLedgerStack()
		if err != nil {
			return err
		}
		ctx := context.Background()
		if tracksArtist == "" {
			tracks, err := stack.tracks.ListTracksByBeat(ctx, beat)
			if err != nil {
				return err
			}
			return printJSON(tracks)
		}
		artist, err := parseKeyArg("artist", tracksArtist)
		if err != nil {
			return err
		}
		tracks, err := stack.tracks.ListTracksByBeatAndArtist(ctx, beat, artist)
		if err != nil {
			return err
		}
		return printJSON(tracks)
	},
}

var userCmd = &cobra.Command{
	Use:   "user <authority>",
	Short: "查看用户账户",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		authority, err := parseKeyArg("authority", args[0])
		if err != nil {
			return err
		}
		stack, err := newLedgerStack()
		if err != nil {
			return err
		}
		u, err := stack.users.GetUserByAuthority(context.Background(), authority)
		if err != nil {
			return err
		}
		if u == nil {
			return fmt.Errorf("user %s is not registered", authority)
		}
		return printJSON(u)
	},
}

var configCmd = &cobra.Command{
	Use:   "program-config",
	Short: "查看程序全局配置账户",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stack, err := newLedgerStack()
		if err != nil {
			return err
		}
		c, err := stack.config.GetConfig(context.Background())
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("program config is not initialized")
		}
		return printJSON(c)
	},
}

func init() {
	rootCmd.AddCommand(beatsCmd, feedCmd, tracksCmd, userCmd, configCmd)
	beatsCmd.Flags().IntVar(&beatsFanOut, "fan-out", 0, "并发查询 take 的上限")
	tracksCmd.Flags().StringVar(&tracksArtist, "artist", "", "只看某个歌手的 take")
}
