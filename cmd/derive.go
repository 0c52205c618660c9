package cmd

import (
	"github.com/spf13/cobra"

	"dimi/core/address"
)

var (
	deriveBeatID uint16
	deriveTake   uint16
)

var deriveCmd = &cobra.Command{
	Use:   "derive",
	Short: "计算程序派生地址",
}

var deriveConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "全局配置账户地址",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeriver()
		if err != nil {
			return err
		}
		pda, err := d.Config()
		if err != nil {
			return err
		}
		return printJSON(pda)
	},
}

var deriveUserCmd = &cobra.Command{
	Use:   "user <authority>",
	Short: "用户账户地址",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeriver()
		if err != nil {
			return err
		}
		authority, err := parseKeyArg("authority", args[0])
		if err != nil {
			return err
		}
		pda, err := d.User(authority)
		if err != nil {
			return err
		}
		return printJSON(pda)
	},
}

var deriveBeatCmd = &cobra.Command{
	Use:   "beat <owner>",
	Short: "beat 账户地址",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeriver()
		if err != nil {
			return err
		}
		owner, err := parseKeyArg("owner", args[0])
		if err != nil {
			return err
		}
		pda, err := d.Beat(owner, deriveBeatID)
		if err != nil {
			return err
		}
		return printJSON(pda)
	},
}

var deriveTrackCmd = &cobra.Command{
	Use:   "track <beat> <artist>",
	Short: "track 账户地址",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeriver()
		if err != nil {
			return err
		}
		beat, err := parseKeyArg("beat", args[0])
		if err != nil {
			return err
		}
		artist, err := parseKeyArg("artist", args[1])
		if err != nil {
			return err
		}
		pda, err := d.Track(beat, artist, deriveTake)
		if err != nil {
			return err
		}
		return printJSON(pda)
	},
}

func newDeriver() (*address.Deriver, error) {
	pid, err := programID()
	if err != nil {
		return nil, err
	}
	return address.NewDeriver(pid), nil
}

func init() {
	rootCmd.AddCommand(deriveCmd)
	deriveCmd.AddCommand(deriveConfigCmd, deriveUserCmd, deriveBeatCmd, deriveTrackCmd)

	deriveBeatCmd.Flags().Uint16Var(&deriveBeatID, "id", 0, "beatId")
	deriveTrackCmd.Flags().Uint16Var(&deriveTake, "take", 0, "take 序号")

	deriveCmd.Example = `  dimi derive config
  dimi derive user <wallet>
  dimi derive beat <wallet> --id 3
  dimi derive track <beat> <artist> --take 1`
}
