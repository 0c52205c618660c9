package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"dimi/core/auth"
)

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token <wallet>",
	Short: "签发上传令牌",
	Long:  `用 UPLOAD_JWT_SECRET 为钱包签发 /upload 使用的 Bearer 令牌。`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wallet, err := parseKeyArg("wallet", args[0])
		if err != nil {
			return err
		}
		issuer, err := auth.NewIssuer(cfg.UploadJWTSecret, tokenTTL)
		if err != nil {
			return err
		}
		token, err := issuer.GenerateToken(wallet)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", auth.DefaultTokenTTL, "有效期")
}
