package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dimi/core/content"
)

var hashCmd = &cobra.Command{
	Use:   "hash <file>...",
	Short: "计算文件的 SHA-256",
	Long:  `流式计算文件摘要，输出格式与上传回执中的 sha256 一致。`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, path := range args {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			sum, n, err := content.HashReader(f)
			f.Close()
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  (%d bytes)\n", sum, path, n)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashCmd)
}
