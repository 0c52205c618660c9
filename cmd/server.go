package cmd

import (
	"dimi/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动上传服务",
	Long:  `启动内容上传服务：POST /upload 校验摘要后写入存储，返回可访问地址和摘要。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Start(cfg)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
