package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"dimi/core/content"
	"dimi/core/dropfolder"
	"dimi/logger"
)

var watchSettle time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "监听投递目录并自动上传",
	Long:  `监听目录中新写入的音频文件，写入稳定后提交到上传服务并打印回执。`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		results := make(chan dropfolder.Result)
		w := dropfolder.New(args[0], remotePipeline(), results)
		w.SetSettle(watchSettle)
		w.SetMaxBytes(cfg.MaxBytes)

		errCh := make(chan error, 1)
		go func() { errCh <- w.Run(ctx) }()

		fetcher := content.NewHTTPFetcher(cfg.RPCTimeout)
		for {
			select {
			case err := <-errCh:
				return err
			case res := <-results:
				if res.Err != nil {
					continue
				}
				if publishVerify {
					if err := content.Verify(ctx, fetcher, res.Receipt); err != nil {
						logger.Error("校验失败", logger.String("path", res.Path), logger.ErrorField(err))
						continue
					}
				}
				printJSON(map[string]interface{}{"path": res.Path, "receipt": res.Receipt})
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchSettle, "settle", dropfolder.DefaultSettle, "文件多久无写入视为完成")
	watchCmd.Flags().StringVar(&publishToken, "token", os.Getenv("UPLOAD_TOKEN"), "上传服务的 Bearer 令牌")
	watchCmd.Flags().BoolVar(&publishVerify, "verify", false, "上传后从网关取回并校验摘要")
}
