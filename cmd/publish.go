package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dimi/core/codec"
	"dimi/core/content"
	"dimi/core/dropfolder"
	"dimi/core/studio"
	"dimi/logger"
	"dimi/storage"
)

var (
	publishToken       string
	publishContentType string
	publishVerify      bool

	beatTitle string
	beatBPM   uint16
	beatKey   string
	beatTags  []string
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "上传音频并准备创建指令",
	Long:  `先检查用户角色、元数据和内容类型，再把音频文件提交到上传服务，校验摘要后输出账户地址和 beat_create / track_create 指令数据。`,
}

var publishBeatCmd = &cobra.Command{
	Use:   "beat <owner> <file>",
	Short: "发布一个 beat",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := parseKeyArg("owner", args[0])
		if err != nil {
			return err
		}
		ct, err := resolveContentType(args[1])
		if err != nil {
			return err
		}
		stack, err := newLedgerStack()
		if err != nil {
			return err
		}
		ctx := context.Background()
		pending, err := stack.studio.CheckBeatCreate(ctx, owner, studio.BeatDraft{
			Title:      beatTitle,
			BPM:        beatBPM,
			MusicalKey: beatKey,
			Tags:       beatTags,
		}, ct)
		if err != nil {
			return err
		}
		receipt, err := uploadFile(ctx, args[1], ct)
		if err != nil {
			return err
		}
		plan, err := pending.Finish(receipt)
		if err != nil {
			return err
		}
		return printJSON(map[string]interface{}{"receipt": receipt, "plan": plan})
	},
}

var publishTrackCmd = &cobra.Command{
	Use:   "track <beat> <artist> <file>",
	Short: "在 beat 上发布一条 take",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		beat, err := parseKeyArg("beat", args[0])
		if err != nil {
			return err
		}
		artist, err := parseKeyArg("artist", args[1])
		if err != nil {
			return err
		}
		ct, err := resolveContentType(args[2])
		if err != nil {
			return err
		}
		stack, err := newLedgerStack()
		if err != nil {
			return err
		}
		ctx := context.Background()
		pending, err := stack.studio.CheckTrackCreate(ctx, beat, artist, ct)
		if err != nil {
			return err
		}
		receipt, err := uploadFile(ctx, args[2], ct)
		if err != nil {
			return err
		}
		plan, err := pending.Finish(receipt)
		if err != nil {
			return err
		}
		return printJSON(map[string]interface{}{"receipt": receipt, "plan": plan})
	},
}

func remotePipeline() *content.Pipeline {
	remote := storage.NewRemoteStore(cfg.UploadAPI, cfg.RPCTimeout)
	if publishToken != "" {
		remote.SetToken(publishToken)
	}
	return content.NewPipeline(remote, cfg.GatewayPrefix)
}

// resolveContentType --content-type 优先，其次按扩展名推断，都没有时用默认类型。
// 结果必须放得进账户的定长字段。
func resolveContentType(path string) (string, error) {
	ct := publishContentType
	if ct == "" {
		ct, _ = dropfolder.AudioContentType(path)
	}
	if ct == "" {
		ct = content.DefaultContentType
	}
	if _, err := codec.ContentType(ct); err != nil {
		return "", fmt.Errorf("content type %q: %w", ct, err)
	}
	return ct, nil
}

// uploadFile 本地先算摘要，上传服务会再校验一次
func uploadFile(ctx context.Context, path, ct string) (*content.Receipt, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := content.ReadBlob(f, cfg.MaxBytes)
	if err != nil {
		return nil, err
	}

	receipt, err := remotePipeline().Submit(ctx, content.Blob{Data: data, ContentType: ct})
	if err != nil {
		return nil, err
	}

	if publishVerify {
		if err := content.Verify(ctx, content.NewHTTPFetcher(cfg.RPCTimeout), receipt); err != nil {
			return nil, err
		}
		logger.Info("已取回并校验内容", logger.String("uri", receipt.URI))
	}
	return receipt, nil
}

func init() {
	rootCmd.AddCommand(publishCmd)
	publishCmd.AddCommand(publishBeatCmd, publishTrackCmd)

	publishCmd.PersistentFlags().StringVar(&publishToken, "token", os.Getenv("UPLOAD_TOKEN"), "上传服务的 Bearer 令牌")
	publishCmd.PersistentFlags().StringVar(&publishContentType, "content-type", "", "覆盖按扩展名推断的类型")
	publishCmd.PersistentFlags().BoolVar(&publishVerify, "verify", false, "上传后从网关取回并校验摘要")

	publishBeatCmd.Flags().StringVar(&beatTitle, "title", "", "标题")
	publishBeatCmd.Flags().Uint16Var(&beatBPM, "bpm", 0, "BPM")
	publishBeatCmd.Flags().StringVar(&beatKey, "key", "", "调式，例如 Am")
	publishBeatCmd.Flags().StringSliceVar(&beatTags, "tag", nil, "标签，可重复")
	publishBeatCmd.MarkFlagRequired("title")
}
