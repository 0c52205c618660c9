package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"dimi/storage"
)

var (
	minioPrefix string
	minioStats  bool
	minioDelete bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "MinIO存储桶管理",
	Long:  `查看和管理上传服务使用的 MinIO 存储桶，支持列出对象、查看统计信息、按前缀删除。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("MinIO配置: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)
		store, err := storage.NewMinioStore(storage.MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			Region:    cfg.MinioRegion,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return err
		}
		ctx := context.Background()

		if minioDelete {
			if minioPrefix == "" {
				return fmt.Errorf("删除操作需要指定目录前缀")
			}
			n, err := store.DeletePrefix(ctx, minioPrefix)
			if err != nil {
				return fmt.Errorf("删除目录失败: %w", err)
			}
			fmt.Printf("已删除 %d 个对象\n", n)
			return nil
		}

		objects, stats, err := store.ListObjects(ctx, minioPrefix)
		if err != nil {
			return fmt.Errorf("列出文件失败: %w", err)
		}

		if minioStats {
			fmt.Printf("对象总数: %d\n", stats.TotalObjects)
			fmt.Printf("总大小: %s\n", storage.FormatSize(stats.TotalSize))
			if !stats.LastModified.IsZero() {
				fmt.Printf("最后修改: %s\n", stats.LastModified.Format("2006-01-02 15:04:05"))
			}
			types := make([]string, 0, len(stats.ByType))
			for ct := range stats.ByType {
				types = append(types, ct)
			}
			sort.Strings(types)
			for _, ct := range types {
				fmt.Printf("  %-24s %d\n", ct, stats.ByType[ct])
			}
			return nil
		}

		for _, obj := range objects {
			fmt.Printf("%-44s %10s  %s  %s\n", obj.Key, storage.FormatSize(obj.Size), obj.LastModified.Format("2006-01-02 15:04"), obj.SHA256)
		}
		fmt.Printf("\n共 %d 个对象, %s\n", stats.TotalObjects, storage.FormatSize(stats.TotalSize))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)

	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", storage.ObjectPrefix, "按前缀过滤或指定要删除的目录")
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "显示存储桶统计信息")
	minioCmd.Flags().BoolVarP(&minioDelete, "delete", "d", false, "删除指定前缀下的所有对象")

	minioCmd.Example = `  # 列出上传的对象
  dimi minio

  # 显示存储桶统计信息
  dimi minio -s

  # 删除前缀下的所有对象
  dimi minio -d -p "blobs/"`
}
