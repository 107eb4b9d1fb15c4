package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/config"
	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/domain"
	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/repository"
	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/seed"
)

func main() {
	var op int
	var n int
	var file string

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入随机报名, 2: 从导出的 CSV 文件导入报名)")
	flag.IntVar(&n, "n", 5, "要插入的记录数量")
	flag.StringVar(&file, "file", "", "要导入的 CSV 文件路径")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 和 API 使用同样的规则选择存储后端
	store, err := repository.Open(context.Background(), cfg)
	if err != nil {
		logger.Error("无法打开存储", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	logger.Info("已打开存储", "backend", store.Backend())

	catalog := domain.DefaultCatalog()
	ctx := context.Background()

	// 执行操作
	switch op {
	case 0:
		slog.Error("未指定操作")
	case 1:
		if n <= 0 {
			slog.Error("请输入合法的报名数量")
			return
		}

		cnt, err := seed.SeedRandomSignups(ctx, store, catalog, cfg.Seed.EmailDomain, n)
		if err != nil {
			slog.Error("插入报名失败", slog.Int("count", cnt), slog.String("error", err.Error()))
			return
		}
		slog.Info("插入报名成功", slog.Int("count", cnt))
	case 2:
		if file == "" {
			slog.Error("请指定要导入的文件")
			return
		}

		f, err := os.Open(file)
		if err != nil {
			slog.Error("打开文件失败", "error", err)
			return
		}
		defer f.Close()

		cnt, err := seed.ImportCSV(ctx, store, catalog, f)
		if err != nil {
			slog.Error("导入报名失败", slog.Int("count", cnt), slog.String("error", err.Error()))
			return
		}
		slog.Info("导入报名成功", slog.Int("count", cnt))
	default:
		slog.Error("指定的操作非法")
	}
}
