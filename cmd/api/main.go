package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/cache"
	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/config"
	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/domain"
	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/handler"
	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/mailqueue"
	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/repository"

	_ "time/tzdata"
)

func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 加载配置
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法加载配置文件", "error", err)
		return
	}

	/**********************************************
	 * 打开存储，没有配置数据库时使用本地存储
	 **********************************************/
	store, err := repository.Open(context.Background(), cfg)
	if err != nil {
		logger.Error("无法打开存储", "error", err)
		return
	}
	defer store.Close()

	if store.Backend() == repository.BackendLocal {
		logger.Warn("未配置远程数据库，正在以单机模式运行", "path", cfg.Local.Path)
	} else {
		logger.Info("已连接到远程数据库")
	}

	/**********************************************
	 * 连接 rabbitmq，未配置时不发送确认邮件
	 **********************************************/
	var mailer mailqueue.Publisher = mailqueue.Nop{}
	if cfg.UseMailQueue() {
		conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
		if err != nil {
			logger.Error("无法连接到 rabbitmq", "error", err)
			return
		}
		defer conn.Close()

		// 建立通道
		ch, err := conn.Channel()
		if err != nil {
			logger.Error("无法建立通道", "error", err)
			return
		}
		defer ch.Close()

		// 声明队列
		if _, err := mailqueue.DeclareQueue(ch); err != nil {
			logger.Error("无法声明队列", "error", err)
			return
		}

		mailer = mailqueue.NewAMQPPublisher(ch, time.Duration(cfg.RabbitMQ.PublishTimeout)*time.Second)
	} else {
		logger.Warn("未配置 rabbitmq，不会发送报名确认邮件")
	}

	/**********************************************
	 * 连接 redis，未配置时不缓存容量汇总
	 **********************************************/
	var summaryCache cache.SummaryCache = cache.Nop{}
	if cfg.UseRedis() {
		rdb, err := cache.NewRedis(context.Background(), cfg)
		if err != nil {
			logger.Error("无法连接到 redis", "error", err)
			return
		}
		defer rdb.Close()

		summaryCache = rdb
	}

	/**********************************************
	 * 创建 handler
	 **********************************************/
	handler, err := handler.NewHandler(cfg, store, domain.DefaultCatalog(), summaryCache, mailer)
	if err != nil {
		logger.Error("无法创建 handler", "error", err)
		return
	}
	handler.RegisterRoutes()

	/**********************************************
	 * 启动 HTTP 服务器
	 **********************************************/
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      handler.Mux,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("正在启动服务器...", "port", cfg.Server.Port, "backend", store.Backend())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("无法启动服务器", slog.String("error", err.Error()))
			return
		}
	}()

	<-quit
	logger.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("关闭服务器失败", slog.String("error", err.Error()))
	}
	logger.Info("服务器已成功关闭")
}
