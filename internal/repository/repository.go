package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/config"
	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/domain"
)

var (
	ErrNotFound         = errors.New("signup not found")
	ErrStoreUnavailable = errors.New("signup store unavailable")
)

const (
	BackendRemote = "remote"
	BackendLocal  = "local"
)

// Store 是报名记录的持久化边界，远程数据库和本地存储都实现这个接口。
// 启动时根据配置选定一个实现，之后所有调用都走同一个实例
type Store interface {
	// Create 写入一条新报名，由存储分配 ID 和时间戳
	Create(ctx context.Context, signup *domain.Signup) error
	// CreateWithinCapacity 在同一个事务中重新统计所选班次的人数，只有都还有空位时才写入，
	// 否则返回 KindSlotFull 的 *domain.ValidationError
	CreateWithinCapacity(ctx context.Context, signup *domain.Signup, catalog *domain.Catalog) error
	// ListAll 按时间戳倒序返回全部报名，出错时不会返回部分结果
	ListAll(ctx context.Context) ([]*domain.Signup, error)
	// DeleteByID 删除不存在的记录时返回 ErrNotFound
	DeleteByID(ctx context.Context, id string) error
	Backend() string
	Close() error
}

// Open 根据配置选择存储后端，只在启动时调用一次
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	if cfg.UseRemoteStore() {
		return OpenPostgres(ctx, cfg)
	}
	return OpenLocal(ctx, cfg)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

func queryTimeout(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Database.QueryTimeout) * time.Second
}

func transactionTimeout(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Database.TransactionTimeout) * time.Second
}

// nextTimestamp 保证同一个存储中的时间戳单调不减
func nextTimestamp(now time.Time, last time.Time) time.Time {
	if now.Before(last) {
		return last
	}
	return now
}
