package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/capacity"
	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/config"
	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/domain"

	_ "modernc.org/sqlite"
)

//go:embed schema/local.sql
var localSchema string

// LocalStore 是没有配置远程数据库时使用的本地存储。
// 数据保存在单个 SQLite 文件里的一张 key-value 表中，value 是整条报名的 JSON
type LocalStore struct {
	cfg *config.Config
	db  *sql.DB
	now func() time.Time
}

func OpenLocal(ctx context.Context, cfg *config.Config) (*LocalStore, error) {
	if dir := filepath.Dir(cfg.Local.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, unavailable("create local store directory", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Local.Path)
	if err != nil {
		return nil, unavailable("open local store", err)
	}

	// SQLite 同一时间只允许一个写入者，只保留一个连接，事务天然串行
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, unavailable("apply pragma", err)
		}
	}

	if _, err := db.ExecContext(ctx, localSchema); err != nil {
		db.Close()
		return nil, unavailable("apply schema", err)
	}

	return &LocalStore{
		cfg: cfg,
		db:  db,
		now: time.Now,
	}, nil
}

func (s *LocalStore) Backend() string {
	return BackendLocal
}

func (s *LocalStore) Close() error {
	return s.db.Close()
}

func (s *LocalStore) Create(ctx context.Context, signup *domain.Signup) error {
	return s.create(ctx, signup, nil)
}

func (s *LocalStore) CreateWithinCapacity(ctx context.Context, signup *domain.Signup, catalog *domain.Catalog) error {
	return s.create(ctx, signup, catalog)
}

func (s *LocalStore) create(ctx context.Context, signup *domain.Signup, catalog *domain.Catalog) error {
	ctx, cancel := context.WithTimeout(ctx, transactionTimeout(s.cfg))
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if catalog != nil {
		current, err := listAll(ctx, tx)
		if err != nil {
			return err
		}

		for _, shift := range signup.SelectedShifts {
			slot, ok := catalog.Get(shift.ShiftID)
			if !ok {
				return domain.NewValidationError(domain.KindUnknownSlot, shift.ShiftID, "Shift slot %q does not exist.", shift.ShiftID)
			}
			if capacity.IsFull(slot, current) {
				return domain.SlotFullError(slot)
			}
		}
	}

	var last int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(created_at), 0) FROM signups`).Scan(&last); err != nil {
		return unavailable("read last timestamp", err)
	}

	record := *signup
	record.ID = uuid.NewString()
	record.Timestamp = nextTimestamp(s.now().UTC(), time.Unix(0, last).UTC())

	value, err := json.Marshal(&record)
	if err != nil {
		return err
	}

	query := `INSERT INTO signups (key, created_at, value) VALUES (?, ?, ?)`
	if _, err := tx.ExecContext(ctx, query, record.ID, record.Timestamp.UnixNano(), string(value)); err != nil {
		return unavailable("insert signup", err)
	}

	if err := tx.Commit(); err != nil {
		return unavailable("commit signup", err)
	}

	signup.ID = record.ID
	signup.Timestamp = record.Timestamp

	return nil
}

func (s *LocalStore) ListAll(ctx context.Context) ([]*domain.Signup, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout(s.cfg))
	defer cancel()

	return listAll(ctx, s.db)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listAll(ctx context.Context, q querier) ([]*domain.Signup, error) {
	rows, err := q.QueryContext(ctx, `SELECT created_at, value FROM signups ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, unavailable("list signups", err)
	}
	defer rows.Close()

	signups := []*domain.Signup{}
	for rows.Next() {
		var (
			createdAt int64
			value     string
		)
		if err := rows.Scan(&createdAt, &value); err != nil {
			return nil, unavailable("scan signup", err)
		}

		var signup domain.Signup
		if err := json.Unmarshal([]byte(value), &signup); err != nil {
			return nil, unavailable("decode signup", err)
		}
		signup.Timestamp = time.Unix(0, createdAt).UTC()

		signups = append(signups, &signup)
	}

	if err := rows.Err(); err != nil {
		return nil, unavailable("list signups", err)
	}

	return signups, nil
}

func (s *LocalStore) DeleteByID(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout(s.cfg))
	defer cancel()

	result, err := s.db.ExecContext(ctx, `DELETE FROM signups WHERE key = ?`, id)
	if err != nil {
		return unavailable("delete signup", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return unavailable("delete signup", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}
