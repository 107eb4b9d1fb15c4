package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/config"
	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/domain"

	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed schema/postgres.sql
var postgresSchema string

// PostgresStore 把每条报名作为一个文档保存，selected_shifts 是 JSONB 列
type PostgresStore struct {
	cfg    *config.Config
	dbpool *sql.DB
}

func NewPostgresStore(cfg *config.Config, dbpool *sql.DB) *PostgresStore {
	return &PostgresStore{
		cfg:    cfg,
		dbpool: dbpool,
	}
}

func OpenPostgres(ctx context.Context, cfg *config.Config) (*PostgresStore, error) {
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		return nil, unavailable("open database", err)
	}

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		dbpool.Close()
		return nil, unavailable("ping database", err)
	}

	if _, err := dbpool.ExecContext(ctx, postgresSchema); err != nil {
		dbpool.Close()
		return nil, unavailable("apply schema", err)
	}

	return NewPostgresStore(cfg, dbpool), nil
}

func (s *PostgresStore) Backend() string {
	return BackendRemote
}

func (s *PostgresStore) Close() error {
	return s.dbpool.Close()
}

func (s *PostgresStore) Create(ctx context.Context, signup *domain.Signup) error {
	return s.create(ctx, signup, nil)
}

func (s *PostgresStore) CreateWithinCapacity(ctx context.Context, signup *domain.Signup, catalog *domain.Catalog) error {
	return s.create(ctx, signup, catalog)
}

func (s *PostgresStore) create(ctx context.Context, signup *domain.Signup, catalog *domain.Catalog) error {
	shifts, err := json.Marshal(signup.SelectedShifts)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, transactionTimeout(s.cfg))
	defer cancel()

	tx, err := s.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 所有写入共用同一把事务级咨询锁，保证容量检查和插入之间不会有其他写入
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext('signups'))`); err != nil {
		return unavailable("lock signups", err)
	}

	if catalog != nil {
		for _, shift := range signup.SelectedShifts {
			slot, ok := catalog.Get(shift.ShiftID)
			if !ok {
				return domain.NewValidationError(domain.KindUnknownSlot, shift.ShiftID, "Shift slot %q does not exist.", shift.ShiftID)
			}

			taken, err := s.countHolders(ctx, tx, slot.ID)
			if err != nil {
				return unavailable("count slot holders", err)
			}
			if taken >= slot.Capacity {
				return domain.SlotFullError(slot)
			}
		}
	}

	query := `
		INSERT INTO signups (id, name, email, selected_shifts, created_at)
		VALUES ($1, $2, $3, $4::jsonb, GREATEST(now(), (SELECT max(created_at) FROM signups)))
		RETURNING created_at
	`

	id := uuid.NewString()
	var createdAt time.Time
	if err := tx.QueryRowContext(ctx, query, id, signup.Name, signup.Email, string(shifts)).Scan(&createdAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "signups_selected_shifts_check" {
			return domain.NewValidationError(domain.KindSelectionCount, "", "Please select exactly %d shift slots.", domain.RequiredSelections)
		}
		return unavailable("insert signup", err)
	}

	if err := tx.Commit(); err != nil {
		return unavailable("commit signup", err)
	}

	signup.ID = id
	signup.Timestamp = createdAt.UTC()

	return nil
}

func (s *PostgresStore) countHolders(ctx context.Context, tx *sql.Tx, slotID string) (int, error) {
	probe, err := json.Marshal([]map[string]string{{"shiftId": slotID}})
	if err != nil {
		return 0, err
	}

	var taken int
	query := `SELECT count(*) FROM signups WHERE selected_shifts @> $1::jsonb`
	if err := tx.QueryRowContext(ctx, query, string(probe)).Scan(&taken); err != nil {
		return 0, err
	}

	return taken, nil
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]*domain.Signup, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout(s.cfg))
	defer cancel()

	query := `
		SELECT id, name, email, selected_shifts::text, created_at
		FROM signups
		ORDER BY created_at DESC, seq DESC
	`

	rows, err := s.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, unavailable("list signups", err)
	}
	defer rows.Close()

	signups := []*domain.Signup{}
	for rows.Next() {
		var (
			signup domain.Signup
			shifts string
		)

		if err := rows.Scan(&signup.ID, &signup.Name, &signup.Email, &shifts, &signup.Timestamp); err != nil {
			return nil, unavailable("scan signup", err)
		}
		if err := json.Unmarshal([]byte(shifts), &signup.SelectedShifts); err != nil {
			return nil, unavailable("decode selected shifts", err)
		}
		signup.Timestamp = signup.Timestamp.UTC()

		signups = append(signups, &signup)
	}

	if err := rows.Err(); err != nil {
		return nil, unavailable("list signups", err)
	}

	return signups, nil
}

func (s *PostgresStore) DeleteByID(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout(s.cfg))
	defer cancel()

	result, err := s.dbpool.ExecContext(ctx, `DELETE FROM signups WHERE id = $1`, id)
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
