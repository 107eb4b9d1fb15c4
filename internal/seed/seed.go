package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/domain"
	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/export"
	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/repository"
	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/utils"
)

// SeedRandomSignups 插入最多 n 条随机报名，所有班次都满了之后提前结束。
// 每条都和学生提交一样经过校验和容量检查
func SeedRandomSignups(ctx context.Context, store repository.Store, catalog *domain.Catalog, emailDomain string, n int) (int, error) {
	cnt := 0
	for i := 0; i < n; i++ {
		current, err := store.ListAll(ctx)
		if err != nil {
			return cnt, err
		}

		submission, ok := utils.GenerateRandomSubmission(catalog, emailDomain, current)
		if !ok {
			slog.Info("所有班次都已报满")
			break
		}

		signup, err := utils.ComposeSignup(catalog, submission.Name, submission.Email, submission.Selections, current)
		if err != nil {
			slog.Error("生成的报名不合法", "name", submission.Name, "error", err)
			continue
		}

		if err := store.CreateWithinCapacity(ctx, signup, catalog); err != nil {
			var vErr *domain.ValidationError
			if errors.As(err, &vErr) {
				slog.Error("无法插入报名", "name", signup.Name, "error", err)
				continue
			}
			return cnt, err
		}

		cnt++
	}

	return cnt, nil
}

func slotIDByName(catalog *domain.Catalog) map[string]string {
	ids := make(map[string]string)
	for _, slot := range catalog.List() {
		ids[slot.Name] = slot.ID
	}
	return ids
}

// ImportCSV 把导出的 CSV 重新写入存储，用于迁移到新的存储后端。
// 导出文件是按时间倒序的，这里倒着插入以保持原来的先后顺序，时间戳由存储重新分配
func ImportCSV(ctx context.Context, store repository.Store, catalog *domain.Catalog, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(export.Header)

	// 读取表头
	headers, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}
	if !slices.Equal(headers, export.Header) {
		return 0, fmt.Errorf("unexpected header: %v", headers)
	}

	// 读取数据
	var rows [][]string
	for {
		row, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return 0, fmt.Errorf("read row %d: %w", len(rows)+2, err)
		}
		rows = append(rows, row)
	}

	ids := slotIDByName(catalog)

	cnt := 0
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]

		// 第 0 列是时间戳，导入时不使用
		selections := []utils.Selection{
			{SlotID: ids[row[3]], Availability: row[4]},
			{SlotID: ids[row[5]], Availability: row[6]},
		}

		current, err := store.ListAll(ctx)
		if err != nil {
			return cnt, err
		}

		signup, err := utils.ComposeSignup(catalog, row[1], row[2], selections, current)
		if err != nil {
			slog.Error("跳过不合法的记录", "row", i+2, "name", row[1], "error", err)
			continue
		}

		if err := store.CreateWithinCapacity(ctx, signup, catalog); err != nil {
			var vErr *domain.ValidationError
			if errors.As(err, &vErr) {
				slog.Error("跳过无法插入的记录", "row", i+2, "name", row[1], "error", err)
				continue
			}
			return cnt, err
		}

		cnt++
	}

	return cnt, nil
}
