// Package capacity 根据当前全部报名记录计算每个班次的占用情况。
// 这里的函数都是纯函数，不持有任何状态。
package capacity

import (
	"math"

	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/domain"
)

// CountForSlot 统计占用了 slotID 的报名数量
func CountForSlot(slotID string, signups []*domain.Signup) int {
	count := 0
	for _, s := range signups {
		if s.HoldsSlot(slotID) {
			count++
		}
	}
	return count
}

// Remaining 永远不会返回负数，即使历史数据已经超额
func Remaining(slot domain.ShiftSlot, signups []*domain.Signup) int {
	return max(0, slot.Capacity-CountForSlot(slot.ID, signups))
}

// IsFull 人数恰好等于容量时也算满
func IsFull(slot domain.ShiftSlot, signups []*domain.Signup) bool {
	return CountForSlot(slot.ID, signups) >= slot.Capacity
}

type SlotUsage struct {
	Slot      domain.ShiftSlot `json:"slot"`
	Taken     int              `json:"taken"`
	Remaining int              `json:"remaining"`
	Full      bool             `json:"full"`
}

type Summary struct {
	Slots          []SlotUsage `json:"slots"`
	ShiftsAssigned int         `json:"shiftsAssigned"`
	TotalCapacity  int         `json:"totalCapacity"`
	Percent        int         `json:"percent"`
}

// Summarize 按目录顺序汇总各班次的占用情况，不在目录中的班次 ID 会被忽略
func Summarize(catalog *domain.Catalog, signups []*domain.Signup) *Summary {
	slots := catalog.List()
	summary := &Summary{
		Slots:         make([]SlotUsage, 0, len(slots)),
		TotalCapacity: catalog.TotalCapacity(),
	}

	for _, slot := range slots {
		taken := CountForSlot(slot.ID, signups)
		summary.Slots = append(summary.Slots, SlotUsage{
			Slot:      slot,
			Taken:     taken,
			Remaining: max(0, slot.Capacity-taken),
			Full:      taken >= slot.Capacity,
		})
		summary.ShiftsAssigned += taken
	}

	if summary.TotalCapacity > 0 {
		summary.Percent = int(math.Round(float64(summary.ShiftsAssigned) / float64(summary.TotalCapacity) * 100))
	}

	return summary
}
