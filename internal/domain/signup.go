package domain

import "time"

// 每个学生必须且只能选择两个不同的班次
const RequiredSelections = 2

type SelectedShift struct {
	ShiftID      string       `json:"shiftId"`
	Availability Availability `json:"availability"`
}

type Signup struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	SelectedShifts []SelectedShift `json:"selectedShifts"`
	Timestamp      time.Time       `json:"timestamp"`
}

// HoldsSlot 判断该报名是否占用了某个班次
func (s *Signup) HoldsSlot(slotID string) bool {
	for _, shift := range s.SelectedShifts {
		if shift.ShiftID == slotID {
			return true
		}
	}
	return false
}
