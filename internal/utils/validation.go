package utils

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/capacity"
	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/domain"
)

var emailValidate = validator.New()

// Selection 是学生在表单中选中的一个班次，Availability 为空表示没有修改默认值
type Selection struct {
	SlotID       string
	Availability string
}

// ComposeSignup 按顺序检查学生的提交并构造待写入的报名记录，第一条不满足的规则决定返回的错误。
// currentSignups 必须是提交时刚读取的全部报名，而不是学生打开表单时的数据
func ComposeSignup(catalog *domain.Catalog, name string, email string, selections []Selection, currentSignups []*domain.Signup) (*domain.Signup, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError(domain.KindMissingName, "", "Please enter your full name.")
	}

	email = strings.TrimSpace(email)
	if email == "" {
		return nil, domain.NewValidationError(domain.KindMissingEmail, "", "Please enter your email address.")
	}
	if err := emailValidate.Var(email, "email"); err != nil {
		return nil, domain.NewValidationError(domain.KindInvalidEmail, "", "Please enter a valid email address.")
	}

	if len(selections) != domain.RequiredSelections {
		return nil, domain.NewValidationError(domain.KindSelectionCount, "", "Please select exactly %d shift slots.", domain.RequiredSelections)
	}

	slots := make([]domain.ShiftSlot, 0, len(selections))
	for _, sel := range selections {
		for _, chosen := range slots {
			if chosen.ID == sel.SlotID {
				return nil, domain.NewValidationError(domain.KindDuplicateSlot, sel.SlotID, "Please select %d different shift slots.", domain.RequiredSelections)
			}
		}
		slot, ok := catalog.Get(sel.SlotID)
		if !ok {
			return nil, domain.NewValidationError(domain.KindUnknownSlot, sel.SlotID, "Shift slot %q does not exist.", sel.SlotID)
		}
		slots = append(slots, slot)
	}

	// 容量在学生浏览和提交之间可能发生变化，所以这里要用最新的数据重新检查
	for _, slot := range slots {
		if capacity.IsFull(slot, currentSignups) {
			return nil, domain.SlotFullError(slot)
		}
	}

	shifts := make([]domain.SelectedShift, 0, len(selections))
	for i, sel := range selections {
		availability, err := domain.ParseAvailability(sel.Availability)
		if err != nil {
			return nil, domain.NewValidationError(domain.KindInvalidAvailability, sel.SlotID, "Availability for %s must be one of Full Semester, Q1 Only or Q2 Only.", slots[i].Name)
		}
		shifts = append(shifts, domain.SelectedShift{
			ShiftID:      sel.SlotID,
			Availability: availability,
		})
	}

	return &domain.Signup{
		Name:           name,
		Email:          email,
		SelectedShifts: shifts,
	}, nil
}
