package domain

import "fmt"

type ValidationKind string

const (
	KindMissingName         ValidationKind = "missing_name"
	KindMissingEmail        ValidationKind = "missing_email"
	KindInvalidEmail        ValidationKind = "invalid_email"
	KindSelectionCount      ValidationKind = "selection_count"
	KindDuplicateSlot       ValidationKind = "duplicate_slot"
	KindUnknownSlot         ValidationKind = "unknown_slot"
	KindSlotFull            ValidationKind = "slot_full"
	KindInvalidAvailability ValidationKind = "invalid_availability"
)

// ValidationError 表示学生的输入不合法，不会触达存储层
type ValidationError struct {
	Kind    ValidationKind
	SlotID  string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(kind ValidationKind, slotID string, format string, args ...any) *ValidationError {
	return &ValidationError{
		Kind:    kind,
		SlotID:  slotID,
		Message: fmt.Sprintf(format, args...),
	}
}

// SlotFullError 在提交时某个班次已经没有空位
func SlotFullError(slot ShiftSlot) *ValidationError {
	return NewValidationError(KindSlotFull, slot.ID, "%s is already full. Please choose another slot.", slot.Name)
}
