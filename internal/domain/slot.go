package domain

type ShiftSlot struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

// Catalog 是固定的班次列表，顺序即展示顺序，进程运行期间不会被修改
type Catalog struct {
	slots []ShiftSlot
	index map[string]int
}

func NewCatalog(slots []ShiftSlot) *Catalog {
	c := &Catalog{
		slots: make([]ShiftSlot, len(slots)),
		index: make(map[string]int, len(slots)),
	}
	copy(c.slots, slots)
	for i, slot := range c.slots {
		c.index[slot.ID] = i
	}
	return c
}

// DefaultCatalog 是 2026 春季学期的班次配置，修改容量需要重新部署
func DefaultCatalog() *Catalog {
	return NewCatalog([]ShiftSlot{
		{ID: "mt2", Name: "Monday/Thursday 2nd Period", Capacity: 14},
		{ID: "mt3", Name: "Monday/Thursday 3rd Period", Capacity: 14},
		{ID: "tf3", Name: "Tuesday/Friday 3rd Period", Capacity: 6},
		{ID: "tf4", Name: "Tuesday/Friday 4th Period", Capacity: 16},
		{ID: "tf5", Name: "Tuesday/Friday 5th Period", Capacity: 8},
	})
}

// List 返回副本，调用方修改不会影响目录本身
func (c *Catalog) List() []ShiftSlot {
	slots := make([]ShiftSlot, len(c.slots))
	copy(slots, c.slots)
	return slots
}

func (c *Catalog) Get(id string) (ShiftSlot, bool) {
	i, ok := c.index[id]
	if !ok {
		return ShiftSlot{}, false
	}
	return c.slots[i], true
}

func (c *Catalog) TotalCapacity() int {
	total := 0
	for _, slot := range c.slots {
		total += slot.Capacity
	}
	return total
}
