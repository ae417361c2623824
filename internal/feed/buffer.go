package feed

// Buffer 有界的历史条目（最新在前），只由采集 worker 独占使用，非并发安全
type Buffer struct {
	items []Item
}

func NewBuffer() *Buffer {
	return &Buffer{items: make([]Item, 0, MaxItems+1)}
}

// Prepend 插入到头部，超过 MaxItems 时丢弃最旧的一条
func (b *Buffer) Prepend(item Item) {
	b.items = append(b.items, Item{})
	copy(b.items[1:], b.items)
	b.items[0] = item
	if len(b.items) > MaxItems {
		b.items[MaxItems] = Item{}
		b.items = b.items[:MaxItems]
	}
}

// Rebuild 用 items 的前 MaxItems 条整体替换，保持原顺序
func (b *Buffer) Rebuild(items []Item) {
	if len(items) > MaxItems {
		items = items[:MaxItems]
	}
	b.items = b.items[:0]
	b.items = append(b.items, items...)
}

// Snapshot 返回当前内容的独立副本，之后对缓冲区的修改不影响它
func (b *Buffer) Snapshot() Snapshot {
	return NewSnapshot(b.items)
}

func (b *Buffer) Len() int {
	return len(b.items)
}
