// Package feed 规范化后的条目模型，以及 worker 与 API 之间传递快照的通道
package feed

// MaxItems 缓冲区与快照的长度上限
const MaxItems = 100

// Item 可直接展示的帖子，构造后不再修改
type Item struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Content  string `json:"content,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	Link     string `json:"link"`
}

// Snapshot 缓冲区的有序视图（最新在前），整体发布。
// Items 保持非 nil，JSON 输出为 [] 而不是 null
type Snapshot struct {
	Count int    `json:"count"`
	Items []Item `json:"items"`
}

// NewSnapshot 复制最多 MaxItems 条生成独立快照
func NewSnapshot(items []Item) Snapshot {
	if len(items) > MaxItems {
		items = items[:MaxItems]
	}
	out := make([]Item, len(items))
	copy(out, items)
	return Snapshot{Count: len(out), Items: out}
}

// EmptySnapshot 首次发布之前读到的空快照
func EmptySnapshot() Snapshot {
	return Snapshot{Count: 0, Items: []Item{}}
}

// Command API 发给 worker 的指令
type Command string

// ForceRefresh 要求 worker 重新批量拉取并重建缓冲区
const ForceRefresh Command = "force_update"
