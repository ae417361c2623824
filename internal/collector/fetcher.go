package collector

import (
	"context"
	"encoding/json"
	"strings"
)

// RawPost VK 帖子原始结构，只在抽取阶段使用，不做保留
type RawPost struct {
	ID      int64 `json:"id"`
	OwnerID int64 `json:"owner_id"`
	Date    int64 `json:"date"`
	// Text 为 nil 表示上游没有 text 字段，与空字符串区分
	Text        *string      `json:"text"`
	Attachments []Attachment `json:"attachments"`
}

// HasText 判断上游是否携带了 text 字段
func (p RawPost) HasText() bool {
	return p.Text != nil
}

// Attachment 附件：Type 为类型，Body 为同名字段下的具体结构（如 photo / video / link）
type Attachment struct {
	Type string
	Body json.RawMessage
}

// UnmarshalJSON 宽松解析：结构异常的附件保留为空，而不是让整条帖子解析失败
func (a *Attachment) UnmarshalJSON(b []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	var typ string
	if raw, ok := m["type"]; ok {
		_ = json.Unmarshal(raw, &typ)
	}
	a.Type = typ
	if typ != "" {
		a.Body = m[typ]
	}
	return nil
}

// MarshalJSON 与 UnmarshalJSON 对称，便于测试与调试输出
func (a Attachment) MarshalJSON() ([]byte, error) {
	m := map[string]any{"type": a.Type}
	if a.Type != "" && len(a.Body) > 0 {
		m[a.Type] = a.Body
	}
	return json.Marshal(m)
}

// Position 长轮询游标 ts。VK 有时返回字符串，有时返回数字，统一保存为字符串
type Position string

func (p *Position) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		*p = ""
		return nil
	}
	if s[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*p = Position(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*p = Position(n.String())
	return nil
}

// Fetcher 抽象批量拉取最近帖子的数据源
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) ([]RawPost, error)
}
