package processor

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/LJTian/WallFeed/internal/collector"
	"github.com/LJTian/WallFeed/internal/feed"
)

// DefaultExcerptSentences 标题之后默认放进摘要的句子数
const DefaultExcerptSentences = 5

const excerptEllipsis = "..."

// Extractor 把 VK 原始帖子转换为可展示的条目。纯函数，无副作用
type Extractor struct {
	groupID string
	window  int
}

// NewExtractor groupID 为社区 id（正数，不带负号），window 为摘要句子数
func NewExtractor(groupID string, window int) *Extractor {
	if window < 0 {
		window = DefaultExcerptSentences
	}
	return &Extractor{groupID: strings.TrimPrefix(groupID, "-"), window: window}
}

// Extract 帖子没有 text 字段时返回 false，其余情况总能得到条目
func (e *Extractor) Extract(p collector.RawPost) (feed.Item, bool) {
	if !p.HasText() {
		return feed.Item{}, false
	}

	item := feed.Item{
		ID:   p.ID,
		Link: e.Permalink(p.ID),
	}

	sentences := SplitSentences(*p.Text)
	if len(sentences) > 0 {
		item.Title = sentences[0]
		item.Content = e.excerpt(sentences[1:])
	}
	item.ImageURL = resolveImage(p.Attachments)
	return item, true
}

// ExtractAll 按原顺序抽取，丢弃没有正文的帖子
func (e *Extractor) ExtractAll(posts []collector.RawPost) []feed.Item {
	out := make([]feed.Item, 0, len(posts))
	for _, p := range posts {
		if it, ok := e.Extract(p); ok {
			out = append(out, it)
		}
	}
	return out
}

// Permalink 帖子在 VK 上的固定链接
func (e *Extractor) Permalink(postID int64) string {
	return "https://vk.com/wall-" + e.groupID + "_" + strconv.FormatInt(postID, 10)
}

func (e *Extractor) excerpt(rest []string) string {
	if len(rest) == 0 {
		return ""
	}
	if len(rest) <= e.window {
		return strings.Join(rest, " ")
	}
	return strings.Join(rest[:e.window], " ") + excerptEllipsis
}

type imageSize struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type photoBody struct {
	Sizes []imageSize `json:"sizes"`
}

type videoBody struct {
	FirstFrame []imageSize `json:"first_frame"`
	Image      []imageSize `json:"image"`
}

// link 把图片放在内嵌的 photo 里
type nestedPhotoBody struct {
	Photo *photoBody `json:"photo"`
}

// resolveImage 按附件顺序遍历，后出现的匹配覆盖前面的
func resolveImage(attachments []collector.Attachment) string {
	var url string
	for _, a := range attachments {
		if len(a.Body) == 0 {
			continue
		}
		var found string
		switch a.Type {
		case "video":
			var v videoBody
			if json.Unmarshal(a.Body, &v) != nil {
				continue
			}
			found = lastURL(v.FirstFrame)
			if found == "" {
				found = lastURL(v.Image)
			}
		case "photo":
			var p photoBody
			if json.Unmarshal(a.Body, &p) != nil {
				continue
			}
			found = largest(p.Sizes)
		case "link":
			var l nestedPhotoBody
			if json.Unmarshal(a.Body, &l) != nil || l.Photo == nil {
				continue
			}
			found = largest(l.Photo.Sizes)
		default:
			// 其他类型只要自带 sizes 列表（如 doc 预览）也取最大尺寸
			var p photoBody
			if json.Unmarshal(a.Body, &p) != nil || len(p.Sizes) == 0 {
				continue
			}
			found = largest(p.Sizes)
		}
		if found != "" {
			url = found
		}
	}
	return url
}

// lastURL 最后一帧（VK 按从小到大排列）
func lastURL(frames []imageSize) string {
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].URL != "" {
			return frames[i].URL
		}
	}
	return ""
}

// largest 按面积取最大；面积相同（包括缺少宽高）时取靠后的
func largest(sizes []imageSize) string {
	best := -1
	bestArea := -1
	for i, s := range sizes {
		if s.URL == "" {
			continue
		}
		area := s.Width * s.Height
		if area >= bestArea {
			best, bestArea = i, area
		}
	}
	if best < 0 {
		return ""
	}
	return sizes[best].URL
}
