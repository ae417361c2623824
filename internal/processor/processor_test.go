package processor

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/LJTian/WallFeed/internal/collector"
)

func textPtr(s string) *string { return &s }

func mustPost(t *testing.T, raw string) collector.RawPost {
	t.Helper()
	var p collector.RawPost
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("unmarshal post: %v", err)
	}
	return p
}

func TestSplitSentences(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"   \n  ", nil},
		{"Один", []string{"Один"}},
		{"Привет, мир. Как дела?! Отлично…", []string{"Привет, мир.", "Как дела?!", "Отлично…"}},
		{"Версия 3.14 вышла. Сайт example.com работает.", []string{"Версия 3.14 вышла.", "Сайт example.com работает."}},
		{"Заголовок без точки\nПервая строка\n\nВторая. Третья", []string{"Заголовок без точки", "Первая строка", "Вторая.", "Третья"}},
		{`Он сказал: «Привет.» Потом ушёл.`, []string{"Он сказал: «Привет.»", "Потом ушёл."}},
		{"Line one.\r\nLine two", []string{"Line one.", "Line two"}},
	}
	for _, c := range cases {
		got := SplitSentences(c.in)
		if !reflect.DeepEqual(got, c.want) {
			t.Fatalf("SplitSentences(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestExtractAbsentOnlyWithoutText(t *testing.T) {
	e := NewExtractor("42", 5)

	if _, ok := e.Extract(collector.RawPost{ID: 1}); ok {
		t.Fatalf("post without text must be absent")
	}

	it, ok := e.Extract(collector.RawPost{ID: 2, Text: textPtr("")})
	if !ok {
		t.Fatalf("post with empty text must be present")
	}
	if it.Title != "" || it.Content != "" || it.Link != "https://vk.com/wall-42_2" {
		t.Fatalf("unexpected item for empty text: %+v", it)
	}
}

func TestExtractTitleAndExcerptWindow(t *testing.T) {
	text := "Заголовок. Один. Два. Три. Четыре. Пять. Шесть."

	it, ok := NewExtractor("-42", 5).Extract(collector.RawPost{ID: 7, Text: textPtr(text)})
	if !ok {
		t.Fatalf("expected item")
	}
	if it.Title != "Заголовок." {
		t.Fatalf("Title = %q", it.Title)
	}
	if it.Content != "Один. Два. Три. Четыре. Пять...." {
		t.Fatalf("Content = %q", it.Content)
	}
	if it.Link != "https://vk.com/wall-42_7" {
		t.Fatalf("Link = %q", it.Link)
	}

	// 句子恰好填满窗口时不加省略号
	it, _ = NewExtractor("42", 6).Extract(collector.RawPost{ID: 7, Text: textPtr(text)})
	if it.Content != "Один. Два. Три. Четыре. Пять. Шесть." {
		t.Fatalf("Content with window 6 = %q", it.Content)
	}

	it, _ = NewExtractor("42", 9).Extract(collector.RawPost{ID: 7, Text: textPtr("Только заголовок")})
	if it.Title != "Только заголовок" || it.Content != "" {
		t.Fatalf("single sentence: %+v", it)
	}

	it, _ = NewExtractor("42", -1).Extract(collector.RawPost{ID: 7, Text: textPtr(text)})
	if it.Content != "Один. Два. Три. Четыре. Пять...." {
		t.Fatalf("negative window should use default, got %q", it.Content)
	}
}

func TestExtractImagePrecedence(t *testing.T) {
	e := NewExtractor("42", 5)

	cases := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "photo largest size",
			raw: `{"id":1,"text":"t","attachments":[{"type":"photo","photo":{"sizes":[
				{"url":"p-big","width":1280,"height":720},
				{"url":"p-small","width":130,"height":87}]}}]}`,
			want: "p-big",
		},
		{
			name: "photo without dimensions uses last",
			raw:  `{"id":1,"text":"t","attachments":[{"type":"photo","photo":{"sizes":[{"url":"a"},{"url":"b"}]}}]}`,
			want: "b",
		},
		{
			name: "video final frame",
			raw: `{"id":1,"text":"t","attachments":[{"type":"video","video":{
				"image":[{"url":"cover"}],
				"first_frame":[{"url":"f1","width":130},{"url":"f2","width":800}]}}]}`,
			want: "f2",
		},
		{
			name: "video falls back to image list",
			raw:  `{"id":1,"text":"t","attachments":[{"type":"video","video":{"image":[{"url":"c1"},{"url":"c2"}]}}]}`,
			want: "c2",
		},
		{
			name: "link nested photo",
			raw:  `{"id":1,"text":"t","attachments":[{"type":"link","link":{"url":"https://x","photo":{"sizes":[{"url":"l1","width":10,"height":10},{"url":"l2","width":20,"height":20}]}}}]}`,
			want: "l2",
		},
		{
			name: "later attachment overrides earlier",
			raw: `{"id":1,"text":"t","attachments":[
				{"type":"photo","photo":{"sizes":[{"url":"first"}]}},
				{"type":"audio","audio":{"url":"ignored"}},
				{"type":"video","video":{"first_frame":[{"url":"second"}]}}]}`,
			want: "second",
		},
		{
			name: "unrecognized and empty kinds skipped",
			raw: `{"id":1,"text":"t","attachments":[
				{"type":"photo","photo":{"sizes":[{"url":"kept"}]}},
				{"type":"link","link":{"url":"https://no-photo"}},
				{"type":"doc","doc":{"url":"d"}},
				{"type":"video","video":{"first_frame":[]}}]}`,
			want: "kept",
		},
		{
			name: "other kind with own sizes list",
			raw: `{"id":1,"text":"t","attachments":[
				{"type":"photo","photo":{"sizes":[{"url":"p"}]}},
				{"type":"doc","doc":{"title":"x","sizes":[{"url":"d1","width":10,"height":10},{"url":"d2","width":100,"height":100}]}}]}`,
			want: "d2",
		},
		{
			name: "malformed attachment body skipped",
			raw:  `{"id":1,"text":"t","attachments":[{"type":"photo","photo":{"sizes":[{"url":"ok"}]}},{"type":"photo","photo":"broken"}]}`,
			want: "ok",
		},
		{
			name: "no attachments",
			raw:  `{"id":1,"text":"t"}`,
			want: "",
		},
	}
	for _, c := range cases {
		it, ok := e.Extract(mustPost(t, c.raw))
		if !ok {
			t.Fatalf("%s: expected item", c.name)
		}
		if it.ImageURL != c.want {
			t.Fatalf("%s: ImageURL = %q, want %q", c.name, it.ImageURL, c.want)
		}
	}
}

func TestExtractAllKeepsOrderAndDropsTextless(t *testing.T) {
	e := NewExtractor("42", 5)
	posts := []collector.RawPost{
		{ID: 4, Text: textPtr("d")},
		{ID: 3},
		{ID: 2, Text: textPtr("b")},
		{ID: 1, Text: textPtr("a")},
	}
	out := e.ExtractAll(posts)
	if len(out) != 3 {
		t.Fatalf("expected 3 items, got %d", len(out))
	}
	if out[0].ID != 4 || out[1].ID != 2 || out[2].ID != 1 {
		t.Fatalf("order not kept: %+v", out)
	}
}
