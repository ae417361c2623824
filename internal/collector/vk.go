package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	vkMaxResponseBytes = 4 << 20 // 4MB，wall.get 100 条带附件也远小于此
	vkClientTimeout    = 10 * time.Second
)

// UpstreamError VK 接口返回非 200、错误信封或缺少必要字段
type UpstreamError struct {
	Op      string
	Status  int
	Code    int
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	var b strings.Builder
	b.WriteString("vk ")
	b.WriteString(e.Op)
	if e.Status != 0 && e.Status != http.StatusOK {
		fmt.Fprintf(&b, ": status %d", e.Status)
	}
	if e.Code != 0 {
		fmt.Fprintf(&b, ": error %d", e.Code)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Client 封装 VK method 接口的公共参数与 HTTP 细节
type Client struct {
	BaseURL string
	Version string
	HTTP    *http.Client
}

func NewClient(baseURL, version string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Version: version,
		HTTP:    &http.Client{Timeout: vkClientTimeout},
	}
}

type vkEnvelope struct {
	Response json.RawMessage `json:"response"`
	Error    *struct {
		Code int    `json:"error_code"`
		Msg  string `json:"error_msg"`
	} `json:"error"`
}

// call 调用 {BaseURL}/{method}，解开 {"response": ...} 信封并解码到 out
func (c *Client) call(ctx context.Context, method string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("v", c.Version)
	u := c.BaseURL + "/" + method + "?" + params.Encode()

	body, err := getBody(ctx, c.HTTP, method, u)
	if err != nil {
		return err
	}

	var env vkEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return &UpstreamError{Op: method, Status: http.StatusOK, Message: "decode response", Err: err}
	}
	if env.Error != nil {
		return &UpstreamError{Op: method, Status: http.StatusOK, Code: env.Error.Code, Message: env.Error.Msg}
	}
	if len(env.Response) == 0 || string(env.Response) == "null" {
		return &UpstreamError{Op: method, Status: http.StatusOK, Message: "response field missing"}
	}
	if err := json.Unmarshal(env.Response, out); err != nil {
		return &UpstreamError{Op: method, Status: http.StatusOK, Message: "decode response", Err: err}
	}
	return nil
}

// getBody 发起 GET，非 200 或网络错误统一转成 UpstreamError
func getBody(ctx context.Context, hc *http.Client, op, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &UpstreamError{Op: op, Message: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return nil, &UpstreamError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, vkMaxResponseBytes))
	if err != nil {
		return nil, &UpstreamError{Op: op, Status: resp.StatusCode, Message: "read body", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Op: op, Status: resp.StatusCode, Message: snippet(body)}
	}
	return body, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if rs := []rune(s); len(rs) > 200 {
		s = string(rs[:200]) + "…"
	}
	return s
}
