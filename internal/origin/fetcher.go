// Package origin performs live fetches against the application's origin
// server. It exposes a narrow Fetcher interface so the deploy and gateway
// layers can count or stub network access in tests, with a shared tuned
// http.Client behind the production implementation. Responses are passed
// through verbatim; policy decisions (what counts as a population failure,
// what gets relayed to clients) live with the callers.
package origin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Resource 表示一次源站响应，Body 由调用方负责关闭。
type Resource struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// Fetcher 抽象对源站的一次 GET 请求，便于测试统计调用次数或注入失败。
type Fetcher interface {
	Fetch(ctx context.Context, path string) (*Resource, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, path string) (*Resource, error)

// Fetch makes FetcherFunc satisfy Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, path string) (*Resource, error) {
	return f(ctx, path)
}

// httpFetcher 将根相对路径解析到配置的源站 Base URL 上执行请求。
type httpFetcher struct {
	base   *url.URL
	client *http.Client
}

// NewFetcher 构造基于 HTTP 的 Fetcher。base 必须是带 Host 的 http/https 地址。
func NewFetcher(base string, client *http.Client) (Fetcher, error) {
	if client == nil {
		return nil, errors.New("http client required")
	}

	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("解析源站地址失败: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("源站仅支持 http/https: %s", base)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("源站缺少 Host: %s", base)
	}

	return &httpFetcher{
		base:   parsed,
		client: client,
	}, nil
}

func (f *httpFetcher) Fetch(ctx context.Context, path string) (*Resource, error) {
	target := f.resolve(path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}

	return &Resource{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       resp.Body,
	}, nil
}

// resolve 将根相对路径拼接到 base 上，保留 base 自带的路径前缀。
func (f *httpFetcher) resolve(path string) string {
	target := *f.base
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	target.Path = strings.TrimSuffix(target.Path, "/") + path
	return target.String()
}
