// Package storage は Supabase 形式のオブジェクトストレージ URL の認識と、
// サービスキーによる認証付き取得を提供します。コア合成パイプラインは
// 認証情報を必要とせず、このパッケージは CLI マテリアライザー専用です。
package storage

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// ObjectRef はバケットとオブジェクトキーの組です。
type ObjectRef struct {
	Bucket string
	Key    string
}

// objectPathRegex は ".../storage/v1/object/[public/|sign/]<bucket>/<key>"
// というパス形状に一致します。
var objectPathRegex = regexp.MustCompile(`/storage/v1/object/(?:public/|sign/)?([^/]+)/(.+)$`)

// ParseObjectURL は URL がオブジェクトストレージのパス形状を持つ場合に
// バケットとキーを取り出します。
func ParseObjectURL(raw string) (ObjectRef, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ObjectRef{}, false
	}
	m := objectPathRegex.FindStringSubmatch(u.Path)
	if m == nil {
		return ObjectRef{}, false
	}
	return ObjectRef{Bucket: m[1], Key: m[2]}, true
}

// Client は認証付きオブジェクト取得のための薄いクライアントです。
type Client struct {
	baseURL    string
	serviceKey string
	http       *http.Client
}

// NewClient は Client を生成します。baseURL と serviceKey のどちらかが
// 空の場合、Authorized は false を返し、呼び出し側は匿名取得に
// フォールバックします。
func NewClient(baseURL, serviceKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		http:       &http.Client{Timeout: timeout},
	}
}

// Authorized は認証付き取得が可能かどうかを返します。
func (c *Client) Authorized() bool {
	return c != nil && c.baseURL != "" && c.serviceKey != ""
}

// Fetch は ref を認証付き REST エンドポイントから取得し、本文と
// Content-Type を返します。認識済みの公開/署名 URL もここで必ず
// 認証エンドポイントへ書き換えられます。
func (c *Client) Fetch(ref ObjectRef) ([]byte, string, error) {
	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, ref.Bucket, ref.Key)

	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", fmt.Errorf("storage: リクエストの生成に失敗しました: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("apikey", c.serviceKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("storage: '%s/%s' の取得に失敗しました: %w", ref.Bucket, ref.Key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("storage: '%s/%s' の取得が status %d で拒否されました", ref.Bucket, ref.Key, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("storage: 本文の読み取りに失敗しました: %w", err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}
