package inliner

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultTimeout はリモート取得一回あたりの上限時間です。
	DefaultTimeout = 12 * time.Second

	// maxRedirects は Location ヘッダーを辿る上限です。
	maxRedirects = 3
)

// newHTTPClient はリダイレクトを自動追跡しないクライアントを返します。
// リダイレクトは fetch が Location ヘッダーへの再帰で明示的に辿ります。
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// fetch はリモート画像を取得し、バイト列と MIME タイプを返します。
// 3xx は Location を解決して depth を増やしながら再帰し、上限を超えたら
// 失敗します。MIME はレスポンスの Content-Type が画像系ならそれを、
// そうでなければ URL の拡張子から推定します（既定 PNG）。
func (in *Inliner) fetch(ctx context.Context, rawURL string, depth int) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("inliner: リクエストの生成に失敗しました: %w", err)
	}

	resp, err := in.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("inliner: '%s' の取得に失敗しました: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		loc := resp.Header.Get("Location")
		if loc == "" {
			return nil, "", fmt.Errorf("inliner: '%s' のリダイレクトに Location がありません", rawURL)
		}
		if depth >= maxRedirects {
			return nil, "", fmt.Errorf("inliner: '%s' のリダイレクトが上限（%d 回）を超えました", rawURL, maxRedirects)
		}
		next, err := resp.Request.URL.Parse(loc)
		if err != nil {
			return nil, "", fmt.Errorf("inliner: Location '%s' の解決に失敗しました: %w", loc, err)
		}
		io.Copy(io.Discard, resp.Body)
		return in.fetch(ctx, next.String(), depth+1)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("inliner: '%s' が status %d を返しました", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("inliner: '%s' の本文読み取りに失敗しました: %w", rawURL, err)
	}

	mime := resp.Header.Get("Content-Type")
	if !isImageMIME(mime) {
		mime = mimeFromPath(rawURL, "image/png")
	}
	return body, mime, nil
}
