// Package materializer は mapping 内のリモート画像をレンダリング前に
// ローカルへ取り込むのだ。キャッシュファイル名は URL の SHA-1 先頭 12 桁で
// 決定的に決まるため、取得に失敗した URL はキャッシュが残らず、
// 次回の実行で自然に再試行されるのだ。
package materializer

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/shouni/go-compose-kit/pkg/mapping"
	"github.com/shouni/go-compose-kit/pkg/storage"
)

const rateBurst = 2

// Materializer はリモートアセットをローカルのハッシュキャッシュへ取り込むのだ。
type Materializer struct {
	assetsDir string
	client    *http.Client
	storage   *storage.Client // 認証付き取得。未設定なら匿名取得のみなのだ
	limiter   *rate.Limiter
}

// New は Materializer を生成するのだ。storageClient は nil でも構わないのだ。
// assetsDir は絶対パスに固定するのだ。相対パスのままだと "/file?p=" 参照が
// インライナーの基準ディレクトリ（テンプレート側）へ連結されてしまうのだよ。
func New(assetsDir string, storageClient *storage.Client, timeout, interval time.Duration) *Materializer {
	if abs, err := filepath.Abs(assetsDir); err == nil {
		assetsDir = abs
	}
	return &Materializer{
		assetsDir: assetsDir,
		client:    &http.Client{Timeout: timeout},
		storage:   storageClient,
		limiter:   rate.NewLimiter(rate.Every(interval), rateBurst),
	}
}

// MaterializeMapping は mapping 内の全 http(s) 画像参照をローカルファイルへ
// 取り込み、画像フィールドを "/file?p=" 参照に書き換えた新しい mapping を
// 返すのだ。個別の取得失敗は元の URL を残して続行するのだ（コア側の
// インライナーがレンダリング時にもう一度試せるのだよ）。
func (m *Materializer) MaterializeMapping(ctx context.Context, src *mapping.AssetMapping) (*mapping.AssetMapping, error) {
	if err := os.MkdirAll(m.assetsDir, 0o755); err != nil {
		return nil, fmt.Errorf("materializer: アセットディレクトリの作成に失敗したのだ: %w", err)
	}

	remotes := src.Images.RemoteRefs()
	local := make(map[string]string, len(remotes))

	eg, egCtx := errgroup.WithContext(ctx)
	results := make([]string, len(remotes))

	slog.Info("リモートアセットの取り込みを開始するのだ", "count", len(remotes))

	for i, u := range remotes {
		i, u := i, u
		eg.Go(func() error {
			path, err := m.materializeURL(egCtx, u)
			if err != nil {
				slog.Warn("アセットの取り込みに失敗したため URL のまま残すのだ", "url", u, "error", err)
				return nil
			}
			results[i] = path
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	for i, u := range remotes {
		if results[i] != "" {
			local[u] = results[i]
		}
	}

	out := src.Clone()
	out.Images.Logo = m.rewriteRef(out.Images.Logo, local)
	for _, list := range [][]string{out.Images.Products, out.Images.Screenshots, out.Images.Backgrounds} {
		for i, ref := range list {
			list[i] = m.rewriteRef(ref, local)
		}
	}
	return out, nil
}

// materializeURL は URL 一件をキャッシュファイルへ取り込み、そのパスを返すのだ。
// 既存のキャッシュファイルがあれば再取得しないのだ。
func (m *Materializer) materializeURL(ctx context.Context, rawURL string) (string, error) {
	path := filepath.Join(m.assetsDir, CacheName(rawURL))
	if _, err := os.Stat(path); err == nil {
		slog.Debug("キャッシュ命中なのだ", "url", rawURL, "path", path)
		return path, nil
	}

	// レートリミットに従って、自分の番が来るまで待機するのだ
	if err := m.limiter.Wait(ctx); err != nil {
		return "", err
	}

	data, err := m.download(ctx, rawURL)
	if err != nil {
		return "", err
	}

	// 並行プロセスが部分的なファイルを読まないよう、
	// 一時ファイルへ書いてから rename するのだ。
	tmp, err := os.CreateTemp(m.assetsDir, filepath.Base(path)+".tmp*")
	if err != nil {
		return "", fmt.Errorf("materializer: 一時ファイルの作成に失敗したのだ: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("materializer: 一時ファイルへの書き込みに失敗したのだ: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("materializer: キャッシュファイルの確定に失敗したのだ: %w", err)
	}

	slog.Info("アセットを取り込んだのだ", "url", rawURL, "path", path)
	return path, nil
}

// download は URL の形状に応じて、認証付きオブジェクト取得か素の GET かを選ぶのだ。
func (m *Materializer) download(ctx context.Context, rawURL string) ([]byte, error) {
	if ref, ok := storage.ParseObjectURL(rawURL); ok && m.storage.Authorized() {
		data, _, err := m.storage.Fetch(ref)
		return data, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("materializer: リクエストの生成に失敗したのだ: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("materializer: '%s' の取得に失敗したのだ: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("materializer: '%s' が status %d を返したのだ", rawURL, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// rewriteRef は取り込み済みの参照を "/file?p=" 形式へ書き換えるのだ。
func (m *Materializer) rewriteRef(ref string, local map[string]string) string {
	path, ok := local[ref]
	if !ok {
		return ref
	}
	return "/file?p=" + url.QueryEscape(path)
}

// CacheName は URL からキャッシュファイル名を決定的に導くのだ。
// SHA-1 の先頭 12 桁（16進）＋ URL から推定した拡張子（既定 .png）なのだ。
func CacheName(rawURL string) string {
	sum := sha1.Sum([]byte(rawURL))
	return hex.EncodeToString(sum[:])[:12] + extFromURL(rawURL)
}

func extFromURL(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		p = u.Path
	}
	ext := filepath.Ext(p)
	switch ext {
	case ".png", ".jpg", ".jpeg", ".webp", ".gif", ".svg":
		return ext
	default:
		return ".png"
	}
}
