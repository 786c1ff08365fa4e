// Package inliner は SVG 内のラスタ参照をすべて base64 の data URI として
// 埋め込み、レンダリング時に外部アクセスが不要な自己完結 SVG を作ります。
// href / xlink:href 属性（両クォート形式）に加え、文書中どこにでも現れる
// "/file?p=<enc>" 参照と "uploads/..." 相対パスを走査対象とします。
package inliner

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/shouni/go-compose-kit/pkg/mapping"
	"github.com/shouni/go-compose-kit/pkg/svgtext"
	"github.com/shouni/go-compose-kit/pkg/zoom"
)

var (
	imageTagRegex = regexp.MustCompile(`(?is)<image\b[^>]*>`)
	hrefAttrRegex = regexp.MustCompile(`((?:xlink:)?href\s*=\s*)(["'])([^"']*)(["'])`)
	fileRefRegex  = regexp.MustCompile(`/file\?p=[A-Za-z0-9%._~\-]+`)
	// uploadsRefRegex は拡張子を要求します。base64 本文にドットは現れないため、
	// インライン化済みの data URI を誤って再走査することがありません。
	uploadsRefRegex = regexp.MustCompile(`\buploads/[^\s"'<>)]+\.(?:png|jpe?g|webp|gif|svg)`)
	widthAttrRegex  = regexp.MustCompile(`(?i)\bwidth\s*=\s*["']?([0-9.]+)`)
	heightAttrRegex = regexp.MustCompile(`(?i)\bheight\s*=\s*["']?([0-9.]+)`)
)

// Warning は劣化して続行した個別の置換を表します。
type Warning struct {
	Subject string // 対象のトークン・URL・パス
	Reason  string
}

// Options は Inliner の構成です。
type Options struct {
	// Timeout はリモート取得一回あたりの上限です（既定 12 秒）。
	Timeout time.Duration
	// BaseDir は相対ローカルパスの基準ディレクトリです。
	BaseDir string
	// Zoom が有効な場合、プロダクト画像はスマートズームを経由します。
	Zoom *zoom.Compositor
	// ProductRefs はスマートズーム対象と判定する参照の集合です。
	ProductRefs []string
	// PrefetchURLs は属性パスに先立って文書全体から検索・置換する
	// mapping 由来の http(s) URL です。
	PrefetchURLs []string
}

// fetched はメモ化されるリモート取得結果です。
type fetched struct {
	data []byte
	mime string
}

// Inliner は一回の合成呼び出しに閉じたインライン化器です。
// リモート取得のメモはこのインスタンス内に閉じ、並行する合成呼び出し間で
// 共有されません。
type Inliner struct {
	client      *http.Client
	memo        *cache.Cache
	group       singleflight.Group
	zoom        *zoom.Compositor
	productSet  map[string]bool
	prefetchURL []string
	baseDir     string

	mu       sync.Mutex
	warnings []Warning
}

// New は Options を束ねた Inliner を返します。
func New(opts Options) *Inliner {
	set := make(map[string]bool, len(opts.ProductRefs))
	for _, p := range opts.ProductRefs {
		set[p] = true
	}
	return &Inliner{
		client:      newHTTPClient(opts.Timeout),
		memo:        cache.New(cache.NoExpiration, 0),
		zoom:        opts.Zoom,
		productSet:  set,
		prefetchURL: opts.PrefetchURLs,
		baseDir:     opts.BaseDir,
	}
}

// Inline は文書内の全ラスタ参照を data URI に置換します。
// 個々の取得失敗は該当箇所を原文のまま残して警告に記録し、
// パス全体を失敗させません。
func (in *Inliner) Inline(ctx context.Context, svg string) (string, []Warning) {
	// プロダクト画像のズーム判定が先。あとの素通し置換に先を越されると
	// ボックス情報が失われます。
	svg = in.inlineImageTags(ctx, svg)
	svg = in.prefetchMappingURLs(ctx, svg)
	svg = in.inlineHrefs(ctx, svg)
	svg = in.inlineBareRefs(ctx, svg)

	// image/jpg は未登録の MIME タイプなので正規形に直します。
	svg = strings.ReplaceAll(svg, "data:image/jpg;", "data:image/jpeg;")

	return svg, in.warnings
}

// inlineImageTags は <image> 要素単位のパスです。href がプロダクト参照で、
// 幅・高さが取れる場合のみスマートズームを適用します。それ以外の要素は
// 後続の汎用パスに委ねます。
func (in *Inliner) inlineImageTags(ctx context.Context, svg string) string {
	if !in.zoom.Enabled() {
		return svg
	}
	return svgtext.ReplaceAllAsync(ctx, svg, imageTagRegex, func(ctx context.Context, tag string) (string, error) {
		m := hrefAttrRegex.FindStringSubmatch(tag)
		if m == nil {
			return tag, nil
		}
		ref := m[3]
		if strings.HasPrefix(ref, "data:") || !in.productSet[ref] {
			return tag, nil
		}
		boxW := parseDim(widthAttrRegex, tag)
		boxH := parseDim(heightAttrRegex, tag)
		if boxW <= 0 || boxH <= 0 {
			return tag, nil
		}

		data, mime, err := in.loadRef(ctx, ref)
		if err != nil {
			in.warn(ref, err.Error())
			return tag, nil
		}

		uri := ""
		png, processed, zerr := in.zoom.SmartProduct(data, boxW, boxH)
		switch {
		case zerr != nil:
			in.warn(ref, fmt.Sprintf("スマートズームに失敗したため素通しします: %v", zerr))
			uri = dataURI(mime, data)
		case processed:
			uri = dataURI("image/png", png)
		default:
			uri = dataURI(mime, data)
		}
		return strings.Replace(tag, m[0], m[1]+m[2]+uri+m[4], 1), nil
	})
}

// prefetchMappingURLs は mapping 由来の http(s) URL が文書中に
// 現れていれば（属性の外であっても）先回りで取得して置換します。
// インライン <style> やカスタム data 属性に URL を埋めるテンプレートが
// あるためです。
func (in *Inliner) prefetchMappingURLs(ctx context.Context, svg string) string {
	var present []string
	for _, u := range in.prefetchURL {
		if strings.Contains(svg, u) {
			present = append(present, u)
		}
	}
	if len(present) == 0 {
		return svg
	}

	// 一方が他方の接頭辞になっている URL 対で、短い方の置換が長い方を
	// 壊さないよう、長い順に処理します。
	sort.Slice(present, func(i, j int) bool { return len(present[i]) > len(present[j]) })

	uris := make([]string, len(present))
	var wg sync.WaitGroup
	for i, u := range present {
		i, u := i, u
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, mime, err := in.loadRef(ctx, u)
			if err != nil {
				in.warn(u, err.Error())
				return
			}
			uris[i] = dataURI(mime, data)
		}()
	}
	wg.Wait()

	for i, u := range present {
		if uris[i] != "" {
			svg = strings.ReplaceAll(svg, u, uris[i])
		}
	}
	return svg
}

// inlineHrefs は href / xlink:href 属性値の汎用パスです。
func (in *Inliner) inlineHrefs(ctx context.Context, svg string) string {
	return svgtext.ReplaceAllAsync(ctx, svg, hrefAttrRegex, func(ctx context.Context, attr string) (string, error) {
		m := hrefAttrRegex.FindStringSubmatch(attr)
		if m == nil {
			return attr, nil
		}
		ref := m[3]
		// data URI は素通し、フラグメント参照（<use> 等）は対象外です。
		if ref == "" || strings.HasPrefix(ref, "data:") || strings.HasPrefix(ref, "#") {
			return attr, nil
		}
		data, mime, err := in.loadRef(ctx, ref)
		if err != nil {
			in.warn(ref, err.Error())
			return attr, nil
		}
		return m[1] + m[2] + dataURI(mime, data) + m[4], nil
	})
}

// inlineBareRefs は属性の外に裸で現れる "/file?p=" 参照と
// "uploads/..." 相対パスを処理します。
func (in *Inliner) inlineBareRefs(ctx context.Context, svg string) string {
	inlineOne := func(ctx context.Context, ref string) (string, error) {
		data, mime, err := in.loadRef(ctx, ref)
		if err != nil {
			in.warn(ref, err.Error())
			return ref, nil
		}
		return dataURI(mime, data), nil
	}
	svg = svgtext.ReplaceAllAsync(ctx, svg, fileRefRegex, inlineOne)
	svg = svgtext.ReplaceAllAsync(ctx, svg, uploadsRefRegex, inlineOne)
	return svg
}

// loadRef は参照一件を実体のバイト列に解決します。リモート URL は
// singleflight で集約しつつメモ化され、同じロゴが一つのテンプレートで
// 二回参照されてもダウンロードは一回で済みます。
func (in *Inliner) loadRef(ctx context.Context, ref string) ([]byte, string, error) {
	if mapping.IsRemote(ref) {
		if v, ok := in.memo.Get(ref); ok {
			f := v.(fetched)
			return f.data, f.mime, nil
		}
		v, err, _ := in.group.Do(ref, func() (interface{}, error) {
			if v, ok := in.memo.Get(ref); ok {
				return v, nil
			}
			data, mime, err := in.fetch(ctx, ref, 0)
			if err != nil {
				return nil, err
			}
			f := fetched{data: data, mime: mime}
			in.memo.Set(ref, f, cache.NoExpiration)
			return f, nil
		})
		if err != nil {
			return nil, "", err
		}
		f := v.(fetched)
		return f.data, f.mime, nil
	}

	if strings.HasPrefix(ref, "/file?p=") {
		enc := strings.TrimPrefix(ref, "/file?p=")
		dec, err := url.QueryUnescape(enc)
		if err != nil {
			return nil, "", fmt.Errorf("inliner: '/file?p=' 参照のデコードに失敗しました: %w", err)
		}
		return in.readLocal(dec)
	}

	return in.readLocal(ref)
}

// readLocal はローカルファイルを読み、拡張子由来の MIME と共に返します。
func (in *Inliner) readLocal(path string) ([]byte, string, error) {
	p := strings.TrimPrefix(path, "file://")
	if !filepath.IsAbs(p) && in.baseDir != "" {
		p = filepath.Join(in.baseDir, p)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, "", fmt.Errorf("inliner: ローカルファイル '%s' の読み込みに失敗しました: %w", p, err)
	}
	return data, mimeFromPath(path, "image/png"), nil
}

// warn は劣化した置換を記録します。同じ参照は href パスと裸参照パスの
// 両方で失敗し得るため、警告は参照単位で一件に集約します。
func (in *Inliner) warn(subject, reason string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	for _, w := range in.warnings {
		if w.Subject == subject {
			return
		}
	}
	in.warnings = append(in.warnings, Warning{Subject: subject, Reason: reason})
}

func parseDim(re *regexp.Regexp, tag string) float64 {
	m := re.FindStringSubmatch(tag)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return v
}
