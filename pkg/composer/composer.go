// Package composer は合成パイプラインの本体です。
// Mapping → Resolver → トークン書き換え → アセットインライン化（必要に応じて
// スマートズーム）→ ラスタライズ、の順で一つのテンプレートを PNG に仕上げます。
package composer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shouni/go-compose-kit/pkg/inliner"
	"github.com/shouni/go-compose-kit/pkg/mapping"
	"github.com/shouni/go-compose-kit/pkg/rasterizer"
	"github.com/shouni/go-compose-kit/pkg/resolver"
	"github.com/shouni/go-compose-kit/pkg/svgtext"
	"github.com/shouni/go-compose-kit/pkg/zoom"
)

// DefaultDebugDir は解決済み SVG のデバッグコピーの既定出力先です。
const DefaultDebugDir = "runs/compose-debug"

// Request は一回の合成呼び出しの入力です。使い切りで、呼び出し後に
// 所有権は残りません。
type Request struct {
	SVGPath    string
	Mapping    *mapping.AssetMapping
	OutPNGPath string

	// DebugDir は処理済み SVG のダンプ先です（空なら DefaultDebugDir）。
	DebugDir string
	// BaseDir は相対ローカル参照の基準ディレクトリです。
	BaseDir string
	// Zoom は nil の場合スマートズーム無効として扱われます。
	Zoom *zoom.Compositor
	// FetchTimeout はリモート取得一回あたりの上限です（0 で既定 12 秒）。
	FetchTimeout time.Duration
}

// Warning は劣化して続行した置換一件です。
type Warning struct {
	Stage   string // "rewrite" または "inline"
	Subject string
	Reason  string
}

// Result は合成の成果と、部分的に劣化した置換の一覧です。
// 未解決プレースホルダーは原文のまま出力に残るため、
// 呼び出し側は Warnings で「何件劣化したか」を観測できます。
type Result struct {
	PNGPath      string
	ProcessedSVG string
	Warnings     []Warning
}

// Compose はテンプレート一枚を PNG に合成します。
// ソフトな失敗（未解決トークン、取得失敗）は Warnings に落として続行し、
// ラスタライズ失敗のみがエラーとして返ります。
func Compose(ctx context.Context, req Request) (*Result, error) {
	raw, err := os.ReadFile(req.SVGPath)
	if err != nil {
		return nil, fmt.Errorf("composer: テンプレート '%s' の読み込みに失敗しました: %w", req.SVGPath, err)
	}

	res := resolver.New(req.Mapping)

	svg := svgtext.RewriteColors(string(raw), res)

	svg, misses := svgtext.RewriteImages(svg, res)
	var warnings []Warning
	for _, tok := range misses {
		warnings = append(warnings, Warning{
			Stage:   "rewrite",
			Subject: tok,
			Reason:  "mapping に該当アセットがないため原文のまま残しました",
		})
	}

	in := inliner.New(inliner.Options{
		Timeout:      req.FetchTimeout,
		BaseDir:      req.BaseDir,
		Zoom:         req.Zoom,
		ProductRefs:  req.Mapping.Images.Products,
		PrefetchURLs: req.Mapping.Images.RemoteRefs(),
	})
	svg, inlineWarnings := in.Inline(ctx, svg)
	for _, w := range inlineWarnings {
		warnings = append(warnings, Warning{Stage: "inline", Subject: w.Subject, Reason: w.Reason})
	}

	dumpDebugSVG(req, svg)

	if err := rasterizer.RenderToFile(svg, req.OutPNGPath); err != nil {
		return nil, fmt.Errorf("composer: '%s' のラスタライズに失敗しました: %w", req.SVGPath, err)
	}

	if len(warnings) > 0 {
		slog.Warn("一部の置換が劣化した状態で合成を完了しました",
			"template", filepath.Base(req.SVGPath),
			"degraded", len(warnings))
	}

	return &Result{
		PNGPath:      req.OutPNGPath,
		ProcessedSVG: svg,
		Warnings:     warnings,
	}, nil
}

// dumpDebugSVG は解決済み SVG を診断用に保存します。
// ここでの失敗は警告ログに留め、合成結果には影響させません。
func dumpDebugSVG(req Request, svg string) {
	dir := req.DebugDir
	if dir == "" {
		dir = DefaultDebugDir
	}
	base := strings.TrimSuffix(filepath.Base(req.SVGPath), filepath.Ext(req.SVGPath))
	path := filepath.Join(dir, base+".processed.svg")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Warn("デバッグ SVG ディレクトリを作成できませんでした", "dir", dir, "error", err)
		return
	}
	if err := os.WriteFile(path, []byte(svg), 0o644); err != nil {
		slog.Warn("デバッグ SVG を書き込めませんでした", "path", path, "error", err)
	}
}
