// Package rasterizer は解決済みの SVG 文字列を PNG にレンダリングします。
// 一発勝負の変換で、リトライはしません。ここで失敗する SVG は上流の
// mapping かテンプレートの不具合であり、リトライで直るものではないからです。
package rasterizer

import (
	"bytes"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/tdewolff/canvas"
	canvasrast "github.com/tdewolff/canvas/renderers/rasterizer"
)

// renderDPI は SVG の px 座標を 1:1 のピクセルで出力する解像度です。
const renderDPI = 96

// Render は SVG 文字列をテンプレート本来の寸法で PNG バッファに変換します。
// ベクタ形状だけでなく、インライナーが埋め込んだ data URI のラスタ画像も
// ここで描画されます。
func Render(svg string) ([]byte, error) {
	c, err := canvas.ParseSVG(strings.NewReader(svg))
	if err != nil {
		return nil, fmt.Errorf("rasterizer: SVG のパースに失敗しました: %w", err)
	}

	img := canvasrast.Draw(c, canvas.DPI(renderDPI), canvas.DefaultColorSpace)

	buf := new(bytes.Buffer)
	if err := png.Encode(buf, img); err != nil {
		return nil, fmt.Errorf("rasterizer: PNG エンコードに失敗しました: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderToFile は Render の結果を outPath に保存します。
// 親ディレクトリは必要に応じて作成されます。
func RenderToFile(svg, outPath string) error {
	data, err := Render(svg)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("rasterizer: 出力ディレクトリの作成に失敗しました: %w", err)
		}
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("rasterizer: PNG の書き込みに失敗しました: %w", err)
	}
	return nil
}
