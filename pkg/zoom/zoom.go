// Package zoom は「スマートズーム」合成を提供します。プロダクト画像の
// アスペクト比と配置先ボックスのアスペクト比を比較し、拡大率が許容範囲なら
// カバーフィットのクロップを、過剰な拡大になる場合はブラー背景＋
// コンテインフィット前景の三層コンポジットを選択します。
package zoom

import (
	"bytes"
	"fmt"
	"image"
	"math"
	"os"

	"github.com/disintegration/imaging"
	"github.com/muesli/smartcrop"
	"github.com/muesli/smartcrop/nfnt"
)

// 出力サイズの正気チェック用の上下限です。
const (
	minBoxSide = 200
	maxBoxSide = 2000

	desaturatePct = 20
)

// Config はスマートズームの調整パラメータです。すべて環境変数で
// 上書きできます（internal/config 参照）。
type Config struct {
	Enabled     bool    // SMART_ZOOM_PRODUCTS
	ARTolerance float64 // SMART_ZOOM_AR_TOLERANCE: 素通しとみなす AR 相対差
	MaxUpscale  float64 // SMART_ZOOM_MAX_UPSCALE: カバークロップを許す最大拡大率
	Padding     float64 // SMART_ZOOM_PADDING: コンポジット時の内側余白（ボックス比）
	Blur        float64 // SMART_ZOOM_BLUR: 背景ブラー半径
	Darken      float64 // SMART_ZOOM_DARKEN: 背景の暗化率（%）
}

// DefaultConfig は推奨されるデフォルト設定を返します。
func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		ARTolerance: 0.05,
		MaxUpscale:  2.2,
		Padding:     0.07,
		Blur:        24,
		Darken:      12,
	}
}

// Compositor はスマートズームの実体です。
type Compositor struct {
	cfg      Config
	analyzer smartcrop.Analyzer
}

// New は設定を束ねた Compositor を返します。
func New(cfg Config) *Compositor {
	return &Compositor{
		cfg:      cfg,
		analyzer: smartcrop.NewAnalyzer(nfnt.NewDefaultResizer()),
	}
}

// Enabled はズーム処理が有効かどうかを返します。
func (c *Compositor) Enabled() bool {
	return c != nil && c.cfg.Enabled
}

// SmartProduct はプロダクト画像のバイト列とボックス寸法から、ズーム処理済みの
// PNG を生成します。processed=false は「素の画像をそのままインライン化せよ」の
// 合図で、ソースが読めない場合と AR が許容差内の場合がこれに当たります。
// 処理中のエラーも素通しフォールバックに倒し、レンダリングを失敗させません。
func (c *Compositor) SmartProduct(src []byte, boxW, boxH float64) (png []byte, processed bool, err error) {
	if !c.Enabled() || boxW <= 0 || boxH <= 0 {
		return nil, false, nil
	}

	img, err := imaging.Decode(bytes.NewReader(src))
	if err != nil {
		// 読めないソースはズーム判断の対象外。素のインライン化に任せます。
		return nil, false, nil
	}

	bounds := img.Bounds()
	iw, ih := bounds.Dx(), bounds.Dy()
	if iw <= 0 || ih <= 0 {
		return nil, false, nil
	}

	w := clampSide(int(boxW))
	h := clampSide(int(boxH))

	arImg := float64(iw) / float64(ih)
	arBox := float64(w) / float64(h)
	if math.Abs(arImg/arBox-1) <= c.cfg.ARTolerance {
		// 歪みのリスクなし。元画像を無加工で使います。
		return nil, false, nil
	}

	scale := math.Max(float64(w)/float64(iw), float64(h)/float64(ih))

	var out image.Image
	if scale <= c.cfg.MaxUpscale {
		out = c.coverCrop(img, w, h)
	} else {
		out = c.padComposite(img, w, h)
	}

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, out, imaging.PNG); err != nil {
		return nil, false, fmt.Errorf("zoom: PNG エンコードに失敗しました: %w", err)
	}
	return buf.Bytes(), true, nil
}

// SmartProductFile は SmartProduct のファイルパス版です。
func (c *Compositor) SmartProductFile(path string, boxW, boxH float64) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, nil
	}
	return c.SmartProduct(data, boxW, boxH)
}

// coverCrop は視覚的な関心領域を基準にボックスを覆い尽くすクロップを作ります。
// attention 解析に失敗した場合は中央基準にフォールバックします。
func (c *Compositor) coverCrop(img image.Image, w, h int) image.Image {
	if crop, err := c.analyzer.FindBestCrop(img, w, h); err == nil && !crop.Empty() {
		img = imaging.Crop(img, crop)
	}
	return imaging.Fill(img, w, h, imaging.Center, imaging.Lanczos)
}

// padComposite は三層コンポジットを作ります。
//  1. ボックス全体を埋める、強くブラーし少し暗く・淡くした背景
//  2. 内側の余白領域にコンテインフィットさせた元画像
//  3. 前景を背景の中央に重ねた合成
func (c *Compositor) padComposite(img image.Image, w, h int) image.Image {
	bg := imaging.Fill(img, w, h, imaging.Center, imaging.Lanczos)
	bg = imaging.Blur(bg, c.cfg.Blur)
	bg = imaging.AdjustBrightness(bg, -c.cfg.Darken)
	bg = imaging.AdjustSaturation(bg, -desaturatePct)

	innerW := int(float64(w) * (1 - 2*c.cfg.Padding))
	innerH := int(float64(h) * (1 - 2*c.cfg.Padding))
	if innerW < 1 {
		innerW = 1
	}
	if innerH < 1 {
		innerH = 1
	}
	fg := imaging.Fit(img, innerW, innerH, imaging.Lanczos)

	return imaging.OverlayCenter(bg, fg, 1.0)
}

func clampSide(v int) int {
	if v < minBoxSide {
		return minBoxSide
	}
	if v > maxBoxSide {
		return maxBoxSide
	}
	return v
}
