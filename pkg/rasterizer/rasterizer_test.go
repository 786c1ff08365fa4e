package rasterizer

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fillSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="64" height="64" viewBox="0 0 64 64">
  <rect x="0" y="0" width="64" height="64" fill="#3366CC"/>
</svg>`

// redPNGBase64 は 4x4 の不透明な赤一色 PNG を base64 で返す。
func redPNGBase64(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	buf := new(bytes.Buffer)
	require.NoError(t, png.Encode(buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestRenderSolidFill(t *testing.T) {
	data, err := Render(fillSVG)
	require.NoError(t, err)

	img := decodePNG(t, data)
	b := img.Bounds()
	assert.Equal(t, 64, b.Dx())
	assert.Equal(t, 64, b.Dy())

	// 中央のピクセルが fill の色になっている
	r, g, bl, a := img.At(32, 32).RGBA()
	assert.Equal(t, uint32(0x33), r>>8)
	assert.Equal(t, uint32(0x66), g>>8)
	assert.Equal(t, uint32(0xCC), bl>>8)
	assert.Equal(t, uint32(0xFF), a>>8)
}

func TestRenderEmbeddedImage(t *testing.T) {
	// 白い矩形の上に、全面を覆う赤い data URI 画像を重ねる
	svg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" width="64" height="64" viewBox="0 0 64 64">
  <rect width="64" height="64" fill="#FFFFFF"/>
  <image href="data:image/png;base64,%s" x="0" y="0" width="64" height="64"/>
</svg>`, redPNGBase64(t))

	data, err := Render(svg)
	require.NoError(t, err)

	// 埋め込み画像が実際に描画され、中央が赤になる
	img := decodePNG(t, data)
	r, g, b, _ := img.At(32, 32).RGBA()
	assert.Equal(t, uint32(0xFF), r>>8)
	assert.Equal(t, uint32(0x00), g>>8)
	assert.Equal(t, uint32(0x00), b>>8)
}

func TestRenderViewBoxOnlySize(t *testing.T) {
	// width/height 属性がなくても ViewBox の寸法で描画される
	data, err := Render(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 48 32">
  <rect width="48" height="32" fill="#000000"/>
</svg>`)
	require.NoError(t, err)

	img := decodePNG(t, data)
	assert.Equal(t, 48, img.Bounds().Dx())
	assert.Equal(t, 32, img.Bounds().Dy())
}

func TestRenderMalformedSVG(t *testing.T) {
	_, err := Render(`<svg><rect`)
	assert.Error(t, err)
}

func TestRenderToFileCreatesDirs(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "deep", "out.png")
	require.NoError(t, RenderToFile(fillSVG, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	_, err = png.Decode(bytes.NewReader(data))
	assert.NoError(t, err)
}
