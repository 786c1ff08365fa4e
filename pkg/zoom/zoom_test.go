package zoom

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makePNG は指定サイズの単色 PNG バイト列を返す。
func makePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 120, G: 80, B: 200, A: 255})
		}
	}
	buf := new(bytes.Buffer)
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func decodeSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	b := img.Bounds()
	return b.Dx(), b.Dy()
}

func TestSmartProductARWithinTolerance(t *testing.T) {
	c := New(DefaultConfig())
	src := makePNG(t, 400, 300)

	// AR が一致する場合は無加工の合図を返す
	out, processed, err := c.SmartProduct(src, 400, 300)
	require.NoError(t, err)
	assert.False(t, processed)
	assert.Nil(t, out)
}

func TestSmartProductCoverCrop(t *testing.T) {
	c := New(DefaultConfig())
	src := makePNG(t, 800, 600)

	// 縮小で済む場合はカバーフィットのクロップになる
	out, processed, err := c.SmartProduct(src, 400, 400)
	require.NoError(t, err)
	require.True(t, processed)

	w, h := decodeSize(t, out)
	assert.Equal(t, 400, w)
	assert.Equal(t, 400, h)
}

func TestSmartProductPadComposite(t *testing.T) {
	c := New(DefaultConfig())
	src := makePNG(t, 100, 300)

	// 10 倍の拡大が必要になるので三層コンポジットに切り替わる
	out, processed, err := c.SmartProduct(src, 1000, 400)
	require.NoError(t, err)
	require.True(t, processed)

	// 出力はボックス全体を埋める
	w, h := decodeSize(t, out)
	assert.Equal(t, 1000, w)
	assert.Equal(t, 400, h)
}

func TestSmartProductClampsBoxSize(t *testing.T) {
	c := New(DefaultConfig())
	src := makePNG(t, 400, 300)

	// 極端に小さいボックスは下限まで引き上げられる
	out, processed, err := c.SmartProduct(src, 10, 10)
	require.NoError(t, err)
	require.True(t, processed)

	w, h := decodeSize(t, out)
	assert.Equal(t, 200, w)
	assert.Equal(t, 200, h)
}

func TestSmartProductUndecodableSource(t *testing.T) {
	c := New(DefaultConfig())

	out, processed, err := c.SmartProduct([]byte("not an image"), 400, 300)
	require.NoError(t, err)
	assert.False(t, processed)
	assert.Nil(t, out)
}

func TestSmartProductDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	c := New(cfg)

	out, processed, err := c.SmartProduct(makePNG(t, 100, 300), 1000, 400)
	require.NoError(t, err)
	assert.False(t, processed)
	assert.Nil(t, out)
}

func TestEnabledNilSafe(t *testing.T) {
	var c *Compositor
	assert.False(t, c.Enabled())
}
