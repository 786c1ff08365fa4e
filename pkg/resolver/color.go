package resolver

import (
	"fmt"
	"strconv"
	"strings"
)

// rgb は 0–255 のチャンネル値で表したカラーです。
type rgb struct {
	r, g, b int
}

// parseHex は "#RRGGBB" または "RRGGBB" を rgb に変換します。
// 不正な入力は黒として扱い、コントラスト計算を破綻させません。
func parseHex(s string) rgb {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return rgb{}
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return rgb{}
	}
	return rgb{
		r: int(v >> 16 & 0xFF),
		g: int(v >> 8 & 0xFF),
		b: int(v & 0xFF),
	}
}

func (c rgb) hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.r, c.g, c.b)
}

// luminance は相対輝度 L = 0.2126R + 0.7152G + 0.0722B を返します。
// 各チャンネルは [0,1] に正規化されます。
func (c rgb) luminance() float64 {
	return (0.2126*float64(c.r) + 0.7152*float64(c.g) + 0.0722*float64(c.b)) / 255.0
}

// lighten は各チャンネルを 255 との残り幅の pct% だけ持ち上げます。
func (c rgb) lighten(pct int) rgb {
	return rgb{
		r: c.r + (255-c.r)*pct/100,
		g: c.g + (255-c.g)*pct/100,
		b: c.b + (255-c.b)*pct/100,
	}
}

// darken は各チャンネルを pct% だけ縮小します。
func (c rgb) darken(pct int) rgb {
	return rgb{
		r: c.r * (100 - pct) / 100,
		g: c.g * (100 - pct) / 100,
		b: c.b * (100 - pct) / 100,
	}
}

// lightContrast は BrandPrimary に対して十分明るい対比色を導出します。
// 境界値の扱い: L=0.3 ちょうどは lighten 90% 側、L=0.6 ちょうどは純白側です。
func lightContrast(primary string) string {
	c := parseHex(primary)
	l := c.luminance()
	switch {
	case l < 0.3:
		return c.lighten(80).hex()
	case l < 0.6:
		return c.lighten(90).hex()
	default:
		return "#FFFFFF"
	}
}

// darkContrast は BrandPrimary に対して十分暗い対比色を導出します。
func darkContrast(primary string) string {
	c := parseHex(primary)
	l := c.luminance()
	switch {
	case l > 0.7:
		return c.darken(80).hex()
	case l > 0.4:
		return c.darken(70).hex()
	default:
		return "#000000"
	}
}

// autoContrast は輝度に応じて明・暗どちらかの対比色を選びます。
func autoContrast(primary string) string {
	if parseHex(primary).luminance() >= 0.5 {
		return darkContrast(primary)
	}
	return lightContrast(primary)
}
