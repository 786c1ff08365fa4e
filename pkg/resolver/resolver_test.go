package resolver

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-compose-kit/pkg/mapping"
)

func newTestResolver(t *testing.T, m mapping.AssetMapping) *Resolver {
	t.Helper()
	m.Normalize()
	return New(&m)
}

func TestResolveColorKnownKeys(t *testing.T) {
	r := newTestResolver(t, mapping.AssetMapping{
		Colors: mapping.Colors{
			BrandPrimary:   "#3366CC",
			BrandSecondary: "#FF8800",
			Accent1:        "#00AA55",
		},
	})

	tests := []struct {
		token string
		want  string
	}{
		{"COLOR_BRANDCOLOR", "#3366CC"},
		{"COLOR_PRIMARY", "#3366CC"},
		{"color_primary", "#3366CC"}, // 大文字小文字は区別しない
		{"COLOR_SECONDARY", "#FF8800"},
		{"COLOR_ACCENT_1", "#00AA55"},
		{"COLOR_ACCENT_2", "#3366CC"}, // 省略時は primary にフォールバック
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, ok := r.ResolveColor(tt.token)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveColorUnknownKey(t *testing.T) {
	r := newTestResolver(t, mapping.AssetMapping{
		Colors: mapping.Colors{BrandPrimary: "#3366CC"},
	})

	_, ok := r.ResolveColor("COLOR_TERTIARY")
	assert.False(t, ok)
}

func TestLightContrastBranches(t *testing.T) {
	tests := []struct {
		name    string
		primary string
		want    string
	}{
		// L=76/255≈0.298 < 0.3 → lighten 80%
		{"below 0.3", "#4C4C4C", "#DBDBDB"},
		// L=77/255≈0.302 → lighten 90% の側
		{"at 0.3 boundary", "#4D4D4D", "#EDEDED"},
		// L=153/255=0.6 ちょうど → 純白
		{"at 0.6 boundary", "#999999", "#FFFFFF"},
		{"bright primary", "#EEEEEE", "#FFFFFF"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lightContrast(tt.primary))
		})
	}
}

func TestDarkContrastBranches(t *testing.T) {
	tests := []struct {
		name    string
		primary string
		want    string
	}{
		// L=204/255=0.8 > 0.7 → darken 80%
		{"above 0.7", "#CCCCCC", "#282828"},
		// L=0.6 → darken 70%
		{"mid range", "#999999", "#2D2D2D"},
		// L=0.2 ≤ 0.4 → 純黒
		{"dark primary", "#333333", "#000000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, darkContrast(tt.primary))
		})
	}
}

// 明コントラストは入力輝度 0.6 以上で必ず純白、未満でも入力より暗くならない。
func TestLightContrastMonotonic(t *testing.T) {
	for v := 0; v <= 255; v += 5 {
		primary := fmt.Sprintf("#%02X%02X%02X", v, v, v)
		out := parseHex(lightContrast(primary))
		in := parseHex(primary)

		if in.luminance() >= 0.6 {
			assert.Equal(t, "#FFFFFF", lightContrast(primary), "primary=%s", primary)
		} else {
			assert.GreaterOrEqual(t, out.luminance(), in.luminance(), "primary=%s", primary)
		}
	}
}

func TestParseHexMalformed(t *testing.T) {
	// 不正値は黒として扱い、コントラスト計算は有効な色を返し続ける
	assert.Equal(t, rgb{}, parseHex("not-a-color"))
	assert.Equal(t, "#CCCCCC", lightContrast("#999999ZZ"))
}

func TestResolveImageCycling(t *testing.T) {
	r := newTestResolver(t, mapping.AssetMapping{
		Colors: mapping.Colors{BrandPrimary: "#000000"},
		Images: mapping.Images{Products: []string{"p0.png", "p1.png", "p2.png"}},
	})

	st := &CycleState{}
	var got []string
	for i := 0; i < 4; i++ {
		ref, ok := r.ResolveImage("PLACE_PRODUCT_IMAGE_HERE", st)
		require.True(t, ok)
		got = append(got, ref)
	}
	// 3 枚のプロダクトに対する 4 回の出現は先頭へ巡回する
	assert.Equal(t, []string{"p0.png", "p1.png", "p2.png", "p0.png"}, got)
}

func TestResolveImageNumbered(t *testing.T) {
	r := newTestResolver(t, mapping.AssetMapping{
		Colors: mapping.Colors{BrandPrimary: "#000000"},
		Images: mapping.Images{Products: []string{"p0.png", "p1.png", "p2.png"}},
	})

	st := &CycleState{Product: 2} // 巡回状態に関係なく番号指定が勝つ
	ref, ok := r.ResolveImage("PLACE_PRODUCT_IMAGE_2_HERE", st)
	require.True(t, ok)
	assert.Equal(t, "p1.png", ref)
	// 番号付きトークンはカウンタを動かさない
	assert.Equal(t, 2, st.Product)

	// (N-1) mod len の巡回
	ref, ok = r.ResolveImage("PLACE_PRODUCT_IMAGE_5_HERE", st)
	require.True(t, ok)
	assert.Equal(t, "p1.png", ref)
}

func TestResolveImageEmptyCategory(t *testing.T) {
	r := newTestResolver(t, mapping.AssetMapping{
		Colors: mapping.Colors{BrandPrimary: "#000000"},
	})

	_, ok := r.ResolveImage("PLACE_BACKGROUND_HERE", &CycleState{})
	assert.False(t, ok)
}

func TestResolveImageGenericFallback(t *testing.T) {
	// products が空なら screenshots、それも空なら backgrounds、最後に logo
	r := newTestResolver(t, mapping.AssetMapping{
		Colors: mapping.Colors{BrandPrimary: "#000000"},
		Images: mapping.Images{
			Screenshots: []string{"s0.png"},
			Logo:        "logo.png",
		},
	})

	ref, ok := r.ResolveImage("PLACE_IMAGE_HERE", &CycleState{})
	require.True(t, ok)
	assert.Equal(t, "s0.png", ref)

	logoOnly := newTestResolver(t, mapping.AssetMapping{
		Colors: mapping.Colors{BrandPrimary: "#000000"},
		Images: mapping.Images{Logo: "logo.png"},
	})
	ref, ok = logoOnly.ResolveImage("IMAGE_1_HERE", &CycleState{})
	require.True(t, ok)
	assert.Equal(t, "logo.png", ref)
}

func TestImageTokenRegex(t *testing.T) {
	matches := []string{
		"PLACE_LOGO",
		"PLACE_PRODUCT_IMAGE",
		"PLACE_PRODUCT_IMAGE_2",
		"PLACE_PRODUCT_IMAGE_HERE",
		"PLACE_PRODUCT_IMAGE_2_HERE",
		"PLACE_SCREENSHOT_HERE",
		"PLACE_BACKGROUND_3_HERE",
		"PLACE_IMAGE_HERE",
		"PLACE_IMAGE_4_HERE",
		"IMAGE_2_HERE",
		"place_logo", // 大文字小文字は区別しない
	}
	for _, s := range matches {
		assert.Equal(t, s, ImageTokenRegex.FindString(s), "token %s", s)
	}

	// 裸の IMAGE や HERE なし番号は対象外
	assert.Empty(t, ImageTokenRegex.FindString("IMAGE_HERE"))
	assert.Empty(t, ImageTokenRegex.FindString("SOME_IMAGE"))
}

func TestIsProductRef(t *testing.T) {
	r := newTestResolver(t, mapping.AssetMapping{
		Colors: mapping.Colors{BrandPrimary: "#000000"},
		Images: mapping.Images{Products: []string{"p0.png"}},
	})

	assert.True(t, r.IsProductRef("p0.png"))
	assert.False(t, r.IsProductRef("other.png"))
}
