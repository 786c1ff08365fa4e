// Package resolver はテンプレート内のプレースホルダートークンを
// mapping の実データへ解決します。トークンはカラー系（COLOR_*）と
// 画像系（PLACE_* / IMAGE_N_HERE）の二系統で、いずれも大文字小文字を
// 区別しません。
package resolver

import (
	"strconv"
	"strings"

	"github.com/shouni/go-compose-kit/pkg/mapping"
)

// ColorKeys は既知のカラートークンを書き換え順に並べたものです。
// 長いキーを先に処理することで、COLOR_CONTRAST が
// COLOR_LIGHT_CONTRAST / COLOR_DARK_CONTRAST の一部を食うことを防ぎます。
var ColorKeys = []string{
	"COLOR_LIGHT_CONTRAST",
	"COLOR_DARK_CONTRAST",
	"COLOR_BRANDCOLOR",
	"COLOR_SECONDARY",
	"COLOR_ACCENT_1",
	"COLOR_ACCENT_2",
	"COLOR_CONTRAST",
	"COLOR_PRIMARY",
}

// CycleState は一回の書き換えパスに閉じた巡回カウンタです。
// パッケージレベルの可変状態を持たないことで、Resolver を
// 並行レンダリング間で安全に再利用できます。
type CycleState struct {
	Product    int
	Screenshot int
	Background int
}

// Resolver は一つの AssetMapping に対するトークン解決器です。
type Resolver struct {
	m *mapping.AssetMapping

	productSet map[string]bool
}

// New は mapping を束ねた Resolver を返します。
func New(m *mapping.AssetMapping) *Resolver {
	set := make(map[string]bool, len(m.Images.Products))
	for _, p := range m.Images.Products {
		set[p] = true
	}
	return &Resolver{m: m, productSet: set}
}

// ResolveColor はカラートークンを "#RRGGBB" 形式の値に解決します。
// 未知の COLOR_* トークンは ok=false を返し、呼び出し側は原文を残します。
func (r *Resolver) ResolveColor(token string) (string, bool) {
	up := strings.ToUpper(strings.TrimPrefix(token, "#"))
	primary := r.m.Colors.BrandPrimary

	switch {
	case up == "COLOR_BRANDCOLOR" || up == "COLOR_PRIMARY":
		return primary, true
	case up == "COLOR_SECONDARY":
		return r.m.Colors.BrandSecondary, true
	case up == "COLOR_ACCENT_1":
		return r.m.Colors.Accent1, true
	case up == "COLOR_ACCENT_2":
		return r.m.Colors.Accent2, true
	case strings.HasPrefix(up, "COLOR_LIGHT_CONTRAST"):
		return lightContrast(primary), true
	case strings.HasPrefix(up, "COLOR_DARK_CONTRAST"):
		return darkContrast(primary), true
	case up == "COLOR_CONTRAST":
		return autoContrast(primary), true
	default:
		return "", false
	}
}

// ResolveImage は画像トークンを mapping 内の参照に解決します。
// 番号付きトークン（1 始まり）は (N-1) mod len で配列を引き、巡回カウンタを
// 動かしません。番号なしトークンは st のカウンタで文書内の出現順に巡回します。
// 該当カテゴリが空なら ok=false を返し、呼び出し側はトークンを原文のまま残します。
func (r *Resolver) ResolveImage(token string, st *CycleState) (string, bool) {
	up := strings.ToUpper(token)
	n, numbered := extractIndex(up)

	switch {
	case strings.Contains(up, "LOGO"):
		if r.m.Images.Logo == "" {
			return "", false
		}
		return r.m.Images.Logo, true
	case strings.Contains(up, "PRODUCT"):
		return pick(r.m.Images.Products, &st.Product, n, numbered)
	case strings.Contains(up, "SCREENSHOT"):
		return pick(r.m.Images.Screenshots, &st.Screenshot, n, numbered)
	case strings.Contains(up, "BACKGROUND"):
		return pick(r.m.Images.Backgrounds, &st.Background, n, numbered)
	default:
		// 汎用 PLACE_IMAGE / IMAGE_N_HERE: 最初に見つかった空でない
		// カテゴリへフォールバックします。
		if ref, ok := pick(r.m.Images.Products, &st.Product, n, numbered); ok {
			return ref, ok
		}
		if ref, ok := pick(r.m.Images.Screenshots, &st.Screenshot, n, numbered); ok {
			return ref, ok
		}
		if ref, ok := pick(r.m.Images.Backgrounds, &st.Background, n, numbered); ok {
			return ref, ok
		}
		if r.m.Images.Logo != "" {
			return r.m.Images.Logo, true
		}
		return "", false
	}
}

// IsProductRef は参照が products 配列由来かどうかを判定します。
// スマートズームの適用対象の判別に使用します。
func (r *Resolver) IsProductRef(ref string) bool {
	return r.productSet[ref]
}

func pick(list []string, counter *int, n int, numbered bool) (string, bool) {
	if len(list) == 0 {
		return "", false
	}
	if numbered {
		if n < 1 {
			n = 1
		}
		return list[(n-1)%len(list)], true
	}
	i := *counter % len(list)
	*counter++
	return list[i], true
}

// extractIndex はトークン末尾の番号サフィックスを取り出します。
func extractIndex(token string) (int, bool) {
	m := NumberRegex.FindStringSubmatch(token)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
