// Package svgtext は SVG テンプレート本文に対するテキストベースの
// トークン書き換えを提供します。プレースホルダー以外の XML 内容には
// 一切手を触れない、純粋で非破壊的な変換です。
package svgtext

import (
	"regexp"
	"strings"

	"github.com/shouni/go-compose-kit/pkg/resolver"
)

// colorKeyRegexps は既知カラーキーごとの書き換えパターンです。
// 先頭のオプショナルな "#" も一緒に消費するため、テンプレートが
// "#COLOR_PRIMARY" を CSS カラーリテラルとして宣言していても
// 二重ハッシュになりません。
var colorKeyRegexps = buildColorKeyRegexps()

func buildColorKeyRegexps() map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp, len(resolver.ColorKeys))
	for _, key := range resolver.ColorKeys {
		pattern := `(?i)#?` + regexp.QuoteMeta(key)
		// コントラスト系はバリアントサフィックス（COLOR_LIGHT_CONTRAST_1 等）を
		// 丸ごと消費します。
		if strings.HasSuffix(key, "_CONTRAST") && key != "COLOR_CONTRAST" {
			pattern += `(?:_\d+)?`
		}
		out[key] = regexp.MustCompile(pattern)
	}
	return out
}

// RewriteColors は既知カラーキーをそれぞれ一度だけ解決し、文書全体を
// グローバルに置換します。置換値は必ず "#" 付きの形に揃えます。
func RewriteColors(svg string, r *resolver.Resolver) string {
	for _, key := range resolver.ColorKeys {
		hex, ok := r.ResolveColor(key)
		if !ok || hex == "" {
			continue
		}
		if !strings.HasPrefix(hex, "#") {
			hex = "#" + hex
		}
		svg = colorKeyRegexps[key].ReplaceAllLiteralString(svg, hex)
	}
	return svg
}

// RewriteImages は画像トークンを文書順に一回のパスで処理します。
// 番号なしトークンはカテゴリごとに独立した巡回カウンタで巡回し、
// 番号付きトークンはカウンタに影響しません。解決できなかったトークンは
// 原文のまま残し、misses として返します（デバッグ出力で未解決を
// 目視できるようにするためです）。
func RewriteImages(svg string, r *resolver.Resolver) (string, []string) {
	st := &resolver.CycleState{}
	var misses []string

	out := resolver.ImageTokenRegex.ReplaceAllStringFunc(svg, func(token string) string {
		ref, ok := r.ResolveImage(token, st)
		if !ok {
			misses = append(misses, token)
			return token
		}
		return ref
	})
	return out, misses
}
