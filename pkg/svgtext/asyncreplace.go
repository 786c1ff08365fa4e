package svgtext

import (
	"context"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"
)

// ReplaceAllAsync は re の非重複マッチ全件をバイトオフセット付きで収集し、
// 各マッチの置換値 fn を並行に解決してから、リテラル区間と置換区間を
// 元の並び順のまま結合し直します。置換後のテキストが再走査されることは
// ありません。
//
// fn がエラーを返した場合、そのマッチは原文のまま残ります（パス全体は
// 失敗しません）。ソフトな失敗の記録は fn 側の責務です。
func ReplaceAllAsync(ctx context.Context, s string, re *regexp.Regexp, fn func(ctx context.Context, match string) (string, error)) string {
	locs := re.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return s
	}

	repl := make([]string, len(locs))
	eg, egCtx := errgroup.WithContext(ctx)

	for i, loc := range locs {
		i, start, end := i, loc[0], loc[1]
		repl[i] = s[start:end]

		eg.Go(func() error {
			out, err := fn(egCtx, s[start:end])
			if err == nil {
				repl[i] = out
			}
			return nil
		})
	}

	// fn はエラーを伝播しないため Wait が失敗することはありません。
	_ = eg.Wait()

	var b strings.Builder
	b.Grow(len(s))
	prev := 0
	for i, loc := range locs {
		b.WriteString(s[prev:loc[0]])
		b.WriteString(repl[i])
		prev = loc[1]
	}
	b.WriteString(s[prev:])
	return b.String()
}
