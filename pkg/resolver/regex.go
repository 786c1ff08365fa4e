package resolver

import "regexp"

var (
	// ImageTokenRegex は画像プレースホルダー全種に一致します。
	// 固有カテゴリ（PRODUCT_IMAGE 等）を汎用 IMAGE より先に試すため、
	// 選択肢の並び順を変えてはいけません。
	ImageTokenRegex = regexp.MustCompile(`(?i)PLACE_LOGO` +
		`|PLACE_PRODUCT_IMAGE(?:_\d+)?(?:_HERE)?` +
		`|PLACE_SCREENSHOT(?:_\d+)?(?:_HERE)?` +
		`|PLACE_BACKGROUND(?:_\d+)?(?:_HERE)?` +
		`|PLACE_IMAGE(?:_\d+)?_HERE` +
		`|IMAGE_\d+_HERE`)

	// NumberRegex はトークン内の 1 始まりの連番サフィックスを抽出します。
	NumberRegex = regexp.MustCompile(`_(\d+)(?:_HERE)?$`)
)
