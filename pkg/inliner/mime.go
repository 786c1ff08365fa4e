package inliner

import (
	"encoding/base64"
	"path/filepath"
	"strings"
)

// mimeFromPath は拡張子から画像 MIME タイプを推定します。
// 拡張子が取れない場合は fallback を返します。
func mimeFromPath(path, fallback string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(stripQuery(path)), "."))
	switch ext {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	case "gif":
		return "image/gif"
	case "svg":
		return "image/svg+xml"
	case "":
		return fallback
	default:
		return "image/" + ext
	}
}

// isImageMIME は Content-Type が画像系かどうかを判定します。
func isImageMIME(ct string) bool {
	return strings.HasPrefix(strings.TrimSpace(strings.ToLower(ct)), "image/")
}

// dataURI はバイト列を base64 の data URI にエンコードします。
func dataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func stripQuery(s string) string {
	if i := strings.IndexByte(s, '?'); i >= 0 {
		return s[:i]
	}
	return s
}
