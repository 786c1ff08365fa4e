// Package mapping はユーザーごとのブランドカラーと画像アセットの対応表を定義します。
package mapping

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Colors はブランドカラーの組です。BrandPrimary のみ必須で、
// 省略されたカラーは Normalize 時に BrandPrimary へフォールバックします。
type Colors struct {
	BrandPrimary   string `json:"brand_primary"`
	BrandSecondary string `json:"brand_secondary,omitempty"`
	Accent1        string `json:"accent_1,omitempty"`
	Accent2        string `json:"accent_2,omitempty"`
}

// Images はカテゴリー別の画像アセット参照です。各エントリはローカルパス、
// "/file?p=<enc>" 参照、data URI、または http(s) URL のいずれかです。
// 配列内の並び順は外部 UI でユーザーが決めた優先順位であり、意味を持ちます。
type Images struct {
	Logo        string   `json:"logo,omitempty"`
	Products    []string `json:"products"`
	Screenshots []string `json:"screenshots"`
	Backgrounds []string `json:"backgrounds"`
}

// AssetMapping はテンプレート合成の中心となる値オブジェクトです。
type AssetMapping struct {
	Colors Colors `json:"colors"`
	Images Images `json:"images"`
}

// Load は永続化された mapping JSON ファイルを読み込み、正規化して返します。
func Load(path string) (*AssetMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mapping: ファイル '%s' の読み込みに失敗しました: %w", path, err)
	}

	var m AssetMapping
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("mapping: ファイル '%s' のデコードに失敗しました: %w", path, err)
	}

	m.Normalize()
	return &m, nil
}

// Normalize はデシリアライズ境界での不変条件を強制します。
// 配列は非 nil かつ空エントリなしになり、省略されたカラーは
// BrandPrimary へフォールバックします。
func (m *AssetMapping) Normalize() {
	if m.Colors.BrandSecondary == "" {
		m.Colors.BrandSecondary = m.Colors.BrandPrimary
	}
	if m.Colors.Accent1 == "" {
		m.Colors.Accent1 = m.Colors.BrandPrimary
	}
	if m.Colors.Accent2 == "" {
		m.Colors.Accent2 = m.Colors.BrandPrimary
	}

	m.Images.Products = compact(m.Images.Products)
	m.Images.Screenshots = compact(m.Images.Screenshots)
	m.Images.Backgrounds = compact(m.Images.Backgrounds)
}

// Clone は配列まで複製した深いコピーを返します。
// マテリアライザーが参照を書き換える際に元の mapping を汚さないためのものです。
func (m *AssetMapping) Clone() *AssetMapping {
	out := *m
	out.Images.Products = append([]string(nil), m.Images.Products...)
	out.Images.Screenshots = append([]string(nil), m.Images.Screenshots...)
	out.Images.Backgrounds = append([]string(nil), m.Images.Backgrounds...)
	return &out
}

// AllRefs はロゴを含む全画像参照を列挙します。プリフェッチ系の
// 一括処理で使用します。
func (im Images) AllRefs() []string {
	refs := make([]string, 0, 1+len(im.Products)+len(im.Screenshots)+len(im.Backgrounds))
	if im.Logo != "" {
		refs = append(refs, im.Logo)
	}
	refs = append(refs, im.Products...)
	refs = append(refs, im.Screenshots...)
	refs = append(refs, im.Backgrounds...)
	return refs
}

// RemoteRefs は http(s) 参照のみを返します。
func (im Images) RemoteRefs() []string {
	var refs []string
	for _, r := range im.AllRefs() {
		if IsRemote(r) {
			refs = append(refs, r)
		}
	}
	return refs
}

// IsRemote は参照が http(s) URL かどうかを判定します。
func IsRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
