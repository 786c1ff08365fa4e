package mapping

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "user-1.json")
	payload := `{
		"colors": {"brand_primary": "#3366CC"},
		"images": {
			"logo": "/assets/logo.png",
			"products": ["a.png", "", "b.png"],
			"screenshots": [],
			"backgrounds": null
		}
	}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	m, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "#3366CC", m.Colors.BrandPrimary)
	// 省略カラーは BrandPrimary にフォールバックする
	assert.Equal(t, "#3366CC", m.Colors.BrandSecondary)
	assert.Equal(t, "#3366CC", m.Colors.Accent1)
	assert.Equal(t, "#3366CC", m.Colors.Accent2)

	// 空エントリは除去され、nil 配列は空配列になる
	assert.Equal(t, []string{"a.png", "b.png"}, m.Images.Products)
	assert.NotNil(t, m.Images.Screenshots)
	assert.NotNil(t, m.Images.Backgrounds)
	assert.Empty(t, m.Images.Backgrounds)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestNormalizeKeepsExplicitColors(t *testing.T) {
	m := AssetMapping{
		Colors: Colors{
			BrandPrimary:   "#111111",
			BrandSecondary: "#222222",
			Accent1:        "#333333",
		},
	}
	m.Normalize()

	assert.Equal(t, "#222222", m.Colors.BrandSecondary)
	assert.Equal(t, "#333333", m.Colors.Accent1)
	assert.Equal(t, "#111111", m.Colors.Accent2)
}

func TestRemoteRefs(t *testing.T) {
	im := Images{
		Logo:        "https://cdn.example.com/logo.png",
		Products:    []string{"/local/p1.png", "http://cdn.example.com/p2.jpg"},
		Screenshots: []string{"data:image/png;base64,AAAA"},
	}

	assert.Equal(t, []string{
		"https://cdn.example.com/logo.png",
		"http://cdn.example.com/p2.jpg",
	}, im.RemoteRefs())
}

func TestClone(t *testing.T) {
	src := &AssetMapping{
		Images: Images{Products: []string{"a.png"}},
	}
	dst := src.Clone()
	dst.Images.Products[0] = "b.png"

	assert.Equal(t, "a.png", src.Images.Products[0])
}
