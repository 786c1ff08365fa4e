package storage

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObjectURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want ObjectRef
		ok   bool
	}{
		{
			name: "公開 URL",
			raw:  "https://xyz.supabase.co/storage/v1/object/public/assets/logos/main.png",
			want: ObjectRef{Bucket: "assets", Key: "logos/main.png"},
			ok:   true,
		},
		{
			name: "署名付き URL",
			raw:  "https://xyz.supabase.co/storage/v1/object/sign/assets/hero.jpg",
			want: ObjectRef{Bucket: "assets", Key: "hero.jpg"},
			ok:   true,
		},
		{
			name: "認証エンドポイント直接",
			raw:  "https://xyz.supabase.co/storage/v1/object/assets/bg.webp",
			want: ObjectRef{Bucket: "assets", Key: "bg.webp"},
			ok:   true,
		},
		{
			name: "無関係の URL",
			raw:  "https://example.com/images/photo.png",
			ok:   false,
		},
		{
			name: "ホストのない相対パス",
			raw:  "/storage/v1/object/public/assets/a.png",
			ok:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseObjectURL(tt.raw)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestClientAuthorized(t *testing.T) {
	assert.True(t, NewClient("https://xyz.supabase.co", "key", time.Second).Authorized())
	assert.False(t, NewClient("", "key", time.Second).Authorized())
	assert.False(t, NewClient("https://xyz.supabase.co", "", time.Second).Authorized())

	var nilClient *Client
	assert.False(t, nilClient.Authorized())
}

func TestFetchSendsAuthHeaders(t *testing.T) {
	var gotAuth, gotAPIKey, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAPIKey = r.Header.Get("apikey")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "service-key", time.Second)
	body, mime, err := c.Fetch(ObjectRef{Bucket: "assets", Key: "logos/main.png"})
	require.NoError(t, err)

	assert.Equal(t, []byte("png-bytes"), body)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, "Bearer service-key", gotAuth)
	assert.Equal(t, "service-key", gotAPIKey)
	assert.Equal(t, "/storage/v1/object/assets/logos/main.png", gotPath)
}

func TestFetchRejectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad-key", time.Second)
	_, _, err := c.Fetch(ObjectRef{Bucket: "assets", Key: "a.png"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
