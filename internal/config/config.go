package config

import (
	"strconv"
	"time"

	"github.com/shouni/go-utils/envutil"

	"github.com/shouni/go-compose-kit/pkg/zoom"
)

// デフォルト値の定義なのだ
const (
	DefaultHTTPTimeout  = 12 * time.Second
	DefaultMappingsDir  = "mappings"
	DefaultTemplatesDir = "templates"
	DefaultRunDir       = "runs/compose"

	// DefaultFetchInterval はマテリアライザーの一括ダウンロードにかける
	// レートリミットの間隔なのだ。
	DefaultFetchInterval = 200 * time.Millisecond
)

// Config はアプリケーション全体の環境設定（ストレージ認証やズーム調整）を保持する構造体なのだ。
type Config struct {
	SupabaseURL string
	ServiceKey  string
	Zoom        zoom.Config

	Options ComposeOptions
}

// LoadConfig は環境変数から設定を読み込み、構造体を返すのだ！
func LoadConfig() *Config {
	zc := zoom.DefaultConfig()
	zc.Enabled = envutil.GetEnv("SMART_ZOOM_PRODUCTS", "1") != "0"
	zc.ARTolerance = envFloat("SMART_ZOOM_AR_TOLERANCE", zc.ARTolerance)
	zc.MaxUpscale = envFloat("SMART_ZOOM_MAX_UPSCALE", zc.MaxUpscale)
	zc.Padding = envFloat("SMART_ZOOM_PADDING", zc.Padding)
	zc.Blur = envFloat("SMART_ZOOM_BLUR", zc.Blur)
	zc.Darken = envFloat("SMART_ZOOM_DARKEN", zc.Darken)

	return &Config{
		SupabaseURL: envutil.GetEnv("SUPABASE_URL", envutil.GetEnv("NEXT_PUBLIC_SUPABASE_URL", "")),
		ServiceKey:  envutil.GetEnv("SUPABASE_SERVICE_ROLE_KEY", envutil.GetEnv("SUPABASE_SERVICE_KEY", "")),
		Zoom:        zc,
	}
}

// ComposeOptions は CLI フラグから渡される実行時のパラメータなのだ。
type ComposeOptions struct {
	// 対象の選択
	MappingID string // --mapping-id
	SVGName   string // --svg: 一枚だけ処理する場合のテンプレートファイル名
	List      bool   // --list

	// ディレクトリ設定
	MappingsDir  string // --mappings-dir
	TemplatesDir string // --templates-dir
	RunDir       string // --run-dir

	// 認証情報の上書き（環境変数より優先なのだ）
	SupabaseURL string // --supabase-url
	ServiceKey  string // --service-key

	// 実行制御
	HTTPTimeout time.Duration // --http-timeout
}

// envFloat は数値系の環境変数を読むのだ。パースできない値は
// デフォルトに倒すのだ（値の検証は UI 側に任せるのだよ）。
func envFloat(key string, def float64) float64 {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}
