package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shouni/go-utils/urlpath"

	"github.com/shouni/go-compose-kit/internal/config"
	"github.com/shouni/go-compose-kit/internal/materializer"
	"github.com/shouni/go-compose-kit/pkg/composer"
	"github.com/shouni/go-compose-kit/pkg/mapping"
	"github.com/shouni/go-compose-kit/pkg/storage"
	"github.com/shouni/go-compose-kit/pkg/zoom"
)

// Execute は compose コマンドの実行フロー本体なのだ。
// mapping をロードし、リモートアセットを前もってローカルへ取り込んでから、
// 対象テンプレートを一枚ずつ合成するのだ。こうするとコアのパイプラインは
// レンダリング時にネットワークへ出ていく必要がないのだよ。
func Execute(ctx context.Context, cfg *config.Config) error {
	opts := cfg.Options

	mappingPath := MappingPath(opts)
	m, err := mapping.Load(mappingPath)
	if err != nil {
		return fmt.Errorf("mapping '%s' のロードに失敗したのだ: %w", opts.MappingID, err)
	}

	templates, err := selectTemplates(opts)
	if err != nil {
		return err
	}
	if len(templates) == 0 {
		return fmt.Errorf("テンプレートディレクトリ '%s' に SVG が見つからないのだ", opts.TemplatesDir)
	}

	// --- Phase 1: Materialize (リモートアセットの取り込み) ---
	storageClient := storage.NewClient(cfg.SupabaseURL, cfg.ServiceKey, opts.HTTPTimeout)
	mat := materializer.New(
		filepath.Join(opts.RunDir, "assets"),
		storageClient,
		opts.HTTPTimeout,
		config.DefaultFetchInterval,
	)
	localized, err := mat.MaterializeMapping(ctx, m)
	if err != nil {
		return fmt.Errorf("アセットの取り込みに失敗したのだ: %w", err)
	}

	// --- Phase 2: Compose (テンプレートごとの合成) ---
	zoomComp := zoom.New(cfg.Zoom)
	debugDir := filepath.Join(opts.RunDir, "debug")
	slog.Info("合成を開始するのだ", "templates", len(templates), "mapping", opts.MappingID)

	for _, tmpl := range templates {
		base := strings.TrimSuffix(filepath.Base(tmpl), filepath.Ext(tmpl))
		outPath, err := urlpath.ResolvePath(opts.RunDir, base+".png")
		if err != nil {
			return fmt.Errorf("出力パスの解決に失敗したのだ: %w", err)
		}

		result, err := composer.Compose(ctx, composer.Request{
			SVGPath:      tmpl,
			Mapping:      localized,
			OutPNGPath:   outPath,
			DebugDir:     debugDir,
			BaseDir:      opts.TemplatesDir,
			Zoom:         zoomComp,
			FetchTimeout: opts.HTTPTimeout,
		})
		if err != nil {
			return fmt.Errorf("テンプレート '%s' の合成に失敗したのだ: %w", filepath.Base(tmpl), err)
		}

		slog.Info("テンプレートを合成したのだ！",
			"template", filepath.Base(tmpl),
			"png", result.PNGPath,
			"degraded", len(result.Warnings))
	}

	slog.Info("すべての合成工程が完了したのだ！", "count", len(templates))
	return nil
}

// MappingPath は mapping ID から JSON ファイルのパスを導くのだ。
func MappingPath(opts config.ComposeOptions) string {
	return filepath.Join(opts.MappingsDir, opts.MappingID+".json")
}

// ListTemplates はテンプレートディレクトリ直下の SVG ファイル名を
// ソート済みで返すのだ。
func ListTemplates(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("テンプレートディレクトリ '%s' を読めないのだ: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".svg") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// selectTemplates は --svg 指定があれば一枚だけ、なければ全 SVG を対象にするのだ。
func selectTemplates(opts config.ComposeOptions) ([]string, error) {
	if opts.SVGName != "" {
		path := filepath.Join(opts.TemplatesDir, opts.SVGName)
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("テンプレート '%s' が見つからないのだ: %w", opts.SVGName, err)
		}
		return []string{path}, nil
	}

	names, err := ListTemplates(opts.TemplatesDir)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(opts.TemplatesDir, n)
	}
	return paths, nil
}
