package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/shouni/go-compose-kit/internal/config"
	"github.com/shouni/go-compose-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// composeCmd は、mapping とテンプレートから PNG を合成するサブコマンドなのだ。
var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "mapping のアセットを SVG テンプレートに流し込み、PNG を出力するのだ。",
	Long: `mapping JSON に定義されたブランドカラーと画像アセットを使って、
SVG テンプレートのプレースホルダーを解決し、最終 PNG を合成するのだ。
リモート画像は合成の前にまとめてローカルへ取り込むのだよ。`,
	RunE: composeCommand,
}

// init は、compose コマンドに必要なフラグを定義するのだ。
func init() {
	composeCmd.Flags().StringVar(&opts.MappingID, "mapping-id", "", "使用する mapping の ID（<mappings-dir>/<id>.json をロードするのだ）。")
	composeCmd.Flags().StringVar(&opts.SVGName, "svg", "", "一枚だけ処理するテンプレートのファイル名なのだ（省略時は全 SVG）。")
	composeCmd.Flags().BoolVar(&opts.List, "list", false, "利用可能なテンプレート名を表示して終了するのだ。")
	composeCmd.Flags().StringVar(&opts.SupabaseURL, "supabase-url", "", "オブジェクトストレージの URL（環境変数より優先なのだ）。")
	composeCmd.Flags().StringVar(&opts.ServiceKey, "service-key", "", "オブジェクトストレージのサービスキー（環境変数より優先なのだ）。")
}

// composeCommand は、compose サブコマンドの実行ロジック本体なのだ。
func composeCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// --list はテンプレート名を出して即終了なのだ
	if opts.List {
		names, err := pipeline.ListTemplates(opts.TemplatesDir)
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Fprintln(cmd.OutOrStdout(), n)
		}
		return nil
	}

	// 1. 必須チェック
	if opts.MappingID == "" {
		return fmt.Errorf("--mapping-id を指定してほしいのだ: %w", ErrUsage)
	}

	// 2. 環境変数から基本設定をロードし、フラグの値を反映するのだ
	cfg := config.LoadConfig()
	if opts.SupabaseURL != "" {
		cfg.SupabaseURL = opts.SupabaseURL
	}
	if opts.ServiceKey != "" {
		cfg.ServiceKey = opts.ServiceKey
	}
	cfg.Options = opts

	// 3. mapping ファイルの存在チェック（欠落は引数不備扱いなのだ）
	mappingPath := pipeline.MappingPath(opts)
	if _, err := os.Stat(mappingPath); err != nil {
		return fmt.Errorf("mapping ファイル '%s' が見つからないのだ: %w", mappingPath, ErrUsage)
	}

	slog.Info("合成パイプラインを起動するのだ！",
		"mapping_id", opts.MappingID,
		"templates_dir", opts.TemplatesDir,
		"run_dir", opts.RunDir,
		"smart_zoom", cfg.Zoom.Enabled)

	// 4. パイプライン実行
	return pipeline.Execute(ctx, cfg)
}
