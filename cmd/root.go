package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/shouni/go-compose-kit/internal/config"

	"github.com/spf13/cobra"
)

// opts は CLI フラグの集約先なのだ。
var opts config.ComposeOptions

// ErrUsage は引数の不備や mapping ファイルの欠落を表すのだ。
// Execute はこれを exit code 2 に写すのだよ。
var ErrUsage = errors.New("invalid usage")

var rootCmd = &cobra.Command{
	Use:           "compose-kit",
	Short:         "SVG テンプレートとブランドアセットからマーケティング画像を合成するのだ。",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
func addAppFlags(rootCmd *cobra.Command) {
	// --- ディレクトリ設定 ---
	rootCmd.PersistentFlags().StringVar(&opts.MappingsDir, "mappings-dir", config.DefaultMappingsDir, "mapping JSON を探すディレクトリなのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.TemplatesDir, "templates-dir", config.DefaultTemplatesDir, "SVG テンプレートを探すディレクトリなのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.RunDir, "run-dir", config.DefaultRunDir, "PNG と取り込んだアセットの出力先なのだ。")

	// --- 実行制御 ---
	rootCmd.PersistentFlags().DurationVar(&opts.HTTPTimeout, "http-timeout", config.DefaultHTTPTimeout, "リモート取得一回あたりのタイムアウトなのだ。")
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
// 終了コードは 0=成功 / 1=実行時エラー / 2=引数不備 なのだ。
func Execute() {
	addAppFlags(rootCmd)
	rootCmd.AddCommand(composeCmd)
	rootCmd.SetFlagErrorFunc(flagUsageError)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("実行に失敗したのだ", "error", err)
		if errors.Is(err, ErrUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// flagUsageError はフラグ解析の失敗（未知のフラグや不正な値）を
// 引数不備（exit code 2）に写すのだ。
func flagUsageError(_ *cobra.Command, err error) error {
	return fmt.Errorf("%v: %w", err, ErrUsage)
}
