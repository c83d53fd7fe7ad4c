package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Flag categories
		"Output":         "出力先",
		"Video":          "動画デコード",
		"Color":          "色空間変換",
		"Reconstruction": "再構成",
		"Debug":          "デバッグ",
		"Logging":        "ログ",

		// Commands
		"Decode V-PCC point cloud bitstreams": "V-PCC点群ビットストリームをデコード",
		"Decode a bitstream into PLY frames":  "ビットストリームをPLYフレームにデコード",
		"List the units of a bitstream":       "ビットストリームのユニットを一覧表示",
		"Show version information":            "バージョン情報を表示",
		"vpccdec version %s":                  "vpccdec バージョン %s",

		// Flags
		"YAML configuration file":                              "YAML設定ファイル",
		"Directory for the decoded PLY frames":                 "デコードしたPLYフレームの出力先ディレクトリ",
		"PLY encoding (ascii, binary)":                         "PLYのエンコード形式 (ascii, binary)",
		"Output decode summary to file (Markdown format)":      "デコードのサマリーをファイルに出力（Markdown形式）",
		"Path to the ffmpeg executable":                        "ffmpeg実行ファイルのパス",
		"Keep extracted sub-streams and decoded pictures":      "抽出したサブストリームとデコード画像を保持",
		"Directory for intermediate files":                     "中間ファイルのディレクトリ",
		"Accept attribute video smaller than geometry video":   "ジオメトリ動画より小さい属性動画を許可",
		"External color space conversion tool":                 "外部の色空間変換ツール",
		"Configuration for the inverse color space conversion": "逆色空間変換の設定",
		"Enable a reconstruction pass (repeatable, or all)":    "再構成パスを有効化（複数指定可、またはall）",
		"What to do when a frame fails (skip-frame, abort)":    "フレーム失敗時の動作 (skip-frame, abort)",
		"Enable debug output":                                  "デバッグ出力を有効化",
		"Preview image format (png, jpeg, webp)":               "プレビュー画像の形式 (png, jpeg, webp)",
		"Directory for debug output":                           "デバッグ出力のディレクトリ",
		"Log level (debug, info, warn, error)":                 "ログレベル (debug, info, warn, error)",
		"Also write structured logs to this file (rotated)":    "構造化ログをこのファイルにも出力（ローテーションあり）",
		"Suppress all log output":                              "すべてのログ出力を抑制",

		// Errors
		"Bitstream argument is required": "ビットストリームの引数が必要です",
	})
}
