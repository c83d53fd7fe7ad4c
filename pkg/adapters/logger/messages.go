package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Decoder lifecycle (info)
		"Decoding %s":                      "%s をデコード中",
		"Keeping intermediate files in %s": "中間ファイルを %s に保存します",
		"Decoder already started":          "デコーダは既に開始されています",
		"Output saved to %s":               "出力を %s に保存しました",
		"Interrupted, shutting down...":    "中断されました。シャットダウン中...",
		"Summary saved to %s":              "サマリーを %s に保存しました",
		"Failed to write summary: %s":      "サマリーの書き込みに失敗しました: %s",

		// Decode loop
		"Parameter set %d activated: %d atlases":         "パラメータセット %d を有効化: アトラス %d 個",
		"Unit %d: %s, %d bytes":                          "ユニット %d: %s, %d バイト",
		"Atlas %d: %d frames of patch data":              "アトラス %d: パッチデータ %d フレーム",
		"Atlas data unit %d stopped early: %v":           "アトラスデータユニット %d の解析が途中で終了しました: %v",
		"%s video of atlas %d failed: %v":                "アトラス %[2]d の %[1]s 映像が失敗しました: %[3]v",
		"Skipping frame %d: %v":                          "フレーム %d をスキップ: %v",
		"Frame %d emitted: %d points":                    "フレーム %d を出力: %d 点",
		"Decode aborted: %v":                             "デコードを中止しました: %v",
		"Decode finished: %d frames emitted, %d skipped": "デコード完了: %d フレーム出力, %d スキップ",

		// Reconstruction
		"Passes changed point count: %d -> %d": "追加処理で点数が変化: %d -> %d",

		// Video and color conversion
		"Decoding %s video with %s backend: %d bytes": "%s 映像を %s バックエンドでデコード中: %d バイト",
		"Running %s %s": "%s %s を実行中",
	})
}
