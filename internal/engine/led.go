package engine

import (
	"log"

	"github.com/char5742/g11-macrod/internal/hid"
)

// ComputeLEDBits はバンクと録画状態からLEDビットマスクを導出する純粋関数。
// M1〜M3のうちアクティブなバンクのLEDだけが点灯し、
// MRは録画セッションが開いている間だけ点灯する
func ComputeLEDBits(activeBank int, recordingOpen bool) byte {
	var bits byte
	switch activeBank {
	case 1:
		bits = hid.LEDM1
	case 2:
		bits = hid.LEDM2
	case 3:
		bits = hid.LEDM3
	}
	if recordingOpen {
		bits |= hid.LEDMR
	}
	return bits
}

// LEDWriter はLED状態のデバイス書き込みをまとめる。
// 前回書き込んだビットマスクと同じ値の書き込みは省略する。
// 外部のLED操作クライアントが同じデバイスに書き込む可能性があるが、
// LED表示はあくまで参考情報であり、後勝ちの競合をそのまま受け入れる
type LEDWriter struct {
	write   func(bits byte) error
	last    byte
	hasLast bool
}

// NewLEDWriter は新しいLEDWriterを作成する
func NewLEDWriter(write func(bits byte) error) *LEDWriter {
	return &LEDWriter{write: write}
}

// Set はビットマスクをデバイスに書き込む。前回と同じ値なら何もしない。
// 書き込み失敗は一時的なデバイスエラーとしてログに残すだけ
func (w *LEDWriter) Set(bits byte) {
	if w.hasLast && w.last == bits {
		return
	}
	if err := w.write(bits); err != nil {
		log.Printf("LED状態の書き込みに失敗しました: %v", err)
		// 失敗した値は記録しない。次回のSetで再試行される
		w.hasLast = false
		return
	}
	w.last = bits
	w.hasLast = true
}

// Invalidate は次回のSetで必ず書き込みが行われるようにする。
// デバイス再接続後に呼ぶ
func (w *LEDWriter) Invalidate() {
	w.hasLast = false
}
