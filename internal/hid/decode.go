package hid

import "fmt"

// MacroDecoder はマクロインターフェースのレポートを前回のレポートと
// 比較し、ビットの変化のみをイベントとして取り出す（エッジ検出）
type MacroDecoder struct {
	prev    [MacroReportSize]byte
	hasPrev bool
}

// Reset はデコーダーの状態を初期化する。デバイス再接続後に呼ぶ
func (d *MacroDecoder) Reset() {
	d.hasPrev = false
}

// Decode は1つのレポートを0個以上のイベントに変換する。
// 短すぎるレポートや不明なレポートIDはエラーを返す（呼び出し側でログして破棄する）
func (d *MacroDecoder) Decode(report []byte) ([]Event, error) {
	if len(report) < MacroReportSize {
		return nil, fmt.Errorf("レポートが短すぎます: %dバイト", len(report))
	}
	if report[0] != MacroReportID {
		return nil, fmt.Errorf("不明なレポートIDです: 0x%02x", report[0])
	}

	var cur [MacroReportSize]byte
	copy(cur[:], report[:MacroReportSize])

	if !d.hasPrev {
		// 最初のレポートは基準状態として記録するだけ。
		// レベル状態からイベントを作らない
		d.prev = cur
		d.hasPrev = true
		return nil, nil
	}

	var events []Event

	// Gキー: バイト1〜3の連続したビット列
	for g := 0; g < 18; g++ {
		byteIdx := gKeyByte1 + g/8
		mask := byte(1) << (g % 8)
		was := d.prev[byteIdx]&mask != 0
		is := cur[byteIdx]&mask != 0
		if was != is {
			events = append(events, Event{Kind: KindGKey, Number: g + 1, Pressed: is})
		}
	}

	// バンク選択キーとMRキー
	for bit := 0; bit < 4; bit++ {
		mask := byte(1) << bit
		was := d.prev[modeByte]&mask != 0
		is := cur[modeByte]&mask != 0
		if was == is {
			continue
		}
		if bit < 3 {
			events = append(events, Event{Kind: KindBank, Number: bit + 1, Pressed: is})
		} else {
			events = append(events, Event{Kind: KindMR, Pressed: is})
		}
	}

	d.prev = cur
	return events, nil
}

// KeyboardDecoder はブートプロトコルのキーボードレポートを
// 前回のレポートと比較してキー遷移イベントを取り出す
type KeyboardDecoder struct {
	prevMods byte
	prevKeys [6]byte
	hasPrev  bool
}

// Reset はデコーダーの状態を初期化する
func (d *KeyboardDecoder) Reset() {
	d.hasPrev = false
}

// Decode は1つのキーボードレポートをキー遷移イベントに変換する
func (d *KeyboardDecoder) Decode(report []byte) ([]KeyEvent, error) {
	if len(report) < KeyboardReportSize {
		return nil, fmt.Errorf("キーボードレポートが短すぎます: %dバイト", len(report))
	}

	mods := report[0]
	var keys [6]byte
	copy(keys[:], report[2:8])

	if !d.hasPrev {
		d.prevMods = mods
		d.prevKeys = keys
		d.hasPrev = true
		return nil, nil
	}

	var events []KeyEvent

	// 修飾キー: ビットiがusage 0xE0+iに対応する
	for bit := 0; bit < 8; bit++ {
		mask := byte(1) << bit
		was := d.prevMods&mask != 0
		is := mods&mask != 0
		if was != is {
			events = append(events, KeyEvent{Usage: 0xE0 + byte(bit), Pressed: is})
		}
	}

	// 押された・離されたキーをスロットの差分から求める
	for _, usage := range keys {
		if usage != 0 && !containsUsage(d.prevKeys, usage) {
			events = append(events, KeyEvent{Usage: usage, Pressed: true})
		}
	}
	for _, usage := range d.prevKeys {
		if usage != 0 && !containsUsage(keys, usage) {
			events = append(events, KeyEvent{Usage: usage, Pressed: false})
		}
	}

	d.prevMods = mods
	d.prevKeys = keys
	return events, nil
}

func containsUsage(keys [6]byte, usage byte) bool {
	for _, k := range keys {
		if k == usage {
			return true
		}
	}
	return false
}
