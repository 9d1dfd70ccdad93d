package hid

// G11のHIDレポートレイアウト
//
// マクロインターフェースは9バイトの入力レポートを送る。
// 先頭バイトはレポートID (0x02)、続くバイトがキー状態のビットマップ:
//   バイト1: G1〜G8
//   バイト2: G9〜G16
//   バイト3: ビット0〜1がG17〜G18
//   バイト6: ビット0〜3がM1, M2, M3, MR
//
// キーボードインターフェースは標準のブートプロトコルレポート (8バイト):
//   バイト0: 修飾キーのビットマップ (usage 0xE0〜0xE7)
//   バイト1: 予約
//   バイト2〜7: 押下中のキーのusage ID (最大6キー)
const (
	MacroReportID   = 0x02
	MacroReportSize = 9

	KeyboardReportSize = 8

	gKeyByte1 = 1 // G1〜G8
	gKeyByte2 = 2 // G9〜G16
	gKeyByte3 = 3 // G17〜G18
	modeByte  = 6 // M1〜M3, MR
)

// LEDビットマスク (M1=ビット0 〜 MR=ビット3)
const (
	LEDM1 = 1 << 0
	LEDM2 = 1 << 1
	LEDM3 = 1 << 2
	LEDMR = 1 << 3
)

// BuildLEDReport はLED状態のフィーチャーレポートを構築する。
// ハードウェアはビットを反転して解釈する（0が点灯）
func BuildLEDReport(bits byte) []byte {
	return []byte{0x02, 0x04, ^bits & 0x0F, 0x00}
}

// KeyKind はマクロインターフェース上のキーの種類を表す
type KeyKind int

const (
	KindGKey KeyKind = iota // Gキー (Numberは1〜18)
	KindBank                // バンク選択キー (Numberは1〜3)
	KindMR                  // マクロ録画キー (Numberは0)
)

// Event はマクロインターフェースのキー遷移イベント
type Event struct {
	Kind    KeyKind
	Number  int
	Pressed bool
}

// KeyEvent はキーボードインターフェースのキー遷移イベント。
// UsageはHID Usage ID (修飾キーは0xE0〜0xE7)
type KeyEvent struct {
	Usage   byte
	Pressed bool
}
