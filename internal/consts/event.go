package consts

// イベントタイプの定数（input-event-codes.hより）
const (
	Syn = 0x00 // 同期イベント
	Key = 0x01 // キーイベント
	Rel = 0x02 // 相対座標イベント

	RelX      = 0x0 // X軸の相対移動
	RelY      = 0x1 // Y軸の相対移動
	RelHWheel = 0x6 // 水平ホイールの相対移動
	RelWheel  = 0x8 // 垂直ホイールの相対移動

	SynReport = 0 // イベント報告の同期

	BtnLeft   = 0x110 // マウス左ボタン
	BtnRight  = 0x111 // マウス右ボタン
	BtnMiddle = 0x112 // マウス中ボタン
	BtnSide   = 0x113 // マウスサイドボタン（戻る）
	BtnExtra  = 0x114 // マウスエクストラボタン（進む）

	KeyCodeMax = 0x2ff // キーコードの最大値
)
