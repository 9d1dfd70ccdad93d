package hid

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	hidapi "github.com/sstallion/go-hid"
)

// device はHIDデバイスハンドルの抽象。テストでは偽物に差し替える
type device interface {
	Read(b []byte) (int, error)
	SendFeatureReport(b []byte) (int, error)
	Close() error
}

// Transport はG11の2つのHIDインターフェースへの接続を管理する。
// 各インターフェースは独立した読み取りループを持ち、デバイスが
// 切断された場合は指数バックオフで再接続を試み続ける
type Transport struct {
	initialBackoff time.Duration
	maxBackoff     time.Duration

	events   chan Event
	keys     chan KeyEvent
	wake     chan struct{}
	connects chan struct{}
	stop     chan struct{}
	wg       sync.WaitGroup

	openMacro    func() (device, error)
	openKeyboard func() (device, error)

	mu       sync.Mutex
	macroDev device
	kbDev    device

	dropped atomic.Uint64
}

// Options はTransportの生成パラメータ
type Options struct {
	VendorID       uint16
	ProductID      uint16
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// New は実デバイスに接続するTransportを作成する
func New(opts Options) *Transport {
	t := newTransport(opts)
	t.openMacro = func() (device, error) {
		return openInterface(opts.VendorID, opts.ProductID, false)
	}
	t.openKeyboard = func() (device, error) {
		return openInterface(opts.VendorID, opts.ProductID, true)
	}
	return t
}

func newTransport(opts Options) *Transport {
	initial := opts.InitialBackoff
	if initial <= 0 {
		initial = 250 * time.Millisecond
	}
	max := opts.MaxBackoff
	if max < initial {
		max = 5 * time.Second
	}
	return &Transport{
		initialBackoff: initial,
		maxBackoff:     max,
		events:         make(chan Event),
		keys:           make(chan KeyEvent),
		wake:           make(chan struct{}, 1),
		connects:       make(chan struct{}, 1),
		stop:           make(chan struct{}),
	}
}

// Events はマクロインターフェースのイベントチャネルを返す
func (t *Transport) Events() <-chan Event {
	return t.events
}

// Keys はキーボードインターフェースのイベントチャネルを返す
func (t *Transport) Keys() <-chan KeyEvent {
	return t.keys
}

// Wake は再接続待ちのバックオフを中断して即座に再試行させる
func (t *Transport) Wake() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// Connects はマクロインターフェースへの接続確立を通知するチャネルを返す。
// 接続直後にLED状態の再適用が必要な呼び出し側が監視する
func (t *Transport) Connects() <-chan struct{} {
	return t.connects
}

// DroppedReports は破棄した不正レポートの累計数を返す
func (t *Transport) DroppedReports() uint64 {
	return t.dropped.Load()
}

// Connected はマクロインターフェースが現在開いているかを返す
func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.macroDev != nil
}

// Start は両インターフェースの読み取りループを開始する
func (t *Transport) Start() {
	t.wg.Add(2)
	go t.runMacroLoop()
	go t.runKeyboardLoop()
}

// Stop は読み取りループを停止する
func (t *Transport) Stop() {
	close(t.stop)
	t.mu.Lock()
	if t.macroDev != nil {
		t.macroDev.Close()
		t.macroDev = nil
	}
	if t.kbDev != nil {
		t.kbDev.Close()
		t.kbDev = nil
	}
	t.mu.Unlock()
	t.wg.Wait()
}

// WriteLEDReport はLED状態をフィーチャーレポートとしてデバイスに送る。
// 同じビットマスクを複数回送っても安全（ハードウェア側で冪等）
func (t *Transport) WriteLEDReport(bits byte) error {
	t.mu.Lock()
	dev := t.macroDev
	t.mu.Unlock()

	if dev == nil {
		return fmt.Errorf("マクロインターフェースが接続されていません")
	}
	if _, err := dev.SendFeatureReport(BuildLEDReport(bits)); err != nil {
		return fmt.Errorf("LEDレポートの送信に失敗しました: %w", err)
	}
	return nil
}

// runMacroLoop はマクロインターフェースの読み取りループ
func (t *Transport) runMacroLoop() {
	defer t.wg.Done()

	var decoder MacroDecoder
	backoff := t.initialBackoff

	for {
		if t.stopped() {
			return
		}

		dev, err := t.openMacro()
		if err != nil {
			log.Printf("マクロインターフェースのオープンに失敗しました: %v (%v後に再試行)", err, backoff)
			if !t.sleep(backoff) {
				return
			}
			backoff = nextBackoff(backoff, t.maxBackoff)
			continue
		}

		log.Println("マクロインターフェースに接続しました")
		backoff = t.initialBackoff
		decoder.Reset()

		t.mu.Lock()
		t.macroDev = dev
		t.mu.Unlock()

		select {
		case t.connects <- struct{}{}:
		default:
		}

		t.readMacroReports(dev, &decoder)

		t.mu.Lock()
		if t.macroDev == dev {
			t.macroDev = nil
		}
		t.mu.Unlock()
		dev.Close()
	}
}

func (t *Transport) readMacroReports(dev device, decoder *MacroDecoder) {
	buf := make([]byte, 64)
	for {
		n, err := dev.Read(buf)
		if err != nil {
			if !t.stopped() {
				log.Printf("マクロインターフェースの読み取りエラー: %v", err)
			}
			return
		}

		events, err := decoder.Decode(buf[:n])
		if err != nil {
			// 不正なレポートは破棄して数えるだけ。デコードを止めない
			t.dropped.Add(1)
			log.Printf("マクロレポートを破棄しました: %v", err)
			continue
		}
		for _, ev := range events {
			select {
			case t.events <- ev:
			case <-t.stop:
				return
			}
		}
	}
}

// runKeyboardLoop はキーボードインターフェースの読み取りループ
func (t *Transport) runKeyboardLoop() {
	defer t.wg.Done()

	var decoder KeyboardDecoder
	backoff := t.initialBackoff

	for {
		if t.stopped() {
			return
		}

		dev, err := t.openKeyboard()
		if err != nil {
			log.Printf("キーボードインターフェースのオープンに失敗しました: %v (%v後に再試行)", err, backoff)
			if !t.sleep(backoff) {
				return
			}
			backoff = nextBackoff(backoff, t.maxBackoff)
			continue
		}

		log.Println("キーボードインターフェースに接続しました")
		backoff = t.initialBackoff
		decoder.Reset()

		t.mu.Lock()
		t.kbDev = dev
		t.mu.Unlock()

		t.readKeyboardReports(dev, &decoder)

		t.mu.Lock()
		if t.kbDev == dev {
			t.kbDev = nil
		}
		t.mu.Unlock()
		dev.Close()
	}
}

func (t *Transport) readKeyboardReports(dev device, decoder *KeyboardDecoder) {
	buf := make([]byte, 64)
	for {
		n, err := dev.Read(buf)
		if err != nil {
			if !t.stopped() {
				log.Printf("キーボードインターフェースの読み取りエラー: %v", err)
			}
			return
		}

		events, err := decoder.Decode(buf[:n])
		if err != nil {
			t.dropped.Add(1)
			log.Printf("キーボードレポートを破棄しました: %v", err)
			continue
		}
		for _, ev := range events {
			select {
			case t.keys <- ev:
			case <-t.stop:
				return
			}
		}
	}
}

func (t *Transport) stopped() bool {
	select {
	case <-t.stop:
		return true
	default:
		return false
	}
}

// sleep はバックオフ時間だけ待機する。stopでfalse、wakeで早期にtrueを返す
func (t *Transport) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-t.stop:
		return false
	case <-t.wake:
		return true
	case <-timer.C:
		return true
	}
}

func nextBackoff(cur, max time.Duration) time.Duration {
	next := cur * 2
	if next > max {
		return max
	}
	return next
}

// openInterface は指定されたvendor/product IDのデバイスから
// マクロまたはキーボードインターフェースを探して開く
func openInterface(vendorID, productID uint16, keyboard bool) (device, error) {
	var path string
	err := hidapi.Enumerate(vendorID, productID, func(info *hidapi.DeviceInfo) error {
		if path == "" && isKeyboardInterface(info) == keyboard {
			path = info.Path
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, fmt.Errorf("デバイスが見つかりません (VID:0x%04X PID:0x%04X)", vendorID, productID)
	}
	return hidapi.OpenPath(path)
}

// isKeyboardInterface は標準キーボードインターフェースかどうかを判定する
func isKeyboardInterface(info *hidapi.DeviceInfo) bool {
	return info.UsagePage == 0x0001 && info.Usage == 0x06
}

// DeviceInfo は接続中のHIDインターフェースの概要
type DeviceInfo struct {
	Path      string `json:"path"`
	VendorID  uint16 `json:"vendor_id"`
	ProductID uint16 `json:"product_id"`
	Product   string `json:"product"`
	Keyboard  bool   `json:"keyboard"`
}

// ListDevices は接続中のすべてのHIDインターフェースを列挙する
func ListDevices() ([]DeviceInfo, error) {
	var out []DeviceInfo
	err := hidapi.Enumerate(hidapi.VendorIDAny, hidapi.ProductIDAny, func(info *hidapi.DeviceInfo) error {
		out = append(out, DeviceInfo{
			Path:      info.Path,
			VendorID:  info.VendorID,
			ProductID: info.ProductID,
			Product:   info.ProductStr,
			Keyboard:  isKeyboardInterface(info),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
