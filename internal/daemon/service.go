package daemon

import (
	"fmt"
	"log"
	"os/exec"
	"sort"
	"sync"

	"github.com/char5742/g11-macrod/internal/config"
	"github.com/char5742/g11-macrod/internal/engine"
	"github.com/char5742/g11-macrod/internal/hid"
	"github.com/char5742/g11-macrod/internal/input"
	"github.com/char5742/g11-macrod/internal/macro"
	"github.com/char5742/g11-macrod/internal/recording"
)

// Service はマクロデーモン本体を管理する構造体。
// デバイス接続、状態機械、仮想入力デバイスの寿命をまとめて持つ
type Service struct {
	cfg         *config.Config
	stopChan    chan struct{}
	running     bool
	statusMutex sync.RWMutex
	wg          sync.WaitGroup

	transport *hid.Transport
	monitor   *hid.Monitor
	machine   *engine.Machine
	store     *recording.Store
	dispatch  *engine.DispatchLog
	keyboard  input.Keyboard
	mouse     input.Mouse
	table     macro.BindingTable
}

// NewService は新しいマクロデーモンサービスを作成する
func NewService(cfg *config.Config) *Service {
	return &Service{
		cfg:      cfg,
		stopChan: make(chan struct{}),
		dispatch: engine.NewDispatchLog(16),
	}
}

// Start はデーモンを開始する
func (s *Service) Start() error {
	s.statusMutex.Lock()
	defer s.statusMutex.Unlock()

	if s.running {
		return fmt.Errorf("サービスは既に実行中です")
	}

	// バインディングファイルの読み込み。解析に失敗しても
	// 空のテーブルでデーモンは起動する
	bindings, err := macro.LoadBindingsFile(s.cfg.Files.BindingsPath)
	if err != nil {
		log.Printf("バインディングの読み込みに失敗しました: %v", err)
		bindings = nil
	}
	table, errs := macro.BuildTable(bindings)
	for _, e := range errs {
		log.Printf("バインディングを除外しました: %v", e)
	}
	log.Printf("バインディングを読み込みました: %d件", len(table))
	s.table = table

	// 録画済みマクロの読み込み
	s.store = recording.NewStore(s.cfg.Files.RecordingsPath)
	if err := s.store.Load(); err != nil {
		log.Printf("録画の読み込みに失敗しました: %v", err)
	}

	// 仮想キーボードデバイスの作成
	keyboard, err := input.CreateKeyboard("/dev/uinput", []byte("G11 Macro Keyboard"))
	if err != nil {
		return fmt.Errorf("仮想キーボードの作成に失敗しました: %w", err)
	}
	s.keyboard = keyboard

	// 仮想マウスデバイスの作成
	mouse, err := input.CreateMouse("/dev/uinput", []byte("G11 Macro Mouse"))
	if err != nil {
		s.keyboard.Close()
		return fmt.Errorf("仮想マウスの作成に失敗しました: %w", err)
	}
	s.mouse = mouse

	s.transport = hid.New(hid.Options{
		VendorID:       s.cfg.Device.VendorID,
		ProductID:      s.cfg.Device.ProductID,
		InitialBackoff: s.cfg.Transport.InitialBackoff,
		MaxBackoff:     s.cfg.Transport.MaxBackoff,
	})

	leds := engine.NewLEDWriter(s.transport.WriteLEDReport)
	interp := engine.NewInterpreter(s.keyboard, s.mouse, runProgram)
	s.machine = engine.NewMachine(table, interp, s.store, leds, s.dispatch)

	// hidrawノードの出現を監視して再接続待ちを起こす
	monitor, err := hid.NewMonitor(s.transport.Wake)
	if err != nil {
		log.Printf("デバイス監視の初期化に失敗しました: %v", err)
	} else if err := monitor.Start(); err == nil {
		s.monitor = monitor
	}

	s.stopChan = make(chan struct{})
	s.running = true

	s.transport.Start()
	s.wg.Add(1)
	go s.runEventLoop()

	return nil
}

// Stop はデーモンを停止する
func (s *Service) Stop() error {
	s.statusMutex.Lock()
	defer s.statusMutex.Unlock()

	if !s.running {
		return fmt.Errorf("サービスは実行されていません")
	}

	close(s.stopChan)
	s.transport.Stop()
	if s.monitor != nil {
		s.monitor.Stop()
	}
	s.wg.Wait()

	if s.keyboard != nil {
		s.keyboard.Close()
	}
	if s.mouse != nil {
		s.mouse.Close()
	}

	s.running = false
	log.Println("マクロデーモンを停止しました")
	return nil
}

// IsRunning はサービスが実行中かどうかを返す
func (s *Service) IsRunning() bool {
	s.statusMutex.RLock()
	defer s.statusMutex.RUnlock()
	return s.running
}

// runEventLoop はデバイスイベントを処理するメインループ。
// 両インターフェースのイベントは1つのゴルーチンに合流させ、
// 状態機械の更新を直列化する
func (s *Service) runEventLoop() {
	defer s.wg.Done()

	log.Println("マクロデーモンを開始しました")

	for {
		select {
		case <-s.stopChan:
			return

		case ev := <-s.transport.Events():
			s.machine.HandleMacroEvent(ev)

		case ev := <-s.transport.Keys():
			s.machine.HandleKeyEvent(ev)

		case <-s.transport.Connects():
			// 再接続直後はデバイス側のLED状態が不明のため必ず書き直す
			s.machine.RefreshLEDs(true)
		}
	}
}

// runProgram は外部プログラムを起動する。完了は待たず、終了状態の
// 回収だけ別ゴルーチンで行う
func runProgram(program string, args []string) error {
	cmd := exec.Command(program, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			log.Printf("プログラムが異常終了しました (%s): %v", program, err)
		}
	}()
	return nil
}

// Snapshot は状態機械の現在状態を返す
func (s *Service) Snapshot() engine.Snapshot {
	return s.machine.Snapshot()
}

// Connected はマクロインターフェースが接続されているかを返す
func (s *Service) Connected() bool {
	return s.transport.Connected()
}

// DroppedReports は破棄した不正レポートの累計数を返す
func (s *Service) DroppedReports() uint64 {
	return s.transport.DroppedReports()
}

// RecentDispatches は直近に実行されたバインディングを返す
func (s *Service) RecentDispatches() []engine.Dispatch {
	return s.dispatch.Recent()
}

// Bindings は参照テーブルに採用されたバインディングの一覧を返す
func (s *Service) Bindings() []macro.KeyBinding {
	out := make([]macro.KeyBinding, 0, len(s.table))
	for id, script := range s.table {
		out = append(out, macro.KeyBinding{M: id.M, G: id.G, On: id.On, Script: script})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].M != out[j].M {
			return out[i].M < out[j].M
		}
		if out[i].G != out[j].G {
			return out[i].G < out[j].G
		}
		return out[i].On < out[j].On
	})
	return out
}

// Recordings は録画済みマクロの一覧を返す
func (s *Service) Recordings() []macro.Recording {
	return s.store.Recordings()
}
