package hid

import (
	"log"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Monitor はhidrawデバイスノードの出現を監視し、デバイスが
// 接続された可能性があるときにTransportの再接続待ちを起こす
type Monitor struct {
	watcher  *fsnotify.Watcher
	notify   func()
	stopChan chan struct{}
}

// NewMonitor は新しいMonitorを作成する。notifyはデバイス変化時に呼ばれる
func NewMonitor(notify func()) (*Monitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Monitor{
		watcher:  watcher,
		notify:   notify,
		stopChan: make(chan struct{}),
	}, nil
}

// Start はデバイスノードの監視を開始する
func (m *Monitor) Start() error {
	if err := m.watcher.Add("/dev"); err != nil {
		log.Printf("デバイスディレクトリの監視に失敗しました: %v", err)
		return err
	}

	go m.watchEvents()
	return nil
}

// Stop は監視を停止する
func (m *Monitor) Stop() {
	close(m.stopChan)
	m.watcher.Close()
}

// watchEvents はfsnotifyのイベントを監視する。短時間に連続する
// イベントはデバウンスしてまとめて1回の通知にする
func (m *Monitor) watchEvents() {
	const debounce = 500 * time.Millisecond
	timer := time.NewTimer(debounce)
	timer.Stop() // 初期状態では停止
	pending := false

	for {
		select {
		case <-m.stopChan:
			return

		case <-timer.C:
			if pending {
				pending = false
				log.Println("デバイスノードの変化を検出しました。再接続を試みます")
				m.notify()
			}

		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if !strings.Contains(event.Name, "hidraw") {
				continue
			}
			if event.Op&fsnotify.Create == fsnotify.Create {
				if !pending {
					pending = true
					timer.Reset(debounce)
				}
			}

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("ファイルシステム監視エラー: %v", err)
		}
	}
}
