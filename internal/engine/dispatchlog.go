package engine

import (
	"sync"
	"time"

	"github.com/char5742/g11-macrod/internal/macro"
)

// Dispatch は実行された1つのバインディングの記録
type Dispatch struct {
	At       time.Time      `json:"at"`
	Identity macro.Identity `json:"-"`
	Binding  string         `json:"binding"`
	Steps    int            `json:"steps"`
}

// DispatchLog は直近に実行されたバインディングのリングバッファ。
// ステータスAPIから参照される
type DispatchLog struct {
	mu      sync.Mutex
	entries []Dispatch
	max     int
}

// NewDispatchLog は最大max件を保持するDispatchLogを作成する
func NewDispatchLog(max int) *DispatchLog {
	if max < 1 {
		max = 16
	}
	return &DispatchLog{max: max}
}

// Add は実行記録を追加する。古い記録から破棄される
func (l *DispatchLog) Add(id macro.Identity, steps int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, Dispatch{
		At:       time.Now(),
		Identity: id,
		Binding:  id.String(),
		Steps:    steps,
	})
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
}

// Recent は新しい順の実行記録を返す
func (l *DispatchLog) Recent() []Dispatch {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Dispatch, len(l.entries))
	for i, e := range l.entries {
		out[len(l.entries)-1-i] = e
	}
	return out
}
