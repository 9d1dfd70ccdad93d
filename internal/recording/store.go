package recording

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/char5742/g11-macrod/internal/macro"
)

// Store は録画セッションのバッファと録画済みマクロの永続化を担当する。
// 録画セッションは常に最大1つしか開けない
type Store struct {
	path string

	mu         sync.Mutex
	session    *session
	recordings []macro.Recording
}

// session は進行中の録画セッション
type session struct {
	bank  int
	key   int
	steps []macro.Step
}

// NewStore は指定されたファイルに永続化するStoreを作成する
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load は既存の録画ファイルを読み込む。ファイルがなければ何もしない
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("録画ファイルの読み込みに失敗しました: %w", err)
	}

	recordings, err := macro.ParseRecordings(string(data))
	if err != nil {
		return fmt.Errorf("録画ファイルの解析に失敗しました: %w", err)
	}

	s.mu.Lock()
	s.recordings = recordings
	s.mu.Unlock()
	return nil
}

// Begin は新しい録画セッションを開始する。既に開いている場合は破棄して開き直す
func (s *Store) Begin(bank, key int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil {
		log.Printf("開いたままの録画セッションを破棄します (M%d/G%d)", s.session.bank, s.session.key)
	}
	s.session = &session{bank: bank, key: key}
}

// Append は録画中のセッションにステップを追加する
func (s *Store) Append(step macro.Step) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return
	}
	s.session.steps = append(s.session.steps, step)
}

// Discard は録画セッションを破棄する
func (s *Store) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
}

// Open は録画セッションが開いているかを返す
func (s *Store) Open() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session != nil
}

// Finalize は録画セッションを確定してRecordingとして永続化する。
// バッファが空のセッションは破棄され、何も永続化しない
func (s *Store) Finalize() (*macro.Recording, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil, fmt.Errorf("録画セッションが開いていません")
	}

	steps := s.session.steps
	s.session = nil

	if len(steps) == 0 {
		// 空のセッションは成果物として残さない
		return nil, nil
	}

	rec := macro.Recording{
		ID:         uuid.NewString(),
		CapturedAt: time.Now(),
		Script:     steps,
	}
	s.recordings = append(s.recordings, rec)

	if err := s.persistLocked(); err != nil {
		return &rec, err
	}
	return &rec, nil
}

// Recordings は録画済みマクロのスナップショットを返す
func (s *Store) Recordings() []macro.Recording {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]macro.Recording, len(s.recordings))
	copy(out, s.recordings)
	return out
}

func (s *Store) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("録画ディレクトリの作成に失敗しました: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(macro.SerializeRecordings(s.recordings)), 0644); err != nil {
		return fmt.Errorf("録画ファイルの書き込みに失敗しました: %w", err)
	}
	return nil
}
