package api

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"time"

	"github.com/char5742/g11-macrod/internal/config"
	"github.com/char5742/g11-macrod/internal/hid"
	"github.com/char5742/g11-macrod/internal/macro"
)

// ルートの設定
func (s *Server) setupRoutes(router *http.ServeMux) {
	// デーモン状態のエンドポイント
	router.HandleFunc("GET /api/status", s.handleStatus)
	router.HandleFunc("GET /api/dispatches", s.handleDispatches)

	// マクロ関連のエンドポイント
	router.HandleFunc("GET /api/bindings", s.handleBindings)
	router.HandleFunc("GET /api/recordings", s.handleRecordings)

	// デバイス関連のエンドポイント
	router.HandleFunc("GET /api/devices", s.handleGetDevices)
	router.HandleFunc("PUT /api/devices/preferred", s.handleSetPreferredDevice)

	// 設定関連のエンドポイント
	router.HandleFunc("GET /api/config", s.handleGetConfig)
	router.HandleFunc("POST /api/config/save", s.handleSaveConfig)

	// ヘルスチェック用エンドポイント
	router.HandleFunc("GET /api/health", s.handleHealthCheck)
}

// デーモン状態取得ハンドラ
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.service.Snapshot()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"device_connected": s.service.Connected(),
		"active_bank":      snap.ActiveBank,
		"phase":            snap.Phase,
		"recording_open":   snap.RecordingOpen,
		"target_key":       snap.TargetKey,
		"dropped_reports":  s.service.DroppedReports(),
	})
}

// 実行履歴取得ハンドラ
func (s *Server) handleDispatches(w http.ResponseWriter, r *http.Request) {
	dispatches := s.service.RecentDispatches()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"dispatches": dispatches,
	})
}

// bindingView はバインディングのAPI表現。スクリプトはRONテキストで返す
type bindingView struct {
	M      int      `json:"m"`
	G      int      `json:"g"`
	On     string   `json:"on"`
	Script []string `json:"script"`
}

func scriptToRON(script []macro.Step) []string {
	out := make([]string, len(script))
	for i, step := range script {
		out[i] = macro.StepToRON(step)
	}
	return out
}

// バインディング一覧取得ハンドラ
func (s *Server) handleBindings(w http.ResponseWriter, r *http.Request) {
	bindings := s.service.Bindings()

	views := make([]bindingView, len(bindings))
	for i, b := range bindings {
		views[i] = bindingView{
			M:      b.M,
			G:      b.G,
			On:     b.On.String(),
			Script: scriptToRON(b.Script),
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"bindings": views,
	})
}

// recordingView は録画済みマクロのAPI表現
type recordingView struct {
	ID         string   `json:"id"`
	CapturedAt string   `json:"captured_at"`
	Script     []string `json:"script"`
}

// 録画一覧取得ハンドラ
func (s *Server) handleRecordings(w http.ResponseWriter, r *http.Request) {
	recordings := s.service.Recordings()

	views := make([]recordingView, len(recordings))
	for i, rec := range recordings {
		views[i] = recordingView{
			ID:         rec.ID,
			CapturedAt: rec.CapturedAt.Format(time.RFC3339),
			Script:     scriptToRON(rec.Script),
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"recordings": views,
	})
}

// デバイス一覧取得ハンドラ
func (s *Server) handleGetDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := hid.ListDevices()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "デバイス一覧の取得に失敗しました: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"devices": devices,
	})
}

// 優先デバイス設定ハンドラ。反映には再起動が必要
func (s *Server) handleSetPreferredDevice(w http.ResponseWriter, r *http.Request) {
	var request struct {
		VendorID  uint16 `json:"vendor_id"`
		ProductID uint16 `json:"product_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストの解析に失敗しました")
		return
	}
	if request.VendorID == 0 || request.ProductID == 0 {
		writeError(w, http.StatusBadRequest, "vendor_idとproduct_idを指定してください")
		return
	}

	cfg := s.GetConfig()
	cfg.Device.VendorID = request.VendorID
	cfg.Device.ProductID = request.ProductID
	s.UpdateConfig(cfg)

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "success",
		"note":   "次回起動時から有効になります",
	})
}

// 設定取得ハンドラ
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.GetConfig())
}

// 設定保存ハンドラ
func (s *Server) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	var saveRequest struct {
		Path string `json:"path"`
	}

	if err := json.NewDecoder(r.Body).Decode(&saveRequest); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストの解析に失敗しました")
		return
	}

	configPath := saveRequest.Path
	if configPath == "" {
		// デフォルトパスを使用
		userConfigDir, err := config.GetDefaultConfigDir()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "デフォルト設定ディレクトリの取得に失敗しました")
			return
		}
		configPath = filepath.Join(userConfigDir, "config.toml")
	}

	if err := config.SaveConfig(configPath, s.GetConfig()); err != nil {
		writeError(w, http.StatusInternalServerError, "設定の保存に失敗しました: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "success",
		"path":   configPath,
	})
}

// ヘルスチェックハンドラ
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
