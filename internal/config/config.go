package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// XDG設定ディレクトリの名前。元のg11-macro-daemonと同じ場所を使う
const configDirName = "g11-macro-daemon"

// Config はデーモン全体の設定を表す構造体
type Config struct {
	Device    DeviceConfig    `toml:"device"`
	Files     FilesConfig     `toml:"files"`
	Transport TransportConfig `toml:"transport"`
	API       APIConfig       `toml:"api"`
}

// DeviceConfig は対象キーボードの識別設定
type DeviceConfig struct {
	VendorID  uint16 `toml:"vendor_id"`
	ProductID uint16 `toml:"product_id"`
}

// FilesConfig はバインディングと録画の保存先設定
type FilesConfig struct {
	BindingsPath   string `toml:"bindings_path"`
	RecordingsPath string `toml:"recordings_path"`
}

// TransportConfig はデバイス再接続の制御設定
type TransportConfig struct {
	InitialBackoff time.Duration `toml:"initial_backoff"`
	MaxBackoff     time.Duration `toml:"max_backoff"`
}

// APIConfig はステータスAPIサーバーの設定
type APIConfig struct {
	Port int `toml:"port"`
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() *Config {
	configDir, err := GetDefaultConfigDir()
	if err != nil {
		configDir = "."
	}
	return &Config{
		Device: DeviceConfig{
			VendorID:  0x046D, // Logitech
			ProductID: 0xC225, // G11マクロインターフェース
		},
		Files: FilesConfig{
			BindingsPath:   filepath.Join(configDir, "key_bindings.ron"),
			RecordingsPath: filepath.Join(configDir, "key_recordings.ron"),
		},
		Transport: TransportConfig{
			InitialBackoff: 250 * time.Millisecond,
			MaxBackoff:     5 * time.Second,
		},
		API: APIConfig{
			Port: 8080,
		},
	}
}

// GetDefaultConfigDir はデフォルトの設定ディレクトリを返す
func GetDefaultConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, configDirName), nil
}

// LoadConfig は設定ファイルから設定を読み込む
func LoadConfig(configPath string) (*Config, error) {
	// デフォルト設定を用意
	config := DefaultConfig()

	// ファイルが存在しない場合はデフォルト設定を保存して返す
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// 設定ディレクトリの作成
		configDir := filepath.Dir(configPath)
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return config, err
		}

		// デフォルト設定の保存
		if err := SaveConfig(configPath, config); err != nil {
			return config, err
		}

		return config, nil
	}

	// 設定ファイルの読み込み
	if _, err := toml.DecodeFile(configPath, config); err != nil {
		return config, err
	}

	return config, nil
}

// SaveConfig は設定をTOMLファイルに保存する
func SaveConfig(configPath string, config *Config) error {
	// 設定ディレクトリの作成
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	// ファイルを開く（なければ作成）
	f, err := os.Create(configPath)
	if err != nil {
		return err
	}
	defer f.Close()

	// TOML形式でエンコードして書き込み
	encoder := toml.NewEncoder(f)
	return encoder.Encode(config)
}
