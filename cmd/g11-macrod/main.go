package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/char5742/g11-macrod/internal/api"
	"github.com/char5742/g11-macrod/internal/config"
	"github.com/char5742/g11-macrod/internal/daemon"
)

func main() {
	// コマンドライン引数の解析
	useApi := flag.Bool("api", false, "ステータスAPIサーバーも起動します")
	configPath := flag.String("config", "", "設定ファイルのパス (指定しない場合はデフォルトパスを使用)")
	port := flag.Int("port", 0, "APIサーバーのポート番号 (指定しない場合は設定ファイルの値を使用)")
	flag.Parse()

	// デフォルト設定ファイルパスの設定
	defaultConfigPath := ""
	configDir, err := config.GetDefaultConfigDir()
	if err == nil {
		defaultConfigPath = filepath.Join(configDir, "config.toml")
	}

	// 設定ファイルパスの決定
	cfgPath := defaultConfigPath
	if *configPath != "" {
		cfgPath = *configPath
	}

	// 設定ファイルの読み込み
	var cfg *config.Config
	if cfgPath != "" {
		cfg, err = config.LoadConfig(cfgPath)
		if err != nil {
			fmt.Printf("設定ファイルの読み込みに失敗しました: %v\nデフォルト設定を使用します\n", err)
			cfg = config.DefaultConfig()
		} else {
			fmt.Printf("設定ファイルを読み込みました: %s\n", cfgPath)
		}
	} else {
		cfg = config.DefaultConfig()
	}

	// デーモン本体の起動
	service := daemon.NewService(cfg)
	if err := service.Start(); err != nil {
		fmt.Printf("マクロデーモンの起動に失敗しました: %v\n", err)
		os.Exit(1)
	}

	// ステータスAPIサーバーの起動
	var server *api.Server
	if *useApi {
		apiPort := cfg.API.Port
		if *port != 0 {
			apiPort = *port
		}
		server = api.NewServer(cfg, service, apiPort)
		go func() {
			if err := server.Start(); err != nil {
				log.Printf("APIサーバーが停止しました: %v", err)
			}
		}()
	}

	// シグナルが来るまで待機
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	fmt.Println("シャットダウンします...")
	if server != nil {
		if err := server.Stop(); err != nil {
			log.Printf("APIサーバーの停止に失敗しました: %v", err)
		}
	}
	if err := service.Stop(); err != nil {
		log.Printf("マクロデーモンの停止に失敗しました: %v", err)
	}
}
