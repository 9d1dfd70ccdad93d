package input

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/char5742/g11-macrod/internal/consts"
	"github.com/char5742/g11-macrod/internal/types"
)

// uinputデバイスの共通処理。仮想キーボードと仮想マウスの両方で使う

// ioctl はファイルディスクリプタに対してioctlを発行する
func ioctl(f *os.File, cmd uintptr, arg uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), cmd, arg)
	if errno != 0 {
		return errno
	}
	return nil
}

// デバイスファイルを作成する
func createDeviceFile(path string) (*os.File, error) {
	deviceFile, err := os.OpenFile(path, syscall.O_WRONLY|syscall.O_NONBLOCK, 0660)
	if err != nil {
		return nil, errors.New("デバイスファイルを開くのに失敗しました")
	}
	return deviceFile, nil
}

// デバイスを解放する
func releaseDevice(deviceFile *os.File) error {
	return ioctl(deviceFile, consts.DevDestroy, uintptr(0))
}

// イベントタイプを登録する
func registerEventType(deviceFile *os.File, evType uintptr) error {
	err := ioctl(deviceFile, consts.SetEvBit, evType)
	if err != nil {
		return fmt.Errorf("イベントタイプの登録に失敗しました %v: %v", evType, err)
	}
	return nil
}

// uinputデバイスを作成する
func createDevice(deviceFile *os.File, dev types.UserDev) (*os.File, error) {
	buf := new(bytes.Buffer)
	err := binary.Write(buf, binary.LittleEndian, dev)
	if err != nil {
		_ = deviceFile.Close()
		return nil, fmt.Errorf("ユーザーデバイスバッファの書き込みに失敗しました: %v", err)
	}
	_, err = deviceFile.Write(buf.Bytes())
	if err != nil {
		_ = deviceFile.Close()
		return nil, fmt.Errorf("デバイス構造体をデバイスファイルに書き込むのに失敗しました: %v", err)
	}

	err = ioctl(deviceFile, consts.DevCreate, uintptr(0))
	if err != nil {
		_ = deviceFile.Close()
		return nil, fmt.Errorf("デバイスの作成に失敗しました: %v", err)
	}

	return deviceFile, nil
}

// イベントを書き込む
func writeEvents(deviceFile *os.File, events []types.Event) error {
	for _, ev := range events {
		buf := new(bytes.Buffer)
		if err := binary.Write(buf, binary.LittleEndian, ev); err != nil {
			return fmt.Errorf("イベントをバッファに書き込むのに失敗しました: %v", err)
		}
		if _, err := deviceFile.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("イベントの書き込みに失敗しました: %v", err)
		}
	}
	return nil
}

// 名前をuinput用の固定長配列に変換する
func toUinputName(name []byte) (uinputName [consts.MaxNameSize]byte) {
	var fixedSizeName [consts.MaxNameSize]byte
	copy(fixedSizeName[:], name)
	return fixedSizeName
}
