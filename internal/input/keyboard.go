package input

import (
	"fmt"
	"io"
	"os"

	"github.com/char5742/g11-macrod/internal/consts"
	"github.com/char5742/g11-macrod/internal/types"
)

// Keyboard は仮想キーボードへのキー注入インターフェース
type Keyboard interface {
	// KeyDown は指定されたキーコードの押下イベントを注入する
	KeyDown(code uint16) error
	// KeyUp は指定されたキーコードの解放イベントを注入する
	KeyUp(code uint16) error
	io.Closer
}

type virtualKeyboard struct {
	deviceFile *os.File
}

// CreateKeyboard は新しい仮想キーボードデバイスを作成する
func CreateKeyboard(path string, name []byte) (Keyboard, error) {
	deviceFile, err := createDeviceFile(path)
	if err != nil {
		return nil, fmt.Errorf("仮想キーボードの作成に失敗しました: %v", err)
	}

	// キー入力イベント(EV_KEY)を登録する
	if err := registerEventType(deviceFile, uintptr(consts.Key)); err != nil {
		_ = deviceFile.Close()
		return nil, err
	}

	// 注入しうるすべてのキーコードを登録する
	for code := 1; code < 256; code++ {
		if err := ioctl(deviceFile, consts.SetKeyBit, uintptr(code)); err != nil {
			_ = deviceFile.Close()
			return nil, fmt.Errorf("キーコードの登録に失敗しました %v: %v", code, err)
		}
	}

	userDev := types.UserDev{
		Name: toUinputName(name),
		ID: types.InputID{
			Bustype: consts.BusUsb,
			Vendor:  0x046D,
			Product: 0xC225,
			Version: 1,
		},
	}

	fd, err := createDevice(deviceFile, userDev)
	if err != nil {
		return nil, fmt.Errorf("仮想キーボードデバイスの作成に失敗しました: %v", err)
	}

	return &virtualKeyboard{deviceFile: fd}, nil
}

func (vk *virtualKeyboard) KeyDown(code uint16) error {
	return writeEvents(vk.deviceFile, []types.Event{
		{Type: consts.Key, Code: code, Value: 1},
		{Type: consts.Syn, Code: consts.SynReport, Value: 0},
	})
}

func (vk *virtualKeyboard) KeyUp(code uint16) error {
	return writeEvents(vk.deviceFile, []types.Event{
		{Type: consts.Key, Code: code, Value: 0},
		{Type: consts.Syn, Code: consts.SynReport, Value: 0},
	})
}

func (vk *virtualKeyboard) Close() error {
	_ = releaseDevice(vk.deviceFile)
	return vk.deviceFile.Close()
}
