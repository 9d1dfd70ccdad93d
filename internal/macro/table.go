package macro

import (
	"fmt"
	"os"
)

// BindingTable は(バンク, Gキー, トリガー)からスクリプトへの参照テーブル。
// 起動時に一度構築され、デーモンの実行中は変更されない
type BindingTable map[Identity][]Step

// Lookup は識別子に対応するスクリプトを返す。未登録の場合はnilとfalseを返す
func (t BindingTable) Lookup(id Identity) ([]Step, bool) {
	script, ok := t[id]
	return script, ok
}

// BuildTable はバインディングのリストから参照テーブルを構築する。
// 検証に失敗したエントリと識別子が重複するエントリは個別に除外され、
// エラーとして返される（先に登録されたエントリが優先される）
func BuildTable(bindings []KeyBinding) (BindingTable, []error) {
	table := make(BindingTable, len(bindings))
	var errs []error

	for i, b := range bindings {
		if err := b.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("バインディング %d (%s): %w", i+1, b.Identity(), err))
			continue
		}
		id := b.Identity()
		if _, exists := table[id]; exists {
			errs = append(errs, fmt.Errorf("バインディング %d: 識別子 %s が重複しています", i+1, id))
			continue
		}
		table[id] = b.Script
	}

	return table, errs
}

// LoadBindingsFile はバインディングファイルを読み込んで解析する。
// ファイルが存在しない場合は空のリストを返す
func LoadBindingsFile(path string) ([]KeyBinding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("バインディングファイルの読み込みに失敗しました: %w", err)
	}
	return ParseBindings(string(data))
}
