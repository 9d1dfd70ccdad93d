package macro

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTable(t *testing.T) {
	bindings := []KeyBinding{
		{M: 1, G: 1, On: Press, Script: []Step{TextStep{Text: "first"}}},
		{M: 1, G: 2, On: Release, Script: []Step{TextStep{Text: "second"}}},
	}

	table, errs := BuildTable(bindings)
	assert.Empty(t, errs)
	assert.Len(t, table, 2)

	script, ok := table.Lookup(Identity{M: 1, G: 1, On: Press})
	require.True(t, ok)
	assert.Equal(t, []Step{TextStep{Text: "first"}}, script)

	_, ok = table.Lookup(Identity{M: 2, G: 1, On: Press})
	assert.False(t, ok)
}

// 重複した識別子は先に登録された方が残る
func TestBuildTable_DuplicateFirstWins(t *testing.T) {
	bindings := []KeyBinding{
		{M: 1, G: 5, On: Press, Script: []Step{TextStep{Text: "first"}}},
		{M: 1, G: 5, On: Press, Script: []Step{TextStep{Text: "second"}}},
	}

	table, errs := BuildTable(bindings)
	require.Len(t, errs, 1)
	assert.Len(t, table, 1)

	script, ok := table.Lookup(Identity{M: 1, G: 5, On: Press})
	require.True(t, ok)
	assert.Equal(t, []Step{TextStep{Text: "first"}}, script)
}

// 検証に失敗したエントリだけが除外され、残りは使われる
func TestBuildTable_InvalidEntriesExcluded(t *testing.T) {
	bindings := []KeyBinding{
		{M: 4, G: 1, On: Press},                                    // バンク範囲外
		{M: 1, G: 19, On: Press},                                   // Gキー範囲外
		{M: 1, G: 1, On: Click},                                    // トリガーがClick
		{M: 1, G: 2, On: Press, Script: []Step{RunStep{}}},         // プログラム未指定
		{M: 2, G: 3, On: Release, Script: []Step{ScrollStep{Magnitude: 1, Repeat: 101}}}, // 繰り返し範囲外
		{M: 3, G: 18, On: Press, Script: []Step{TextStep{Text: "ok"}}},
	}

	table, errs := BuildTable(bindings)
	assert.Len(t, errs, 5)
	require.Len(t, table, 1)

	_, ok := table.Lookup(Identity{M: 3, G: 18, On: Press})
	assert.True(t, ok)
}

func TestLoadBindingsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "key_bindings.ron")
	text := `[KeyBinding(m: 1, g: 1, on: Press, script: [Key(A, Click)])]`
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))

	bindings, err := LoadBindingsFile(path)
	require.NoError(t, err)
	assert.Len(t, bindings, 1)
}

// ファイルが存在しない場合はエラーにせず空を返す
func TestLoadBindingsFile_Missing(t *testing.T) {
	bindings, err := LoadBindingsFile(filepath.Join(t.TempDir(), "nothing.ron"))
	require.NoError(t, err)
	assert.Empty(t, bindings)
}
