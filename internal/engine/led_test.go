package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/char5742/g11-macrod/internal/hid"
)

func TestComputeLEDBits(t *testing.T) {
	tests := []struct {
		name          string
		bank          int
		recordingOpen bool
		expected      byte
	}{
		{name: "bank 1", bank: 1, expected: hid.LEDM1},
		{name: "bank 2", bank: 2, expected: hid.LEDM2},
		{name: "bank 3", bank: 3, expected: hid.LEDM3},
		{name: "bank 1 recording", bank: 1, recordingOpen: true, expected: hid.LEDM1 | hid.LEDMR},
		{name: "bank 3 recording", bank: 3, recordingOpen: true, expected: hid.LEDM3 | hid.LEDMR},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ComputeLEDBits(tt.bank, tt.recordingOpen))
		})
	}
}

// 同じビットマスクの書き込みは1回にまとめられる
func TestLEDWriter_Coalesces(t *testing.T) {
	var writes []byte
	w := NewLEDWriter(func(bits byte) error {
		writes = append(writes, bits)
		return nil
	})

	w.Set(hid.LEDM1)
	w.Set(hid.LEDM1)
	w.Set(hid.LEDM2)
	w.Set(hid.LEDM2)

	assert.Equal(t, []byte{hid.LEDM1, hid.LEDM2}, writes)
}

// 書き込みに失敗した値は次のSetで再試行される
func TestLEDWriter_RetriesAfterFailure(t *testing.T) {
	var writes []byte
	fail := true
	w := NewLEDWriter(func(bits byte) error {
		if fail {
			return fmt.Errorf("デバイス未接続")
		}
		writes = append(writes, bits)
		return nil
	})

	w.Set(hid.LEDM1)
	fail = false
	w.Set(hid.LEDM1)

	assert.Equal(t, []byte{hid.LEDM1}, writes)
}

// Invalidate後は同じ値でも書き直される
func TestLEDWriter_Invalidate(t *testing.T) {
	var writes []byte
	w := NewLEDWriter(func(bits byte) error {
		writes = append(writes, bits)
		return nil
	})

	w.Set(hid.LEDM1)
	w.Invalidate()
	w.Set(hid.LEDM1)

	assert.Equal(t, []byte{hid.LEDM1, hid.LEDM1}, writes)
}
