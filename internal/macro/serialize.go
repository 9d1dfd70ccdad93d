package macro

import (
	"fmt"
	"strings"
	"time"
)

// RONヘッダーディレクティブ。元の設定ファイルと同じものを出力する
const ronHeader = "#![enable(explicit_struct_names, implicit_some)]"

func escapeString(s string) string {
	return strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"\n", `\n`,
		"\t", `\t`,
	).Replace(s)
}

func escapeChar(s string) string {
	switch s {
	case "'":
		return `\'`
	case `\`:
		return `\\`
	case "\n":
		return `\n`
	case "\t":
		return `\t`
	}
	return s
}

func (k KeyValue) ron() string {
	if k.IsUnicode {
		return fmt.Sprintf("Unicode('%s')", escapeChar(k.Value))
	}
	return k.Value
}

// StepToRON は1つのステップをRON表記に変換する
func StepToRON(step Step) string {
	switch s := step.(type) {
	case KeyStep:
		inner := fmt.Sprintf("%s, %s", s.Key.ron(), s.Direction)
		if s.HasModifier() {
			inner = fmt.Sprintf("%s, %s", s.Modifier.ron(), inner)
		}
		return "Key(" + withRepeatSuffix(inner, s.Repeat) + ")"
	case TextStep:
		return "Text(" + withRepeatSuffix(`"`+escapeString(s.Text)+`"`, s.Repeat) + ")"
	case ButtonStep:
		return "Button(" + withRepeatSuffix(fmt.Sprintf("%s, %s", s.Button, s.Direction), s.Repeat) + ")"
	case MoveMouseStep:
		return "MoveMouse(" + withRepeatSuffix(fmt.Sprintf("%d, %d, %s", s.X, s.Y, s.Coordinate), s.Repeat) + ")"
	case ScrollStep:
		return "Scroll(" + withRepeatSuffix(fmt.Sprintf("%d, %s", s.Magnitude, s.Axis), s.Repeat) + ")"
	case RunStep:
		if len(s.Args) > 0 {
			quoted := make([]string, len(s.Args))
			for i, a := range s.Args {
				quoted[i] = `"` + escapeString(a) + `"`
			}
			return fmt.Sprintf(`Run(Program("%s", [%s]))`, escapeString(s.Program), strings.Join(quoted, ", "))
		}
		return fmt.Sprintf(`Run(Program("%s"))`, escapeString(s.Program))
	}
	return ""
}

func withRepeatSuffix(inner string, repeat int) string {
	if repeat > 1 {
		return fmt.Sprintf("%s, %d", inner, repeat)
	}
	return inner
}

// SerializeRecordings はRecordingのリストをRON形式に変換する
func SerializeRecordings(recordings []Recording) string {
	var b strings.Builder
	b.WriteString(ronHeader + "\n[\n")
	for _, r := range recordings {
		b.WriteString("    Recording(\n")
		fmt.Fprintf(&b, "        id: %q,\n", r.ID)
		fmt.Fprintf(&b, "        captured_at: %q,\n", r.CapturedAt.Format(time.RFC3339))
		b.WriteString("        script: [\n")
		for _, step := range r.Script {
			fmt.Fprintf(&b, "            %s,\n", StepToRON(step))
		}
		b.WriteString("        ],\n    ),\n")
	}
	b.WriteString("]\n")
	return b.String()
}
