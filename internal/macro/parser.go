package macro

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// RON (Rusty Object Notation) のサブセットを解析する。
// g11-macro-daemonの設定ファイルで使われる構文のみをサポートする

type tokenType int

const (
	tokenIdent tokenType = iota
	tokenString
	tokenChar
	tokenNumber
	tokenLParen
	tokenRParen
	tokenLBracket
	tokenRBracket
	tokenComma
	tokenColon
)

func (t tokenType) String() string {
	switch t {
	case tokenIdent:
		return "識別子"
	case tokenString:
		return "文字列"
	case tokenChar:
		return "文字"
	case tokenNumber:
		return "数値"
	case tokenLParen:
		return "'('"
	case tokenRParen:
		return "')'"
	case tokenLBracket:
		return "'['"
	case tokenRBracket:
		return "']'"
	case tokenComma:
		return "','"
	case tokenColon:
		return "':'"
	}
	return fmt.Sprintf("tokenType(%d)", int(t))
}

type token struct {
	typ   tokenType
	value string
	pos   int
}

var charEscapes = map[string]string{
	`\'`: "'",
	`\\`: `\`,
	`\n`: "\n",
	`\t`: "\t",
	`\r`: "\r",
}

// tokenize は入力テキストをトークン列に分解する
func tokenize(text string) []token {
	var tokens []token
	runes := []rune(text)
	pos := 0
	n := len(runes)

	punct := map[rune]tokenType{
		'(': tokenLParen, ')': tokenRParen,
		'[': tokenLBracket, ']': tokenRBracket,
		',': tokenComma, ':': tokenColon,
	}

	for pos < n {
		c := runes[pos]

		// 空白
		if unicode.IsSpace(c) {
			pos++
			continue
		}

		// 行コメント
		if c == '/' && pos+1 < n && runes[pos+1] == '/' {
			for pos < n && runes[pos] != '\n' {
				pos++
			}
			continue
		}

		// ブロックコメント
		if c == '/' && pos+1 < n && runes[pos+1] == '*' {
			end := strings.Index(string(runes[pos+2:]), "*/")
			if end == -1 {
				pos = n
			} else {
				pos += 2 + end + 2
			}
			continue
		}

		// ヘッダーディレクティブ #![...]
		if c == '#' && pos+2 < n && runes[pos+1] == '!' && runes[pos+2] == '[' {
			for pos < n && runes[pos] != ']' {
				pos++
			}
			pos++
			continue
		}

		// 文字列リテラル
		if c == '"' {
			end := pos + 1
			for end < n {
				if runes[end] == '\\' && end+1 < n {
					end += 2
				} else if runes[end] == '"' {
					break
				} else {
					end++
				}
			}
			raw := string(runes[pos+1 : min(end, n)])
			value := strings.NewReplacer(
				`\"`, `"`,
				`\\`, `\`,
				`\n`, "\n",
				`\t`, "\t",
				`\r`, "\r",
			).Replace(raw)
			tokens = append(tokens, token{tokenString, value, pos})
			pos = end + 1
			continue
		}

		// 文字リテラル
		if c == '\'' {
			end := pos + 1
			if end < n && runes[end] == '\\' {
				end += 2
			} else if end < n {
				end++
			}
			if end < n && runes[end] == '\'' {
				raw := string(runes[pos+1 : end])
				if unescaped, ok := charEscapes[raw]; ok {
					raw = unescaped
				}
				tokens = append(tokens, token{tokenChar, raw, pos})
				pos = end + 1
				continue
			}
			// 不正な文字リテラルは読み飛ばす
			pos++
			continue
		}

		// 数値（先頭のマイナス記号を許可）
		if unicode.IsDigit(c) || (c == '-' && pos+1 < n && unicode.IsDigit(runes[pos+1])) {
			end := pos + 1
			for end < n && unicode.IsDigit(runes[end]) {
				end++
			}
			tokens = append(tokens, token{tokenNumber, string(runes[pos:end]), pos})
			pos = end
			continue
		}

		// 識別子
		if unicode.IsLetter(c) || c == '_' {
			end := pos + 1
			for end < n && (unicode.IsLetter(runes[end]) || unicode.IsDigit(runes[end]) || runes[end] == '_') {
				end++
			}
			tokens = append(tokens, token{tokenIdent, string(runes[pos:end]), pos})
			pos = end
			continue
		}

		if typ, ok := punct[c]; ok {
			tokens = append(tokens, token{typ, string(c), pos})
		}

		pos++
	}

	return tokens
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() *token {
	if p.pos < len(p.tokens) {
		return &p.tokens[p.pos]
	}
	return nil
}

func (p *parser) consume(typ tokenType) (*token, error) {
	tok := p.peek()
	if tok == nil {
		return nil, fmt.Errorf("入力が途中で終了しました")
	}
	if tok.typ != typ {
		return nil, fmt.Errorf("%sが必要ですが%s (%q) が見つかりました (位置 %d)", typ, tok.typ, tok.value, tok.pos)
	}
	p.pos++
	return tok, nil
}

func (p *parser) consumeIdent(value string) (*token, error) {
	tok, err := p.consume(tokenIdent)
	if err != nil {
		return nil, err
	}
	if tok.value != value {
		return nil, fmt.Errorf("%qが必要ですが%qが見つかりました (位置 %d)", value, tok.value, tok.pos)
	}
	return tok, nil
}

func (p *parser) tryConsume(typ tokenType) *token {
	tok := p.peek()
	if tok == nil || tok.typ != typ {
		return nil
	}
	p.pos++
	return tok
}

// ParseBindings はkey_bindings.ron形式のテキストを解析してKeyBindingのリストを返す
func ParseBindings(text string) ([]KeyBinding, error) {
	p := &parser{tokens: tokenize(text)}

	hasBracket := p.tryConsume(tokenLBracket) != nil

	var bindings []KeyBinding
	for {
		tok := p.peek()
		if tok == nil || tok.typ == tokenRBracket {
			break
		}
		if tok.typ == tokenIdent && tok.value == "KeyBinding" {
			b, err := p.parseBinding()
			if err != nil {
				return nil, err
			}
			bindings = append(bindings, *b)
			p.tryConsume(tokenComma)
		} else {
			// 予期しないトークンは読み飛ばす
			p.pos++
		}
	}

	if hasBracket {
		p.tryConsume(tokenRBracket)
	}
	return bindings, nil
}

// ParseRecordings はkey_recordings.ron形式のテキストを解析してRecordingのリストを返す
func ParseRecordings(text string) ([]Recording, error) {
	p := &parser{tokens: tokenize(text)}

	hasBracket := p.tryConsume(tokenLBracket) != nil

	var recordings []Recording
	for {
		tok := p.peek()
		if tok == nil || tok.typ == tokenRBracket {
			break
		}
		if tok.typ == tokenIdent && tok.value == "Recording" {
			r, err := p.parseRecording()
			if err != nil {
				return nil, err
			}
			recordings = append(recordings, *r)
			p.tryConsume(tokenComma)
		} else {
			p.pos++
		}
	}

	if hasBracket {
		p.tryConsume(tokenRBracket)
	}
	return recordings, nil
}

func (p *parser) parseBinding() (*KeyBinding, error) {
	if _, err := p.consumeIdent("KeyBinding"); err != nil {
		return nil, err
	}
	if _, err := p.consume(tokenLParen); err != nil {
		return nil, err
	}

	m, g := -1, -1
	var on Direction
	hasOn := false
	var script []Step

	for {
		tok := p.peek()
		if tok == nil || tok.typ == tokenRParen {
			break
		}
		if tok.typ != tokenIdent {
			p.pos++
			continue
		}
		field, _ := p.consume(tokenIdent)
		if _, err := p.consume(tokenColon); err != nil {
			return nil, err
		}

		switch field.value {
		case "m":
			v, err := p.parseInt()
			if err != nil {
				return nil, err
			}
			m = v
		case "g":
			v, err := p.parseInt()
			if err != nil {
				return nil, err
			}
			g = v
		case "on":
			tok, err := p.consume(tokenIdent)
			if err != nil {
				return nil, err
			}
			on, err = ParseDirection(tok.value)
			if err != nil {
				return nil, err
			}
			hasOn = true
		case "script":
			s, err := p.parseScript()
			if err != nil {
				return nil, err
			}
			script = s
		default:
			p.skipValue()
		}

		p.tryConsume(tokenComma)
	}

	if _, err := p.consume(tokenRParen); err != nil {
		return nil, err
	}

	if m < 0 || g < 0 || !hasOn {
		return nil, fmt.Errorf("KeyBindingのフィールドが不足しています: m=%d, g=%d, on指定=%v", m, g, hasOn)
	}

	return &KeyBinding{M: m, G: g, On: on, Script: script}, nil
}

func (p *parser) parseRecording() (*Recording, error) {
	if _, err := p.consumeIdent("Recording"); err != nil {
		return nil, err
	}
	if _, err := p.consume(tokenLParen); err != nil {
		return nil, err
	}

	var rec Recording

	for {
		tok := p.peek()
		if tok == nil || tok.typ == tokenRParen {
			break
		}
		if tok.typ != tokenIdent {
			p.pos++
			continue
		}
		field, _ := p.consume(tokenIdent)
		if _, err := p.consume(tokenColon); err != nil {
			return nil, err
		}

		switch field.value {
		case "id":
			tok, err := p.consume(tokenString)
			if err != nil {
				return nil, err
			}
			rec.ID = tok.value
		case "captured_at":
			tok, err := p.consume(tokenString)
			if err != nil {
				return nil, err
			}
			t, err := time.Parse(time.RFC3339, tok.value)
			if err != nil {
				return nil, fmt.Errorf("captured_atの形式が不正です: %w", err)
			}
			rec.CapturedAt = t
		case "script":
			s, err := p.parseScript()
			if err != nil {
				return nil, err
			}
			rec.Script = s
		default:
			p.skipValue()
		}

		p.tryConsume(tokenComma)
	}

	if _, err := p.consume(tokenRParen); err != nil {
		return nil, err
	}
	if rec.ID == "" {
		return nil, fmt.Errorf("Recordingにidフィールドがありません")
	}
	return &rec, nil
}

func (p *parser) parseScript() ([]Step, error) {
	if _, err := p.consume(tokenLBracket); err != nil {
		return nil, err
	}

	var steps []Step
	for {
		tok := p.peek()
		if tok == nil || tok.typ == tokenRBracket {
			break
		}
		if tok.typ == tokenIdent {
			step, err := p.parseStep()
			if err != nil {
				return nil, err
			}
			if step != nil {
				steps = append(steps, step)
			}
			p.tryConsume(tokenComma)
		} else {
			p.pos++
		}
	}

	if _, err := p.consume(tokenRBracket); err != nil {
		return nil, err
	}
	return steps, nil
}

// parseStep は1つのステップを解析する。未知のステップ種別はnilを返して読み飛ばす
func (p *parser) parseStep() (Step, error) {
	name, err := p.consume(tokenIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(tokenLParen); err != nil {
		return nil, err
	}

	var step Step

	switch name.value {
	case "Key":
		first, err := p.parseKeyValue()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(tokenComma); err != nil {
			return nil, err
		}
		// 次のトークンがDirectionなら第1引数はキー本体。
		// そうでなければ第1引数は修飾キーで、続けてキー本体とDirectionが並ぶ
		ks := KeyStep{Key: first}
		tok := p.peek()
		if tok != nil && tok.typ == tokenIdent {
			if dir, derr := ParseDirection(tok.value); derr == nil {
				p.pos++
				ks.Direction = dir
				step = ks
				break
			}
		}
		key, err := p.parseKeyValue()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(tokenComma); err != nil {
			return nil, err
		}
		dirTok, err := p.consume(tokenIdent)
		if err != nil {
			return nil, err
		}
		dir, err := ParseDirection(dirTok.value)
		if err != nil {
			return nil, err
		}
		ks.Modifier = first
		ks.Key = key
		ks.Direction = dir
		step = ks

	case "Text":
		tok, err := p.consume(tokenString)
		if err != nil {
			return nil, err
		}
		step = TextStep{Text: tok.value}

	case "Button":
		btnTok, err := p.consume(tokenIdent)
		if err != nil {
			return nil, err
		}
		btn, err := ParseMouseButton(btnTok.value)
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(tokenComma); err != nil {
			return nil, err
		}
		dirTok, err := p.consume(tokenIdent)
		if err != nil {
			return nil, err
		}
		dir, err := ParseDirection(dirTok.value)
		if err != nil {
			return nil, err
		}
		step = ButtonStep{Button: btn, Direction: dir}

	case "MoveMouse":
		x, err := p.parseInt()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(tokenComma); err != nil {
			return nil, err
		}
		y, err := p.parseInt()
		if err != nil {
			return nil, err
		}
		coord := Rel
		if p.tryConsume(tokenComma) != nil {
			if tok := p.peek(); tok != nil && tok.typ == tokenIdent {
				p.pos++
				coord, err = ParseCoordinate(tok.value)
				if err != nil {
					return nil, err
				}
			} else {
				p.pos-- // 末尾の繰り返し回数だった場合は巻き戻す
			}
		}
		step = MoveMouseStep{X: x, Y: y, Coordinate: coord}

	case "Scroll":
		mag, err := p.parseInt()
		if err != nil {
			return nil, err
		}
		axis := Vertical
		if p.tryConsume(tokenComma) != nil {
			if tok := p.peek(); tok != nil && tok.typ == tokenIdent {
				p.pos++
				axis, err = ParseAxis(tok.value)
				if err != nil {
					return nil, err
				}
			} else {
				p.pos--
			}
		}
		step = ScrollStep{Magnitude: mag, Axis: axis}

	case "Run":
		if _, err := p.consumeIdent("Program"); err != nil {
			return nil, err
		}
		if _, err := p.consume(tokenLParen); err != nil {
			return nil, err
		}
		progTok, err := p.consume(tokenString)
		if err != nil {
			return nil, err
		}
		var args []string
		if p.tryConsume(tokenComma) != nil {
			if _, err := p.consume(tokenLBracket); err != nil {
				return nil, err
			}
			for {
				tok := p.peek()
				if tok == nil || tok.typ == tokenRBracket {
					break
				}
				argTok, err := p.consume(tokenString)
				if err != nil {
					return nil, err
				}
				args = append(args, argTok.value)
				p.tryConsume(tokenComma)
			}
			if _, err := p.consume(tokenRBracket); err != nil {
				return nil, err
			}
		}
		if _, err := p.consume(tokenRParen); err != nil { // Program( を閉じる
			return nil, err
		}
		step = RunStep{Program: progTok.value, Args: args}

	default:
		// 未知のステップ種別は対応する括弧まで読み飛ばす
		p.skipBalanced(tokenLParen, tokenRParen)
		return nil, nil
	}

	// 省略可能な末尾の繰り返し回数（Runステップを除く）
	if _, isRun := step.(RunStep); !isRun {
		if p.tryConsume(tokenComma) != nil {
			if tok := p.peek(); tok != nil && tok.typ == tokenNumber {
				p.pos++
				repeat, _ := strconv.Atoi(tok.value)
				if repeat < 1 || repeat > MaxRepeat {
					return nil, fmt.Errorf("繰り返し回数が範囲外です: %d (1〜%d) (位置 %d)", repeat, MaxRepeat, tok.pos)
				}
				step = withRepeat(step, repeat)
			}
		}
	}

	if _, err := p.consume(tokenRParen); err != nil { // ステップを閉じる
		return nil, err
	}
	return step, nil
}

func withRepeat(step Step, repeat int) Step {
	switch s := step.(type) {
	case KeyStep:
		s.Repeat = repeat
		return s
	case TextStep:
		s.Repeat = repeat
		return s
	case ButtonStep:
		s.Repeat = repeat
		return s
	case MoveMouseStep:
		s.Repeat = repeat
		return s
	case ScrollStep:
		s.Repeat = repeat
		return s
	}
	return step
}

func (p *parser) parseKeyValue() (KeyValue, error) {
	tok, err := p.consume(tokenIdent)
	if err != nil {
		return KeyValue{}, err
	}
	if tok.value == "Unicode" {
		if _, err := p.consume(tokenLParen); err != nil {
			return KeyValue{}, err
		}
		ch, err := p.consume(tokenChar)
		if err != nil {
			return KeyValue{}, err
		}
		if _, err := p.consume(tokenRParen); err != nil {
			return KeyValue{}, err
		}
		runes := []rune(ch.value)
		if len(runes) != 1 {
			return KeyValue{}, fmt.Errorf("Unicodeキーは1文字である必要があります: %q", ch.value)
		}
		return UnicodeKey(runes[0]), nil
	}
	return NamedKey(tok.value), nil
}

func (p *parser) parseInt() (int, error) {
	tok, err := p.consume(tokenNumber)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(tok.value)
	if err != nil {
		return 0, fmt.Errorf("数値の解析に失敗しました: %q", tok.value)
	}
	return v, nil
}

// skipValue は型が不明な1つの値を読み飛ばす
func (p *parser) skipValue() {
	tok := p.peek()
	if tok == nil {
		return
	}
	switch tok.typ {
	case tokenString, tokenNumber, tokenChar, tokenIdent:
		p.pos++
	case tokenLParen:
		p.pos++
		p.skipBalanced(tokenLParen, tokenRParen)
	case tokenLBracket:
		p.pos++
		p.skipBalanced(tokenLBracket, tokenRBracket)
	}
}

// skipBalanced は開き括弧が既に1つ消費された状態から対応する閉じ括弧まで読み飛ばす
func (p *parser) skipBalanced(open, close tokenType) {
	depth := 1
	for {
		tok := p.peek()
		if tok == nil {
			return
		}
		switch tok.typ {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				p.pos++
				return
			}
		}
		p.pos++
	}
}
