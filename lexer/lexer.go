package lexer

import (
	"strings"
	"unicode"

	"github.com/MPPL/mandarine-lang/diag"
	"github.com/MPPL/mandarine-lang/ir"
)

// Result is the product of a successful Scan.
type Result struct {
	Tokens []Token
	Mode   Mode
}

type lexer struct {
	file string
	log  *diag.Log

	line, col int
	first     bool // true until the first non-empty raw word has been seen
	pendingMode bool
	mode      Mode

	tokens []Token
	err    error
}

// Scan tokenizes src (spec.md §4.1). name is used only in diagnostics. The
// returned Result is valid even when err is non-nil up to maxBatched
// accumulated lex errors, after which scanning stops early.
func Scan(name string, src []byte) (Result, error) {
	lx := &lexer{file: name, log: &diag.Log{}, line: 1, col: 1, first: true}

	var word strings.Builder
	wordPos := ir.Pos{}
	inString := false
	slashBefore := false
	wordStarted := false

	startWord := func() {
		if !wordStarted {
			wordPos = ir.Pos{File: lx.file, Line: lx.line, Col: lx.col}
			wordStarted = true
		}
	}
	flush := func() {
		if word.Len() == 0 {
			wordStarted = false
			return
		}
		lx.emit(word.String(), wordPos)
		word.Reset()
		wordStarted = false
		if lx.log.Full() {
			return
		}
	}

	runes := []rune(string(src))
	for i := 0; i < len(runes) && !lx.log.Full(); i++ {
		c := runes[i]
		switch {
		case c == '\\' && !inString:
			if slashBefore {
				// "\\" outside a string starts a line comment: consume
				// through the next newline (spec.md §4.1, §6.2).
				flush()
				for i < len(runes) && runes[i] != '\n' {
					i++
				}
				slashBefore = false
				lx.line++
				lx.col = 1
				continue
			}
			slashBefore = true
			lx.col++
		case c == '\\' && inString && !slashBefore:
			// escape inside a string: the next character is decoded below
			slashBefore = true
			lx.col++
		case c == '"':
			if slashBefore {
				startWord()
				word.WriteByte('"')
				slashBefore = false
			} else if inString {
				lx.emitString(word.String(), wordPos)
				word.Reset()
				wordStarted = false
				inString = false
			} else {
				startWord()
				inString = true
			}
			lx.col++
		case c == '\n':
			if inString {
				word.WriteByte('\n')
			} else {
				flush()
			}
			lx.line++
			lx.col = 1
		case (c == ' ' || c == '\t' || c == '\r') && !inString:
			flush()
			slashBefore = false
			lx.col++
		default:
			startWord()
			if slashBefore && inString {
				switch c {
				case 'n':
					word.WriteByte('\n')
				case 't':
					word.WriteByte('\t')
				case 'r':
					word.WriteByte('\r')
				case '\\':
					word.WriteByte('\\')
				default:
					word.WriteRune(c)
				}
				slashBefore = false
			} else {
				word.WriteRune(c)
			}
			lx.col++
		}
	}
	flush()

	if lx.err == nil {
		lx.err = lx.log.Err()
	}
	return Result{Tokens: lx.tokens, Mode: lx.mode}, lx.err
}

// emitString appends a STRING token (the text between unescaped quotes).
func (lx *lexer) emitString(s string, pos ir.Pos) {
	lx.tokens = append(lx.tokens, Token{Kind: String, Pos: pos, Lexeme: s})
	lx.first = false
}

// emit classifies one whitespace-delimited raw word, possibly producing
// several tokens via indifferent-operator splitting (§4.1 item 4), and
// appends them with sticky flags set.
func (lx *lexer) emit(word string, pos ir.Pos) {
	if word == "" {
		return
	}
	toks, err := lx.classify(word, pos)
	if err != nil {
		if lx.err == nil {
			lx.err = err
		}
		return
	}
	if len(toks) == 0 {
		return
	}
	for i := range toks {
		toks[i].StickyLeft = i > 0
		toks[i].StickyRight = i < len(toks)-1
	}
	lx.tokens = append(lx.tokens, toks...)
}

func (lx *lexer) classify(word string, pos ir.Pos) ([]Token, error) {
	first := lx.first
	lx.first = false

	if word == "#mode" {
		if !first {
			return nil, lx.log.Fail(diag.Parse, pos, "Compilation option token found not at the beginning of the file")
		}
		lx.pendingMode = true
		return nil, nil
	}
	if lx.pendingMode {
		lx.pendingMode = false
		switch word {
		case "dos":
			lx.mode = ModeDOS
		case "linux":
			lx.mode = ModeLinux
		default:
			return nil, lx.log.Fail(diag.Parse, pos, "Wrong option for `#mode` provided, found `%s`", word)
		}
		return nil, nil
	}
	return lx.classifyFragment(word, pos)
}

func (lx *lexer) classifyFragment(word string, pos ir.Pos) ([]Token, error) {
	if word == "" {
		return nil, nil
	}
	if aloneTokens[word] {
		return []Token{{Kind: Word, Pos: pos, Lexeme: word}}, nil
	}
	if k, ok := protectedTokens[word]; ok {
		if word == "dos" && lx.mode != ModeDOS {
			return nil, lx.log.Fail(diag.Tokenize, pos, "Usage of `dos` token in non-DOS mode of compilation")
		}
		if word == "linux" && lx.mode != ModeLinux {
			return nil, lx.log.Fail(diag.Tokenize, pos, "Usage of `linux` token in non-Linux mode of compilation")
		}
		return []Token{{Kind: k, Pos: pos, Lexeme: word}}, nil
	}

	if pieceIdx, tok, ok := findIndifferent(word); ok {
		before := word[:pieceIdx]
		after := word[pieceIdx+len(tok):]
		var out []Token
		if before != "" {
			t, err := lx.classifyFragment(before, pos)
			if err != nil {
				return nil, err
			}
			out = append(out, t...)
		}
		out = append(out, Token{Kind: indifferentKind(tok), Pos: pos, Lexeme: tok})
		if after != "" {
			t, err := lx.classifyFragment(after, pos)
			if err != nil {
				return nil, err
			}
			out = append(out, t...)
		}
		return out, nil
	}

	for _, a := range []string{".mem", ",mem", "..n", ".n", ".c", "."} {
		if strings.HasPrefix(word, a) || strings.HasSuffix(word, a) {
			return nil, lx.log.Fail(diag.Tokenize, pos, "keyword starts or ends with disallowed token `%s` in `%s`", a, word)
		}
	}

	if isAllDigits(word) {
		return []Token{{Kind: Num, Pos: pos, Lexeme: word}}, nil
	}
	if unicode.IsDigit(rune(word[0])) {
		return nil, lx.log.Fail(diag.Tokenize, pos, "name token cannot begin with a number: `%s`", word)
	}
	return []Token{{Kind: Name, Pos: pos, Lexeme: "v" + word}}, nil
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !unicode.IsDigit(c) {
			return false
		}
	}
	return true
}

// findIndifferent returns the earliest, longest-matching indifferent token
// in word, its byte offset, and true if one was found.
func findIndifferent(word string) (int, string, bool) {
	bestPos := -1
	bestTok := ""
	for i := 0; i < len(word); i++ {
		for _, t := range indifferentTokens {
			if len(t) > len(word)-i {
				continue
			}
			if word[i:i+len(t)] == t {
				if bestPos == -1 || len(t) > len(bestTok) {
					bestPos = i
					bestTok = t
				}
			}
		}
		if bestPos == i {
			break
		}
	}
	if bestPos == -1 {
		return 0, "", false
	}
	return bestPos, bestTok, true
}
