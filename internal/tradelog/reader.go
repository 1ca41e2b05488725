package tradelog

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
)

const maxLineBytes = 4 << 20

// ReadLatest returns the last valid object line of the log at path.
// A missing file yields (nil, nil).
func ReadLatest(path string) (Record, error) {
	lines, err := readLines(path)
	if err != nil || len(lines) == 0 {
		return nil, err
	}
	for i := len(lines) - 1; i >= 0; i-- {
		if rec, ok := parseLine(lines[i]); ok {
			return rec, nil
		}
	}
	return nil, nil
}

// ReadAll returns every valid object line in file order. A positive limit
// keeps only the last limit rows.
func ReadAll(path string, limit int) ([]Record, error) {
	return ReadEvents(path, limit, "")
}

// ReadEvents is ReadAll restricted to rows whose symbol field matches symbol
// (case-insensitive). An empty symbol matches every row.
func ReadEvents(path string, limit int, symbol string) ([]Record, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	out := make([]Record, 0, len(lines))
	for _, ln := range lines {
		rec, ok := parseLine(ln)
		if !ok {
			continue
		}
		if sym != "" && strings.ToUpper(rec.Str("symbol", "")) != sym {
			continue
		}
		out = append(out, rec)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func readLines(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}

	var (
		lines    [][]byte
		buf      []byte
		oversize bool
	)
	br := bufio.NewReaderSize(r, 64*1024)
	for {
		chunk, err := br.ReadSlice('\n')
		if !oversize {
			if len(buf)+len(chunk) > maxLineBytes {
				oversize, buf = true, buf[:0]
			} else {
				buf = append(buf, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		// Lines over maxLineBytes are dropped like any other unreadable line.
		if ln := bytes.TrimSpace(buf); !oversize && len(ln) > 0 {
			lines = append(lines, append([]byte(nil), ln...))
		}
		buf, oversize = buf[:0], false
		if errors.Is(err, io.EOF) {
			return lines, nil
		}
		if err != nil {
			return lines, err
		}
	}
}

func parseLine(ln []byte) (Record, bool) {
	var rec map[string]any
	if err := json.Unmarshal(SanitizeJSON(ln), &rec); err != nil || rec == nil {
		return nil, false
	}
	return Record(rec), true
}

var nonFinite = [][]byte{[]byte("-Infinity"), []byte("Infinity"), []byte("NaN")}

// SanitizeJSON rewrites bare NaN, Infinity and -Infinity tokens to null.
// Text inside string literals is left untouched.
func SanitizeJSON(in []byte) []byte {
	if !bytes.Contains(in, []byte("NaN")) && !bytes.Contains(in, []byte("Infinity")) {
		return in
	}
	out := make([]byte, 0, len(in))
	inString, escaped := false, false
	for i := 0; i < len(in); {
		c := in[i]
		if inString {
			out = append(out, c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			i++
			continue
		}
		if c == '"' {
			inString = true
			out = append(out, c)
			i++
			continue
		}
		matched := false
		for _, tok := range nonFinite {
			if bytes.HasPrefix(in[i:], tok) {
				out = append(out, "null"...)
				i += len(tok)
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, c)
			i++
		}
	}
	return out
}
