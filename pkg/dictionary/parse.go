package dictionary

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrSyntax is returned for malformed dictionary lines.
var ErrSyntax = errors.New("dictionary: syntax error")

// Load parses libFuzzer dictionary syntax from r and merges every token into
// d. Returns the number of tokens that were new.
//
// Each non-blank line that does not start with '#' is a quoted token,
// optionally preceded by a name and '=': `kw="value"` or `"value"`. Inside
// the quotes `\\`, `\"` and `\xNN` are the only escapes.
func (d *Dictionary) Load(r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	added := 0
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		token, err := parseLine(line)
		if err != nil {
			return added, fmt.Errorf("%w: line %d: %w", ErrSyntax, lineNo, err)
		}

		if d.Merge(token) {
			added++
		}
	}

	err := scanner.Err()
	if err != nil {
		return added, fmt.Errorf("reading dictionary: %w", err)
	}

	return added, nil
}

// LoadFile is [Dictionary.Load] on the named file.
func (d *Dictionary) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n, err := d.Load(f)
	if err != nil {
		return n, fmt.Errorf("%s: %w", path, err)
	}

	return n, nil
}

// WriteTo writes every token in libFuzzer syntax, one per line.
func (d *Dictionary) WriteTo(w io.Writer) (int64, error) {
	var total int64

	for _, token := range d.tokens {
		n, err := io.WriteString(w, Quote(token)+"\n")
		total += int64(n)

		if err != nil {
			return total, err
		}
	}

	return total, nil
}

func parseLine(line string) (string, error) {
	start := strings.IndexByte(line, '"')
	if start < 0 {
		return "", errors.New("missing opening quote")
	}

	if start > 0 {
		name := strings.TrimSpace(line[:start])
		if !strings.HasSuffix(name, "=") {
			return "", fmt.Errorf("unexpected %q before token", name)
		}
	}

	if len(line) < start+2 || line[len(line)-1] != '"' {
		return "", errors.New("missing closing quote")
	}

	return unquote(line[start+1 : len(line)-1])
}

func unquote(body string) (string, error) {
	var b strings.Builder

	for i := 0; i < len(body); i++ {
		ch := body[i]

		switch ch {
		case '"':
			return "", fmt.Errorf("unescaped quote at %d", i)
		case '\\':
			if i+1 >= len(body) {
				return "", errors.New("dangling backslash")
			}

			i++

			switch body[i] {
			case '\\', '"':
				b.WriteByte(body[i])
			case 'x':
				if i+3 > len(body) {
					return "", errors.New("short \\x escape")
				}

				v, err := strconv.ParseUint(body[i+1:i+3], 16, 8)
				if err != nil {
					return "", fmt.Errorf("bad \\x escape %q", body[i+1:i+3])
				}

				b.WriteByte(byte(v))

				i += 2
			default:
				return "", fmt.Errorf("unknown escape \\%c", body[i])
			}
		default:
			b.WriteByte(ch)
		}
	}

	return b.String(), nil
}

// Quote renders token in libFuzzer dictionary syntax.
func Quote(token string) string {
	var b strings.Builder

	b.WriteByte('"')

	for i := 0; i < len(token); i++ {
		ch := token[i]

		switch {
		case ch == '\\' || ch == '"':
			b.WriteByte('\\')
			b.WriteByte(ch)
		case ch < 0x20 || ch >= 0x7f:
			fmt.Fprintf(&b, "\\x%02X", ch)
		default:
			b.WriteByte(ch)
		}
	}

	b.WriteByte('"')

	return b.String()
}
