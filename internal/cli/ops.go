package cli

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/calvinalkan/harnesskit/pkg/datasource"
)

var (
	errUnknownOp = errors.New("unknown op")
	errOpLimit   = errors.New("invalid op limit")
)

// opNames lists the cursor ops accepted by decode and explore.
var opNames = []string{
	"u8", "u16", "u32", "u64",
	"i8", "i16", "i32", "i64",
	"f32", "f64", "bool", "choice",
	"str[:max]", "bytes[:max]", "strs", "list", "rest",
}

// applyOp reads one value described by spec and formats it.
func applyOp(c *datasource.Cursor, spec string) (string, error) {
	name, limitText, hasLimit := strings.Cut(spec, ":")

	limit := 0

	if hasLimit {
		n, err := strconv.Atoi(limitText)
		if err != nil || n < 0 {
			return "", fmt.Errorf("%w: %q", errOpLimit, spec)
		}

		limit = n
	}

	switch name {
	case "u8":
		return format(c.Uint8())
	case "u16":
		return format(c.Uint16())
	case "u32":
		return format(c.Uint32())
	case "u64":
		return format(c.Uint64())
	case "i8":
		return format(c.Int8())
	case "i16":
		return format(c.Int16())
	case "i32":
		return format(c.Int32())
	case "i64":
		return format(c.Int64())
	case "f32":
		return format(c.Float32())
	case "f64":
		return format(c.Float64())
	case "bool":
		return format(c.Bool())
	case "choice":
		return format(c.Choice())
	case "str":
		s, err := c.String(limit)
		if err != nil {
			return "", err
		}

		return strconv.Quote(s), nil
	case "bytes":
		b, err := c.Bytes(limit)
		if err != nil {
			return "", err
		}

		return hexOrEmpty(b), nil
	case "strs":
		list, err := c.StringList()
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("%q", list), nil
	case "list":
		b, err := c.ByteList()
		if err != nil {
			return "", err
		}

		return hexOrEmpty(b), nil
	case "rest":
		return hexOrEmpty(c.Rest()), nil
	default:
		return "", fmt.Errorf("%w: %q (want one of %s)", errUnknownOp, spec, strings.Join(opNames, " "))
	}
}

func format[T any](v T, err error) (string, error) {
	if err != nil {
		return "", err
	}

	return fmt.Sprint(v), nil
}

func hexOrEmpty(b []byte) string {
	if len(b) == 0 {
		return "(empty)"
	}

	return hex.EncodeToString(b)
}
