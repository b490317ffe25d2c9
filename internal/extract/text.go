package extract

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// RichText is a run collection as stored in a shared or inline string.
type RichText []excelize.RichTextRun

// Hyperlink is a cell whose display text differs from its link target.
type Hyperlink struct {
	Text   string
	Target string
}

// Formula is a formula cell with its cached computed result.
type Formula struct {
	Expr   string
	Result any
}

// ExtractText normalizes any cell representation to trimmed text. It is pure:
// the same input always yields the same output.
func ExtractText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []byte:
		return strings.TrimSpace(string(t))
	case RichText:
		return joinRuns(t)
	case []excelize.RichTextRun:
		return joinRuns(t)
	case Hyperlink:
		return hyperlinkText(t)
	case *Hyperlink:
		if t == nil {
			return ""
		}
		return hyperlinkText(*t)
	case Formula:
		return ExtractText(t.Result)
	case *Formula:
		if t == nil {
			return ""
		}
		return ExtractText(t.Result)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		if t.IsZero() {
			return ""
		}
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
			return t.Format("2006-01-02")
		}
		return t.Format("2006-01-02 15:04:05")
	case fmt.Stringer:
		return strings.TrimSpace(t.String())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func joinRuns(runs []excelize.RichTextRun) string {
	var b strings.Builder
	for _, r := range runs {
		b.WriteString(r.Text)
	}
	return strings.TrimSpace(b.String())
}

func hyperlinkText(h Hyperlink) string {
	if text := strings.TrimSpace(h.Text); text != "" {
		return text
	}
	return strings.TrimSpace(h.Target)
}
