package debug

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// treeish is satisfied by value trees which can render themselves as plain
// data.
type treeish interface {
	ToAny() any
}

var (
	mu  sync.Mutex
	out io.Writer = os.Stderr
)

// SetOutput redirects Logf and returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	mu.Lock()
	defer mu.Unlock()
	prev := out
	out = w
	return prev
}

// Logf writes a debug message.  Trees and plain maps or slices among args
// are shown as indented JSON.
func Logf(msg string, args ...any) {
	for i := range args {
		switch x := args[i].(type) {
		case treeish:
			args[i] = indentJSON(x.ToAny())
		case map[string]any, []any:
			args[i] = indentJSON(x)
		}
	}
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(out, msg, args...)
}

func indentJSON(v any) string {
	d, err := json.MarshalIndent(v, "   |", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(d)
}
