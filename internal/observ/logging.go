package observ

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var (
	mu  sync.Mutex
	out io.Writer = os.Stdout
)

// SetOutput redirects the event stream, for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// Log emits one JSON object per line with ts and event keys.
func Log(event string, kv map[string]any) {
	if kv == nil {
		kv = map[string]any{}
	}
	kv["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	kv["event"] = event
	b, _ := json.Marshal(kv)
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintln(out, string(b))
}

// Error logs an error event with a shared shape so failures are greppable.
func Error(event string, err error, kv map[string]any) {
	if kv == nil {
		kv = map[string]any{}
	}
	kv["error"] = err.Error()
	Log(event, kv)
}
