// clipflow/sink/stdout/driver.go
package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"unicode/utf8"

	"clipflow/sink"
)

/* ────────── public config ────────── */
type Config struct {
	// TruncateBytes caps the original/output fields per entry. 0 = no cap.
	TruncateBytes int `yaml:"truncate_bytes"`
}

/* ────────── driver ────────── */
type driver struct {
	cfg Config
	mu  sync.Mutex
	out io.Writer
}

/* ────────── sink.Adapter ────────── */
func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("stdout-sink: expected Config, got %T", raw)
	}
	d.cfg = c
	d.out = os.Stdout
	return nil
}

func (d *driver) Record(_ context.Context, e sink.Entry) error {
	if n := d.cfg.TruncateBytes; n > 0 {
		e.Original = truncate(e.Original, n)
		e.Output = truncate(e.Output, n)
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err = fmt.Fprintln(d.out, string(raw))
	return err
}

func (d *driver) Close() error { return nil }

// truncate cuts on a rune boundary so the emitted JSON stays valid UTF-8.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

/* ────────── auto-register ────────── */
func init() {
	sink.Register("stdout", func() sink.Adapter { return &driver{} })
}
