package offerfile

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
)

// maxLineSize bounds a single JSON line.
const maxLineSize = 1 << 20

// LineError reports a record that could not be decoded or converted.
type LineError struct {
	Path string
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// ScanLines decodes one Record per non-blank line of r. Records that fail to
// decode are passed to bad and skipped; fn errors stop the scan.
func ScanLines(ctx context.Context, path string, r io.Reader, fn func(rec *Record) error, bad func(*LineError)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)

	line := 0
	for sc.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return err
		}
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			if bad != nil {
				bad(&LineError{Path: path, Line: line, Err: err})
			}
			continue
		}
		if err := fn(&rec); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}

// ScanGzipFile opens a gzip-compressed JSON-lines file and scans it.
func ScanGzipFile(ctx context.Context, path string, fn func(rec *Record) error, bad func(*LineError)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	return ScanLines(ctx, path, gz, fn, bad)
}
