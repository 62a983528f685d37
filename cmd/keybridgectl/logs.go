package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/nxadm/tail"

	"keybridge/internal/config"
	"keybridge/internal/sessionlog"
)

// diagnosticsDirFn is replaced in tests.
var diagnosticsDirFn = func() string {
	return filepath.Join(config.Dir(config.DefaultPath()), sessionlog.DirName)
}

func (c *cli) logs(ctx context.Context, args []string) int {
	follow := false
	for _, arg := range args {
		switch arg {
		case "-f", "--follow":
			follow = true
		default:
			c.errorf("logs: unknown flag %q\n", arg)
			return 1
		}
	}

	path, err := sessionlog.Latest(diagnosticsDirFn())
	if err != nil {
		if errors.Is(err, sessionlog.ErrNoLogFile) {
			c.errorf("no diagnostics log found in %s\n", diagnosticsDirFn())
			return 1
		}
		c.errorf("logs: %v\n", err)
		return 1
	}

	if follow {
		err = followLog(ctx, path, c.stdout)
	} else {
		err = printLog(path, c.stdout)
	}
	if err != nil {
		c.errorf("logs: %v\n", err)
		return 1
	}
	return 0
}

func printLog(path string, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		writeLogLine(w, scanner.Bytes())
	}
	return scanner.Err()
}

// followLog prints the whole file and then new lines as they are written,
// until ctx is cancelled.
func followLog(ctx context.Context, path string, w io.Writer) error {
	t, err := tail.TailFile(path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: true,
		Poll:      true,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return fmt.Errorf("tail %s: %w", path, err)
	}
	defer t.Cleanup()

	for {
		select {
		case <-ctx.Done():
			_ = t.Stop()
			return nil
		case line, ok := <-t.Lines:
			if !ok {
				return t.Err()
			}
			if line.Err != nil {
				return line.Err
			}
			writeLogLine(w, []byte(line.Text))
		}
	}
}

func writeLogLine(w io.Writer, raw []byte) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return
	}
	entry, err := sessionlog.DecodeLine(raw)
	if err != nil {
		// Partially written lines are shown as-is.
		_, _ = fmt.Fprintf(w, "%s\n", raw)
		return
	}
	_, _ = fmt.Fprintln(w, formatEntry(entry))
}

func formatEntry(e sessionlog.Entry) string {
	var b strings.Builder
	b.WriteString(e.Timestamp.Local().Format("2006-01-02 15:04:05.000"))
	b.WriteByte(' ')
	fmt.Fprintf(&b, "%-5s", strings.ToUpper(e.Level))
	if e.Source != "" {
		b.WriteString(" [")
		b.WriteString(e.Source)
		b.WriteByte(']')
	}
	b.WriteByte(' ')
	b.WriteString(e.Message)
	for _, k := range slices.Sorted(maps.Keys(e.Attrs)) {
		fmt.Fprintf(&b, " %s=%q", k, e.Attrs[k])
	}
	return b.String()
}
