package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"keybridge/internal/control"
	"keybridge/internal/history"
	"keybridge/internal/ipc"
)

// nowFn is replaced in tests.
var nowFn = time.Now

func (c *cli) history(args []string) int {
	resp, ok := c.send(ipc.Request{Command: control.CmdHistory, Args: args})
	if !ok {
		return 1
	}
	if !resp.OK() {
		c.errorf("%s", resp.Stderr)
		return resp.ExitCode
	}
	var page control.HistoryPage
	if err := json.Unmarshal([]byte(resp.Stdout), &page); err != nil {
		c.errorf("history: decode response: %v\n", err)
		return 1
	}
	if err := renderHistory(c.stdout, page, nowFn()); err != nil {
		c.errorf("history: %v\n", err)
		return 1
	}
	return 0
}

func renderHistory(w io.Writer, page control.HistoryPage, now time.Time) error {
	if len(page.Items) == 0 {
		_, err := fmt.Fprintln(w, "no activations recorded")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSHORTCUT\tPRESSED\tHELD\tPROCESSED")
	for _, a := range page.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			shortID(a.ID),
			a.Shortcut,
			humanize.RelTime(a.PressedAt, now, "ago", "from now"),
			holdDuration(a),
			yesNo(a.Processed),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "showing %d of %s activations\n", len(page.Items), humanize.Comma(int64(page.Total)))
	return err
}

func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

func holdDuration(a history.Activation) string {
	return (time.Duration(a.DurationMs) * time.Millisecond).String()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
