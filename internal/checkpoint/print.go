package checkpoint

import (
	"fmt"
	"io"
	"strings"
)

// WriteHeader prints the pass status lines without the message bodies. Use it
// when a console sender has already printed the bodies.
func WriteHeader(w io.Writer, res Result) error {
	_, err := io.WriteString(w, header(res))
	return err
}

// WriteResult prints a pass result in the layout cron mail and shell users
// of the notifier are used to: the status lines followed by every delivered
// message.
func WriteResult(w io.Writer, res Result) error {
	var b strings.Builder
	b.WriteString(header(res))

	if res.Found && len(res.Messages) > 0 {
		b.WriteString("\n" + strings.Repeat("=", 60) + "\n")
		b.WriteString("MESSAGES TO SEND TO TELEGRAM:\n")
		b.WriteString(strings.Repeat("=", 60) + "\n")
		for i, m := range res.Messages {
			fmt.Fprintf(&b, "\n--- Message %d (%s) ---\n", i+1, m.Kind)
			b.WriteString(m.Text + "\n")
			b.WriteString(strings.Repeat("-", 60) + "\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func header(res Result) string {
	if !res.Found {
		return "❌ Monitor state file not found\n"
	}
	status := string(res.Status)
	if status == "" {
		status = "unknown"
	}
	return fmt.Sprintf("Monitor status: %s\nTotal opportunities: %d\nMessages to send: %d\n",
		status, res.TotalOpportunities, len(res.Messages))
}
