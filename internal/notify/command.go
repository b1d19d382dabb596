package notify

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Command runs a shell command per message, e.g. a mail or desktop
// notification tool. Template placeholders: {{.To}}, {{.Subject}}, {{.Body}}.
//
// Message values never become shell syntax: placeholders expand to quoted
// references to CLAIMDESK_TO, CLAIMDESK_SUBJECT and CLAIMDESK_BODY, which
// are set in the command's environment.
type Command struct {
	Template string
}

// Notify implements Notifier.
func (c *Command) Notify(ctx context.Context, msg Message) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", templateMessage(c.Template))
	cmd.Env = append(os.Environ(),
		"CLAIMDESK_TO="+msg.To,
		"CLAIMDESK_SUBJECT="+msg.Subject,
		"CLAIMDESK_BODY="+msg.Body,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("notify: command failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// templateMessage rewrites placeholders into quoted variable references.
// Placeholders already wrapped in quotes lose those quotes, since a single
// quote would stop the variable from expanding.
func templateMessage(command string) string {
	var pairs []string
	for _, p := range []struct{ name, env string }{
		{"To", "CLAIMDESK_TO"},
		{"Subject", "CLAIMDESK_SUBJECT"},
		{"Body", "CLAIMDESK_BODY"},
	} {
		ph := "{{." + p.name + "}}"
		ref := `"$` + p.env + `"`
		pairs = append(pairs, "'"+ph+"'", ref, `"`+ph+`"`, ref, ph, ref)
	}
	return strings.NewReplacer(pairs...).Replace(command)
}
