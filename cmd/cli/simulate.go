package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"socialpilot/internal/automation"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var (
	simServer  string
	simAccount string
	simKind    string
	simText    string
	simFrom    string
	simContent string
	simDryRun  bool
	simFirst   bool
	simTimeout time.Duration
)

// simulateCmd 向运行中的服务投递一个平台事件，便于调试规则
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Send a simulated platform event to a running server",
	Example: `  socialpilot simulate --account fb1 --kind comment_posted --text "how much is it?" --from carol
  socialpilot simulate --account ig1 --kind new_follower --from dana --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, ok := automation.ParseEventKind(simKind)
		if !ok {
			return fmt.Errorf("unknown event kind %q", simKind)
		}
		evt := automation.InboundEvent{
			AccountID:     simAccount,
			Kind:          kind,
			Text:          simText,
			ActorUsername: simFrom,
			ContentID:     simContent,
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), simTimeout)
		defer cancel()
		body, err := postEvent(ctx, &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}, simServer, evt, simDryRun, simFirst)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(body)
		return err
	},
}

func init() {
	f := simulateCmd.Flags()
	f.StringVar(&simServer, "server", "http://localhost:8080", "server base URL")
	f.StringVar(&simAccount, "account", "", "account id receiving the event")
	f.StringVar(&simKind, "kind", string(automation.EventCommentPosted), "comment_posted, direct_message_received or new_follower")
	f.StringVar(&simText, "text", "", "comment or message text")
	f.StringVar(&simFrom, "from", "", "username of the commenter, sender or follower")
	f.StringVar(&simContent, "content", "", "id of the commented post")
	f.BoolVar(&simDryRun, "dry-run", false, "render actions without delivering them")
	f.BoolVar(&simFirst, "first-match-only", false, "stop after the first matching rule")
	f.DurationVar(&simTimeout, "timeout", 10*time.Second, "request timeout")
	_ = simulateCmd.MarkFlagRequired("account")
	rootCmd.AddCommand(simulateCmd)
}

// postEvent 发送事件并返回格式化后的响应体
func postEvent(ctx context.Context, client *http.Client, server string, evt automation.InboundEvent, dryRun, firstOnly bool) ([]byte, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	if dryRun {
		q.Set("dry_run", "true")
	}
	if firstOnly {
		q.Set("first_match_only", "true")
	}
	endpoint := strings.TrimRight(server, "/") + "/api/v1/events"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post event: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return raw, nil
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}
