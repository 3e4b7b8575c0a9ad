package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/fbx/internal/ui"
	"github.com/muurk/fbx/pkg/freebox"
)

var getRaw bool

func init() {
	getCmd.Flags().BoolVar(&getRaw, "raw", false, "Print the response body as received")

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(systemCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(loginCmd)
}

// getCmd performs an authenticated GET
var getCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "GET an API endpoint",
	Long: `Perform an authenticated GET and print the result.

The path is relative to the API base. Without a version prefix the
configured API version is added ("lan/browser/pub" becomes
"v8/lan/browser/pub").`,
	Example: `  fbx get lan/browser/pub
  fbx get v8/connection
  fbx get wifi/config --raw`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRequest(http.MethodGet, args[0], nil)
	},
}

// callCmd performs an authenticated call with any method
var callCmd = &cobra.Command{
	Use:   "call <method> <path> [json|-]",
	Short: "Call an API endpoint with any method",
	Long: `Perform an authenticated call and print the result.

The optional body must be JSON. Use "-" to read it from standard input.`,
	Example: `  fbx call PUT wifi/config '{"enabled":true}'
  fbx call POST system/reboot
  echo '{"enabled":false}' | fbx call PUT wifi/config -`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		var body json.RawMessage
		if len(args) == 3 {
			raw := []byte(args[2])
			if args[2] == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read body: %w", err)
				}
				raw = bytes.TrimSpace(data)
			}
			if !json.Valid(raw) {
				return fmt.Errorf("request body is not valid JSON")
			}
			body = raw
		}
		return runRequest(strings.ToUpper(args[0]), args[1], body)
	},
}

func runRequest(method, path string, body json.RawMessage) error {
	p := ui.NewPrinter(nil)

	client, _, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	req := freebox.Request{
		Path:      apiPath(path, client.Config().APIVersion),
		Method:    method,
		ParseJSON: !getRaw,
	}
	if body != nil {
		req.Body = body
	}

	resp, err := client.Do(ctx, req)
	if err != nil {
		return fail(p, fmt.Sprintf("%s %s failed", method, path), err)
	}
	if getRaw {
		p.Println(string(resp.Body))
		return nil
	}
	if err := resp.Err(); err != nil {
		return fail(p, fmt.Sprintf("%s %s refused", method, path), err)
	}
	if len(resp.Result) == 0 {
		p.Println("ok")
		return nil
	}

	var out bytes.Buffer
	if err := json.Indent(&out, resp.Result, "", "  "); err != nil {
		return freebox.NewParseError("invalid result", err)
	}
	p.Println(out.String())
	return nil
}

// systemCmd shows the system status
var systemCmd = &cobra.Command{
	Use:   "system",
	Short: "Show the system status of the box",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := ui.NewPrinter(nil)

		client, t, err := newClient()
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		system, err := client.System(ctx)
		if err != nil {
			return fail(p, "Cannot read system status", err)
		}

		title := system.ModelInfo.PrettyName
		if title == "" {
			title = t.Config.APIDomain
		}
		p.PrintSuccess(title, map[string]string{
			"Firmware":      system.FirmwareVersion,
			"Board":         system.BoardName,
			"Serial":        system.Serial,
			"MAC":           system.Mac,
			"Uptime":        system.Uptime,
			"Disk":          system.DiskStatus,
			"Authenticated": fmt.Sprintf("%t", system.BoxAuthenticated),
		})
		return nil
	},
}

// watchCmd prints websocket notifications
var watchCmd = &cobra.Command{
	Use:   "watch <event>...",
	Short: "Print notifications sent by the box",
	Long: `Subscribe to notifications of the event websocket and print one JSON
line per notification until interrupted.`,
	Example: `  fbx watch lan_host_l3addr_reachable lan_host_l3addr_unreachable
  fbx watch vm_state_changed`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := ui.NewPrinter(nil)

		client, _, err := newClient()
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		out := json.NewEncoder(os.Stdout)
		err = client.WatchEvents(ctx, args, func(ev freebox.Event) {
			_ = out.Encode(map[string]any{
				"time":   time.Now().Format(time.RFC3339),
				"event":  ev.Name(),
				"result": ev.Result,
			})
		})
		if err != nil && ctx.Err() == nil {
			return fail(p, "Event stream failed", err)
		}
		return nil
	},
}

// loginCmd opens a session and shows the granted permissions
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Open a session and show the granted permissions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := ui.NewPrinter(nil)

		client, t, err := newClient()
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		resp, err := client.Authenticate(ctx)
		if err != nil {
			return fail(p, "Login failed", err)
		}

		var session struct {
			Permissions map[string]bool `json:"permissions"`
		}
		if err := resp.Decode(&session); err != nil {
			return err
		}

		details := map[string]string{
			"Box":    fmt.Sprintf("%s:%d", t.Config.APIDomain, t.Config.HTTPSPort),
			"App ID": t.Config.AppID,
		}
		if info, err := client.BoxInfo(); err == nil && info != nil {
			details["Model"] = info.BoxModelName
			details["API version"] = info.APIVersion
		}
		p.PrintSuccess("Session opened", details)

		names := make([]string, 0, len(session.Permissions))
		for name := range session.Permissions {
			names = append(names, name)
		}
		sort.Strings(names)

		rows := make([][]string, 0, len(names))
		for _, name := range names {
			granted := "no"
			if session.Permissions[name] {
				granted = "yes"
			}
			rows = append(rows, []string{name, granted})
		}
		if len(rows) > 0 {
			p.Newline()
			p.PrintTable([]string{"PERMISSION", "GRANTED"}, rows)
		}
		return nil
	},
}
