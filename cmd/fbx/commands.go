package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/muurk/fbx/internal/config"
	"github.com/muurk/fbx/internal/discovery"
	"github.com/muurk/fbx/internal/logging"
	"github.com/muurk/fbx/internal/ui"
	"github.com/muurk/fbx/internal/urls"
	"github.com/muurk/fbx/internal/version"
	"github.com/muurk/fbx/pkg/freebox"
)

// Command flags
var (
	outputFormat string

	pairAppName    string
	pairAppVersion string
	pairDeviceName string
	pairURL        string
	pairNickname   string
)

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(pairCmd)
	rootCmd.AddCommand(boxesCmd)
}

// signalContext returns a context cancelled on ctrl+c
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// scanCmd discovers boxes on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for Freebox routers on the network",
	Long: `Scan for Freebox routers using mDNS/DNS-SD discovery.

Every Freebox Server advertises its API as a "_fbx-api._tcp" service. This
command lists the boxes found with their API domain and HTTPS port.`,
	Example: `  # Scan with the configured timeout (default 5s)
  fbx scan

  # Longer scan
  fbx scan --timeout 15s`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	p := ui.NewPrinter(nil)

	reg, err := config.LoadRegistry()
	if err != nil {
		return err
	}

	timeout := settings.GetDuration("timeout")
	if timeout <= 0 && reg.Preferences != nil {
		timeout = time.Duration(reg.Preferences.DiscoverTimeout) * time.Second
	}
	if timeout <= 0 {
		timeout = discovery.DefaultScanTimeout
	}

	p.Println(fmt.Sprintf("Scanning for Freebox routers (timeout: %s)...", timeout))
	p.Newline()

	devices, err := discovery.ScanForDevices(timeout)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(devices) == 0 {
		p.PrintError("No Freebox found", nil, []string{
			"Check that this computer is on the Freebox local network",
			"Multicast (UDP 5353) may be filtered by a firewall",
			"Try 'fbx probe' to contact mafreebox.freebox.fr directly",
		})
		return nil
	}

	rows := make([][]string, 0, len(devices))
	changed := false
	for _, d := range devices {
		paired := "no"
		if box := reg.GetBox(d.UID); box != nil {
			paired = "yes"
			reg.UpdateBoxLastSeen(d.UID, d.IP)
			changed = true
		}
		rows = append(rows, []string{
			d.UID,
			d.BoxModelName,
			d.IP,
			fmt.Sprintf("%s:%d", d.APIDomain, d.HTTPSPort),
			d.APIVersion,
			paired,
		})
	}
	p.PrintTable([]string{"UID", "MODEL", "IP", "API", "VERSION", "PAIRED"}, rows)
	p.Newline()
	p.Println("Use 'fbx pair' to pair with a box")

	if changed {
		if err := reg.Save(); err != nil {
			logging.Warn("Failed to update registry", zap.Error(err))
		}
	}
	return nil
}

// probeCmd shows the unauthenticated box description
var probeCmd = &cobra.Command{
	Use:   "probe [base-url]",
	Short: "Show the description of a box",
	Long: `Fetch the api_version document of a box. No pairing is needed.

Without argument, the selected paired box is probed. When no box is paired
the first box found by mDNS is used (if auto_discover is enabled), then
https://mafreebox.freebox.fr/api/.`,
	Example: `  fbx probe
  fbx probe https://192.168.1.254/api/
  fbx probe --domain abcd1234.fbxos.fr --port 34567
  fbx probe --format yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProbe,
}

func init() {
	probeCmd.Flags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, json, yaml)")
}

func runProbe(cmd *cobra.Command, args []string) error {
	p := ui.NewPrinter(nil)

	baseURL := freebox.DefaultRegistrationURL
	if len(args) == 1 {
		baseURL = args[0]
	} else if domain := settings.GetString("domain"); domain != "" {
		port := settings.GetInt("port")
		if port == 0 {
			port = freebox.DefaultHTTPSPort
		}
		baseURL = fmt.Sprintf("https://%s%s", net.JoinHostPort(domain, strconv.Itoa(port)), freebox.DefaultAPIBaseURL)
	} else if reg, err := config.LoadRegistry(); err == nil {
		baseURL = probeTarget(reg, baseURL)
	}

	ctx, cancel := signalContext()
	defer cancel()

	var hc *http.Client
	if timeout := settings.GetDuration("timeout"); timeout > 0 {
		hc = freebox.NewHTTPClient()
		hc.Timeout = timeout
	}

	info, err := freebox.Probe(ctx, hc, baseURL)
	if err != nil {
		return fail(p, "Probe failed", err)
	}

	switch outputFormat {
	case "json":
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		p.Println(string(data))
	case "yaml":
		data, err := yaml.Marshal(info)
		if err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		p.Print(string(data))
	default:
		p.PrintSuccess(info.BoxModelName, map[string]string{
			"UID":         info.UID,
			"Device":      info.DeviceName,
			"Type":        info.DeviceType,
			"API version": info.APIVersion,
			"API base":    info.APIBaseURL,
			"API domain":  info.APIDomain,
			"HTTPS port":  strconv.Itoa(info.HTTPSPort),
			"HTTPS":       strconv.FormatBool(info.HTTPSAvailable),
		})
	}
	return nil
}

// probeTarget returns the base URL of the selected paired box. Without one,
// and when auto discovery is enabled, the first box answering mDNS is used.
func probeTarget(reg *config.Registry, fallback string) string {
	if t, err := resolveTarget(reg, settings); err == nil {
		if client, err := freebox.New(t.Config); err == nil {
			return client.BaseURL()
		}
	}
	if reg.Preferences == nil || !reg.Preferences.AutoDiscover {
		return fallback
	}

	timeout := time.Duration(reg.Preferences.DiscoverTimeout) * time.Second
	if timeout <= 0 {
		timeout = discovery.DefaultScanTimeout
	}
	devices, err := discovery.ScanForDevices(timeout)
	if err != nil || len(devices) == 0 {
		logging.Debug("No box discovered, using default URL", zap.Error(err))
		return fallback
	}
	logging.Debug("Probing discovered box", zap.String("device", devices[0].String()))
	return devices[0].BaseURL()
}

// pairCmd registers the application on a box
var pairCmd = &cobra.Command{
	Use:   "pair",
	Short: "Pair with a Freebox and store the app token",
	Long: `Ask the Freebox for an app token.

The request is displayed on the Freebox Server screen and must be accepted
there with the arrow buttons. The token is stored in the fbx configuration
file and used by every other command.`,
	Example: `  fbx pair
  fbx pair --nickname home
  fbx pair --url https://192.168.1.254/api/ --device-name nas`,
	RunE: runPair,
}

func init() {
	pairCmd.Flags().StringVar(&pairAppName, "app-name", "fbx", "App name shown on the box")
	pairCmd.Flags().StringVar(&pairAppVersion, "app-version", version.Version, "App version shown on the box")
	pairCmd.Flags().StringVar(&pairDeviceName, "device-name", "", "Device name shown on the box (default: hostname)")
	pairCmd.Flags().StringVar(&pairURL, "url", freebox.DefaultRegistrationURL, "API base URL used for pairing")
	pairCmd.Flags().StringVar(&pairNickname, "nickname", "", "Nickname for the paired box")
}

func runPair(cmd *cobra.Command, args []string) error {
	p := ui.NewPrinter(nil)

	reg, err := config.LoadRegistry()
	if err != nil {
		return err
	}

	app := freebox.AppRegistration{
		AppID:      settings.GetString("app-id"),
		AppName:    pairAppName,
		AppVersion: pairAppVersion,
		DeviceName: pairDeviceName,
	}
	if app.AppID == "" {
		app.AppID = reg.Preferences.DefaultAppID
	}
	if app.DeviceName == "" {
		app.DeviceName, _ = os.Hostname()
	}

	p.PrintHeader("Pairing", "fbx pair", map[string]string{
		"Box":    pairURL,
		"App ID": app.AppID,
		"Device": app.DeviceName,
	})

	ctx, cancel := signalContext()
	defer cancel()

	steps := []string{
		"Contact the Freebox",
		"Request authorization",
		"Accept on the Freebox display",
		"Save the app token",
	}

	var creds *freebox.Credentials
	err = ui.RunSteps(ctx, os.Stdout, steps, func(ctx context.Context, onStep ui.StepCallback) error {
		registrar := freebox.NewRegistrar()
		registrar.BaseURL = pairURL
		if timeout := settings.GetDuration("timeout"); timeout > 0 {
			registrar.HTTPClient.Timeout = timeout
		}
		current := 1
		registrar.OnPending = func(trackID int) {
			onStep(1, ui.StepComplete, "")
			onStep(2, ui.StepComplete, fmt.Sprintf("track id %d", trackID))
			onStep(3, ui.StepRunning, "")
			current = 3
		}
		registrar.OnStatus = func(status string) {
			onStep(3, ui.StepRunning, status)
		}

		onStep(1, ui.StepRunning, "")
		granted, err := registrar.Register(ctx, app)
		if err != nil {
			onStep(current, ui.StepFailed, freebox.GetShortErrorMessage(err))
			return err
		}
		creds = granted
		onStep(3, ui.StepComplete, "granted")

		onStep(4, ui.StepRunning, "")
		uid := creds.APIDomain
		if creds.Box != nil && creds.Box.UID != "" {
			uid = creds.Box.UID
		}
		box := reg.StoreCredentials(uid, creds)
		if pairNickname != "" {
			box.Nickname = pairNickname
		}
		if err := reg.Save(); err != nil {
			onStep(4, ui.StepFailed, "")
			return err
		}
		onStep(4, ui.StepComplete, "")
		return nil
	})
	p.Newline()

	if err != nil {
		return fail(p, "Pairing failed", err)
	}

	path, _ := config.GetConfigPath()
	p.PrintSuccess("Paired", map[string]string{
		"Box":    creds.APIDomain,
		"Config": path,
		"Rights": urls.AppManagement,
	})
	return nil
}

// boxesCmd manages the paired boxes
var boxesCmd = &cobra.Command{
	Use:   "boxes",
	Short: "List paired boxes",
	RunE:  runBoxes,
}

func init() {
	boxesCmd.AddCommand(&cobra.Command{
		Use:   "rm <box>",
		Short: "Forget a paired box",
		Args:  cobra.ExactArgs(1),
		RunE: editRegistry(func(reg *config.Registry, uid string, args []string) {
			reg.RemoveBox(uid)
		}),
	})
	boxesCmd.AddCommand(&cobra.Command{
		Use:   "rename <box> <nickname>",
		Short: "Set the nickname of a paired box",
		Args:  cobra.ExactArgs(2),
		RunE: editRegistry(func(reg *config.Registry, uid string, args []string) {
			reg.SetBoxNickname(uid, args[1])
		}),
	})
	boxesCmd.AddCommand(&cobra.Command{
		Use:   "default <box>",
		Short: "Use a paired box when --box is not given",
		Args:  cobra.ExactArgs(1),
		RunE: editRegistry(func(reg *config.Registry, uid string, args []string) {
			reg.Preferences.DefaultBox = uid
		}),
	})
}

func runBoxes(cmd *cobra.Command, args []string) error {
	p := ui.NewPrinter(nil)

	reg, err := config.LoadRegistry()
	if err != nil {
		return err
	}
	if len(reg.Boxes) == 0 {
		p.Println("No paired box. Run 'fbx pair' first.")
		return nil
	}

	rows := make([][]string, 0, len(reg.Boxes))
	for _, uid := range reg.UIDs() {
		box := reg.Boxes[uid]
		marker := ""
		if uid == reg.Preferences.DefaultBox {
			marker = "*"
		}
		lastSeen := ""
		if !box.LastSeen.IsZero() {
			lastSeen = box.LastSeen.Format(time.DateTime)
		}
		rows = append(rows, []string{
			marker,
			uid,
			box.Nickname,
			box.BoxModel,
			fmt.Sprintf("%s:%d", box.APIDomain, box.HTTPSPort),
			box.AppID,
			lastSeen,
		})
	}
	p.PrintTable([]string{"", "UID", "NICKNAME", "MODEL", "API", "APP ID", "LAST SEEN"}, rows)
	return nil
}

// editRegistry runs edit on the box named by args[0] and saves the registry
func editRegistry(edit func(reg *config.Registry, uid string, args []string)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		reg, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		uid, box := reg.FindBox(args[0])
		if box == nil {
			return fmt.Errorf("no paired box matches %q", args[0])
		}
		edit(reg, uid, args)
		return reg.Save()
	}
}
