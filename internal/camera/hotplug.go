package camera

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"tarmac/internal/logging"
)

// HotplugEvent describes a camera attach or detach.
type HotplugEvent struct {
	Device   string
	Attached bool
}

// Hotplug listens for udev netlink events on the video4linux subsystem and
// reports attach/detach of the configured capture device. This removes the
// need for operators to restart the daemon after re-seating a cable.
type Hotplug struct {
	logger  *slog.Logger
	device  string
	handler func(ctx context.Context, event HotplugEvent)

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// NewHotplug creates a hotplug monitor for the given device. The handler is
// invoked from the monitor goroutine for every matched event.
func NewHotplug(device string, logger *slog.Logger, handler func(ctx context.Context, event HotplugEvent)) *Hotplug {
	device = strings.TrimSpace(device)
	if device == "" {
		return nil
	}
	return &Hotplug{
		logger:  logging.NewComponentLogger(logger, "camera-hotplug"),
		device:  device,
		handler: handler,
	}
}

// Start begins listening for udev netlink events. A failure to open the
// netlink socket is non-fatal: scanning still works, only hotplug
// notifications are lost.
func (h *Hotplug) Start(ctx context.Context) error {
	if h == nil {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		h.logger.Warn("failed to connect to netlink socket; camera hotplug detection disabled",
			logging.Error(err),
			logging.String(logging.FieldEventType, "netlink_connect_failed"),
			logging.String(logging.FieldErrorHint, "ensure the daemon may access netlink sockets"),
			logging.String(logging.FieldImpact, "cable pulls will not be announced"),
		)
		return nil
	}

	h.conn = conn
	h.quit = make(chan struct{})
	h.running = true

	quit := h.quit
	go h.monitorLoop(ctx, quit)

	h.logger.Info("camera hotplug monitor started",
		logging.String(logging.FieldEventType, "hotplug_monitor_started"),
		logging.String(logging.FieldDevice, h.device),
	)
	return nil
}

// Stop shuts down the hotplug monitor.
func (h *Hotplug) Stop() {
	if h == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.running {
		return
	}
	if h.quit != nil {
		close(h.quit)
		h.quit = nil
	}
	if h.conn != nil {
		_ = h.conn.Close()
		h.conn = nil
	}
	h.running = false

	h.logger.Info("camera hotplug monitor stopped",
		logging.String(logging.FieldEventType, "hotplug_monitor_stopped"),
	)
}

// Running reports whether the monitor is active.
func (h *Hotplug) Running() bool {
	if h == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running
}

func (h *Hotplug) monitorLoop(ctx context.Context, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	matcher := buildVideoMatcher()

	h.mu.Lock()
	conn := h.conn
	h.mu.Unlock()
	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(queue, errs, matcher)

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			h.handleEvent(ctx, uevent)
		case err := <-errs:
			h.logger.Warn("hotplug monitor error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "hotplug_monitor_error"),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
			)
		}
	}
}

// buildVideoMatcher matches SUBSYSTEM=video4linux, ACTION=add|remove.
func buildVideoMatcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "video4linux",
		},
	})
	return rules
}

func (h *Hotplug) handleEvent(ctx context.Context, uevent netlink.UEvent) {
	devname := extractDeviceName(uevent)
	if devname == "" || devname != h.device {
		return
	}

	attached := uevent.Action == netlink.ADD
	h.logger.Info("camera hotplug event",
		logging.String(logging.FieldEventType, "camera_hotplug"),
		logging.String(logging.FieldDevice, devname),
		logging.Bool("attached", attached),
	)

	if h.handler != nil {
		h.handler(ctx, HotplugEvent{Device: devname, Attached: attached})
	}
}

func extractDeviceName(uevent netlink.UEvent) string {
	if devname, ok := uevent.Env["DEVNAME"]; ok {
		devname = strings.TrimSpace(devname)
		if devname == "" {
			return ""
		}
		if strings.HasPrefix(devname, "/dev/") {
			return devname
		}
		return filepath.Join("/dev", devname)
	}
	return ""
}
