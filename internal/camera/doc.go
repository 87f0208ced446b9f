// Package camera owns the capture hardware. A Source hands the video device
// to exactly one scan session at a time and produces single still captures on
// demand by invoking the configured capture tool. A Hotplug monitor watches
// udev netlink events so operators hear about cable pulls immediately.
package camera
