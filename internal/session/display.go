package session

import "log/slog"

// Display receives the text the tracker shows to the user. Each call
// replaces the previous value of that line.
type Display interface {
	SetNetworkStatus(text string)
	SetLocationStatus(text string)
	SetAlert(text string)
	SetStats(text string)
}

// Displays fans every update out to each display in order.
type Displays []Display

func (d Displays) SetNetworkStatus(text string) {
	for _, x := range d {
		x.SetNetworkStatus(text)
	}
}

func (d Displays) SetLocationStatus(text string) {
	for _, x := range d {
		x.SetLocationStatus(text)
	}
}

func (d Displays) SetAlert(text string) {
	for _, x := range d {
		x.SetAlert(text)
	}
}

func (d Displays) SetStats(text string) {
	for _, x := range d {
		x.SetStats(text)
	}
}

// LogDisplay writes display updates to a structured logger.
type LogDisplay struct {
	Logger *slog.Logger
}

func (d LogDisplay) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

func (d LogDisplay) SetNetworkStatus(text string) {
	d.logger().Info("network status", "text", text)
}

func (d LogDisplay) SetLocationStatus(text string) {
	d.logger().Info("location status", "text", text)
}

func (d LogDisplay) SetAlert(text string) {
	if text == "" {
		d.logger().Debug("alert cleared")
		return
	}
	d.logger().Warn("alert", "text", text)
}

func (d LogDisplay) SetStats(text string) {
	d.logger().Debug("stats", "text", text)
}
