package nmea

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"go.bug.st/serial"

	"smartjogger/internal/sensor"
)

// OpenFunc opens the serial device.
type OpenFunc func(path string, mode *serial.Mode) (io.ReadCloser, error)

// Receiver watches a serial GPS receiver.
type Receiver struct {
	Port string
	Baud int
	// Open defaults to serial.Open.
	Open OpenFunc
}

func openSerial(path string, mode *serial.Mode) (io.ReadCloser, error) {
	return serial.Open(path, mode)
}

func (r *Receiver) mode() *serial.Mode {
	baud := r.Baud
	if baud <= 0 {
		baud = 9600
	}
	return &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// Watch opens the port and streams valid RMC fixes. A port that cannot be
// opened means position sensing is unavailable. A receiver that loses its
// fix reports sensor.ErrPositionUnavailable once per loss.
func (r *Receiver) Watch(ctx context.Context, opts sensor.Options, cb sensor.Callbacks) (sensor.Handle, error) {
	open := r.Open
	if open == nil {
		open = openSerial
	}
	port, err := open(r.Port, r.mode())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", r.Port, sensor.ErrUnavailable, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	fixes := make(chan sensor.Position)
	errs := make(chan error)

	go func() {
		<-ctx.Done()
		port.Close()
	}()
	go func() {
		defer close(fixes)
		defer close(errs)
		r.scan(ctx, port, fixes, errs)
	}()
	go sensor.Relay(ctx, opts, fixes, errs, cb)

	return sensor.StopFunc(cancel), nil
}

func (r *Receiver) scan(ctx context.Context, port io.Reader, fixes chan<- sensor.Position, errs chan<- error) {
	scanner := bufio.NewScanner(port)
	hadFix := true
	for scanner.Scan() {
		fix, err := ParseRMC(scanner.Text())
		if errors.Is(err, ErrNotRMC) {
			continue
		}
		if err != nil {
			slog.Debug("skipping nmea sentence", "port", r.Port, "error", err)
			continue
		}
		if !fix.Valid {
			if hadFix {
				hadFix = false
				if !send(ctx, errs, sensor.ErrPositionUnavailable) {
					return
				}
			}
			continue
		}
		hadFix = true
		// Left unstamped: the session stamps fixes on receipt.
		pos := sensor.Position{Latitude: fix.Lat, Longitude: fix.Lon}
		select {
		case fixes <- pos:
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		send(ctx, errs, fmt.Errorf("read %s: %w", r.Port, err))
	}
}

func send(ctx context.Context, errs chan<- error, err error) bool {
	select {
	case errs <- err:
		return true
	case <-ctx.Done():
		return false
	}
}
