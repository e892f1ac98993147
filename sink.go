package ledclock

import (
	"context"
	"io"
	"log/slog"

	"github.com/pkg/errors"
	"go.bug.st/serial"
	"libdb.so/ledclock/internal/led"
	"libdb.so/ledclock/internal/segment"
	"libdb.so/ledclock/ledserial"
)

// Sink extends the engine's sink contract with a shutdown hook.
type Sink interface {
	segment.Sink
	Close() error
}

// serialSink pushes the pixel buffer to a strip controller over the
// ledserial protocol.
type serialSink struct {
	port    serial.Port
	format  led.Format
	numLEDs int
	scratch []uint8
}

func wireFormat(f led.Format) ledserial.PixelFormat {
	if f == led.FormatRGBW {
		return ledserial.PixelRGBW
	}
	return ledserial.PixelRGB
}

// openSerialSink opens the serial device and initializes the controller
// for the strip.
func openSerialSink(device string, baud, numLEDs int, format led.Format) (*serialSink, error) {
	port, err := serial.Open(device, &serial.Mode{
		BaudRate: baud,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open serial port")
	}

	init := ledserial.InitializePacket{
		NumLEDs: uint16(numLEDs),
		Format:  wireFormat(format),
	}
	if err := ledserial.WriteIncomingPacket(port, init); err != nil {
		port.Close()
		return nil, errors.Wrap(err, "failed to initialize strip controller")
	}

	return &serialSink{
		port:    port,
		format:  format,
		numLEDs: numLEDs,
	}, nil
}

// Flush sends the whole buffer in one set packet. The scratch slice is
// reused across ticks so flushing does not allocate.
func (s *serialSink) Flush(buf led.LEDs) error {
	s.scratch = buf.AppendPixels(s.scratch[:0], s.format)
	err := ledserial.WriteIncomingPacket(s.port, ledserial.SetPacket{Pix: s.scratch})
	return errors.Wrap(err, "failed to write pixel packet")
}

// SetBrightness forwards the global brightness to the controller.
func (s *serialSink) SetBrightness(level uint8) error {
	err := ledserial.WriteIncomingPacket(s.port, ledserial.BrightnessPacket{Level: level})
	return errors.Wrap(err, "failed to write brightness packet")
}

// Close blanks the strip and releases the port.
func (s *serialSink) Close() error {
	if err := ledserial.WriteIncomingPacket(s.port, ledserial.ClearPacket{}); err != nil {
		s.port.Close()
		return errors.Wrap(err, "failed to clear strip")
	}
	return errors.Wrap(s.port.Close(), "failed to close serial port")
}

// closeOnCancel blocks until the context is canceled, then closes the
// port. Closing is what unblocks a packet reader stuck inside a read;
// nothing else interrupts it.
func (s *serialSink) closeOnCancel(ctx context.Context, logger *slog.Logger) error {
	<-ctx.Done()
	logger.Debug("closing serial port")
	if err := s.Close(); err != nil {
		return errors.Wrap(err, "failed to close serial port")
	}
	return ctx.Err()
}

// readPackets drains packets the controller sends back and logs them.
// The controller is free to report errors at any time, not only in reply
// to a write.
func (s *serialSink) readPackets(ctx context.Context, logger *slog.Logger) error {
	if err := s.port.SetReadTimeout(serial.NoTimeout); err != nil {
		return errors.Wrap(err, "failed to reset read timeout")
	}

	rctx := ledserial.ReadContext{
		NumLEDs: uint16(s.numLEDs),
		Format:  wireFormat(s.format),
	}

	for ctx.Err() == nil {
		p, err := ledserial.ReadOutgoingPacket(s.port, rctx)
		if err != nil {
			// The port gets closed out from under this read on shutdown;
			// the resulting read error is expected then.
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// A short read indicates a timeout. This is expected.
			// Ignore the error and try again.
			if errors.Is(err, io.EOF) {
				continue
			}
			return errors.Wrap(err, "failed to read packet")
		}

		switch p := p.(type) {
		case ledserial.AckPacket:
			logger.Debug("controller acked", "acked_for", p.IncomingPacketType)
		case ledserial.ErrorPacket:
			logger.Warn("controller reported error", "message", p.Message)
		case ledserial.PanicPacket:
			return errors.New("controller unrecoverably panicked")
		case ledserial.LogPacket:
			logger.Info("controller log", "message", p.Message)
		default:
			return errors.Errorf("received unknown packet from controller: %s", p.Type())
		}
	}

	return ctx.Err()
}

// NullSink discards frames and brightness changes. It serves headless
// runs where no serial device is configured.
type NullSink struct{}

func (NullSink) Flush(led.LEDs) error            { return nil }
func (NullSink) SetBrightness(level uint8) error { return nil }
func (NullSink) Close() error                    { return nil }
