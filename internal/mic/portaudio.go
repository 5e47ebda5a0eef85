// Package mic implements audio.Microphone on top of PortAudio.
package mic

import (
	"context"
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"

	"github.com/petems/capture-tray/internal/audio"
	"github.com/petems/capture-tray/internal/permissions"
)

type portAudioMicrophone struct {
	log zerolog.Logger
}

// New initializes PortAudio. Close must be called to terminate it.
func New(log zerolog.Logger) (audio.Microphone, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return &portAudioMicrophone{log: log}, nil
}

func (p *portAudioMicrophone) Request(ctx context.Context, c audio.Constraints) (audio.Stream, error) {
	if c.Video {
		return nil, fmt.Errorf("%w: video capture", audio.ErrUnsupportedConstraints)
	}
	if !c.Audio {
		return nil, fmt.Errorf("%w: no audio requested", audio.ErrUnsupportedConstraints)
	}

	if err := permissions.Microphone(ctx); err != nil {
		if errors.Is(err, permissions.ErrDenied) {
			return nil, fmt.Errorf("%w: %v", audio.ErrPermissionDenied, err)
		}
		return nil, fmt.Errorf("microphone permission: %w", err)
	}

	device, err := findDevice(c.DeviceID)
	if err != nil {
		return nil, err
	}

	channels := c.Channels
	if channels <= 0 {
		channels = 1
	}
	if channels > device.MaxInputChannels {
		return nil, fmt.Errorf("%w: device %q has %d input channels, %d requested",
			audio.ErrUnsupportedConstraints, device.Name, device.MaxInputChannels, channels)
	}
	sampleRate := c.SampleRate
	if sampleRate <= 0 {
		sampleRate = int(device.DefaultSampleRate)
	}
	frames := c.FramesPerBuffer
	if frames <= 0 {
		frames = 512
	}

	// Interleaved signed 16-bit PCM
	buffer := make([]int16, frames*channels)
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: channels,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      float64(sampleRate),
		FramesPerBuffer: frames,
	}, buffer)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("failed to start audio stream: %w", err)
	}

	b := audio.NewBroadcast(audio.Format{SampleRate: sampleRate, Channels: channels}, stream.Stop)

	p.log.Info().
		Str("device", device.Name).
		Int("sample_rate", sampleRate).
		Int("channels", channels).
		Msg("Microphone stream opened")

	// Read loop
	go func() {
		defer stream.Close()
		for {
			select {
			case <-b.Done():
				return
			default:
			}
			err := stream.Read()
			if overflowed(err) {
				// the block is intact, only samples before it were lost
				p.log.Debug().Msg("Microphone input overflowed")
			} else if err != nil {
				select {
				case <-b.Done():
				default:
					p.log.Error().Err(err).Msg("Microphone read failed, ending stream")
					b.Stop()
				}
				return
			}
			b.Publish(buffer)
		}
	}()

	return b, nil
}

// overflowed reports whether err is PortAudio telling us the reader fell
// behind. The stream is still usable.
func overflowed(err error) bool {
	return errors.Is(err, portaudio.InputOverflowed)
}

func findDevice(deviceID string) (*portaudio.DeviceInfo, error) {
	if deviceID == "" {
		device, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("failed to get default input device: %w", err)
		}
		return device, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	for _, d := range devices {
		if d.Name == deviceID && d.MaxInputChannels > 0 {
			return d, nil
		}
	}
	return nil, fmt.Errorf("device not found: %s", deviceID)
}

func (p *portAudioMicrophone) ListDevices() ([]audio.AudioDevice, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	result := make([]audio.AudioDevice, 0, len(devices))
	defaultDevice, _ := portaudio.DefaultInputDevice()

	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			result = append(result, audio.AudioDevice{
				ID:      d.Name,
				Name:    d.Name,
				Default: d == defaultDevice,
			})
		}
	}

	return result, nil
}

func (p *portAudioMicrophone) Close() error {
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}
