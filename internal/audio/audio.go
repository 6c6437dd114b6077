// Package audio converts voice clips between the formats used by the
// messaging gateway and the speech services.
//
// Conversion shells out to ffmpeg. Every call writes its input and output to
// temporary files that are removed before the call returns, whether or not
// ffmpeg succeeded.
package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"

	"github.com/nadzzz/copilot/internal/config"
)

// ErrInvalidWAV is returned when ffmpeg produced something that is not a
// readable WAV file.
var ErrInvalidWAV = errors.New("transcoded audio is not a valid wav file")

// TranscriptionSampleRate is the sample rate Whisper models are trained on.
const TranscriptionSampleRate = 16000

// Transcoder converts voice clips.
type Transcoder interface {
	// ToWAV converts a compressed clip (e.g. OGG/Opus) to 16 kHz mono WAV.
	ToWAV(ctx context.Context, src []byte, srcExt string) ([]byte, error)

	// ToVoice converts WAV audio to OGG/Opus for voice-message delivery.
	ToVoice(ctx context.Context, wavData []byte) ([]byte, error)
}

// runFunc executes an external command and returns its combined output.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// FFmpeg implements Transcoder by invoking the ffmpeg binary.
type FFmpeg struct {
	path    string
	tempDir string
	run     runFunc
}

var _ Transcoder = (*FFmpeg)(nil)

// NewFFmpeg creates a transcoder from config.
func NewFFmpeg(cfg config.AudioConfig) *FFmpeg {
	path := cfg.FFmpegPath
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpeg{path: path, tempDir: cfg.TempDir, run: execRun}
}

// ToWAV converts src to 16 kHz mono PCM WAV and checks the result.
func (f *FFmpeg) ToWAV(ctx context.Context, src []byte, srcExt string) ([]byte, error) {
	if srcExt == "" {
		srcExt = ".ogg"
	}
	out, err := f.convert(ctx, src, srcExt, ".wav",
		"-ar", fmt.Sprint(TranscriptionSampleRate), "-ac", "1", "-c:a", "pcm_s16le")
	if err != nil {
		return nil, err
	}

	dur, err := WAVDuration(out)
	if err != nil {
		return nil, err
	}
	slog.Debug("voice clip transcoded", "format", "wav", "duration", dur, "bytes", len(out))
	return out, nil
}

// ToVoice converts WAV audio to OGG/Opus.
func (f *FFmpeg) ToVoice(ctx context.Context, wavData []byte) ([]byte, error) {
	out, err := f.convert(ctx, wavData, ".wav", ".ogg", "-c:a", "libopus", "-b:a", "32k")
	if err != nil {
		return nil, err
	}
	slog.Debug("voice reply transcoded", "format", "ogg", "bytes", len(out))
	return out, nil
}

// convert writes src to a temp file, runs ffmpeg into a sibling temp file
// and returns the output bytes. Both files are always removed.
func (f *FFmpeg) convert(ctx context.Context, src []byte, srcExt, dstExt string, codecArgs ...string) ([]byte, error) {
	in, err := os.CreateTemp(f.tempDir, "copilot-*"+srcExt)
	if err != nil {
		return nil, fmt.Errorf("creating temp input: %w", err)
	}
	inPath := in.Name()
	outPath := strings.TrimSuffix(inPath, filepath.Ext(inPath)) + dstExt
	defer func() {
		for _, p := range []string{inPath, outPath} {
			if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
				slog.Debug("failed to cleanup temp file", "file", p, "error", err)
			}
		}
	}()

	if _, err := in.Write(src); err != nil {
		in.Close()
		return nil, fmt.Errorf("writing temp input: %w", err)
	}
	if err := in.Close(); err != nil {
		return nil, fmt.Errorf("closing temp input: %w", err)
	}

	args := []string{"-hide_banner", "-loglevel", "error", "-y", "-i", inPath}
	args = append(args, codecArgs...)
	args = append(args, outPath)

	if output, err := f.run(ctx, f.path, args...); err != nil {
		return nil, fmt.Errorf("ffmpeg %s->%s: %w: %.300s", srcExt, dstExt, err, bytes.TrimSpace(output))
	}

	out, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("reading ffmpeg output: %w", err)
	}
	return out, nil
}

// WAVDuration validates a WAV file and returns its playback length.
func WAVDuration(data []byte) (time.Duration, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return 0, ErrInvalidWAV
	}
	dur, err := dec.Duration()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
	}
	return dur, nil
}

// PCMToWAV wraps raw little-endian PCM data in a WAV container.
func PCMToWAV(pcm []byte, sampleRate, channels, bytesPerSample int) []byte {
	dataLen := len(pcm)
	fileLen := 36 + dataLen // 44-byte header minus 8 bytes for RIFF header = 36

	buf := &bytes.Buffer{}
	buf.Grow(44 + dataLen)

	// RIFF header
	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(fileLen))
	buf.WriteString("WAVE")

	// fmt subchunk
	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate*channels*bytesPerSample))
	_ = binary.Write(buf, binary.LittleEndian, uint16(channels*bytesPerSample))
	_ = binary.Write(buf, binary.LittleEndian, uint16(bytesPerSample*8))

	// data subchunk
	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(pcm)

	return buf.Bytes()
}
