package capture

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"sync"
)

// FFmpegSource captures from a device or stream URL by piping ffmpeg
// output through stdout into a drainable buffer. The recorder never
// holds more than one interval of uncommitted data because each tick
// drains the buffer.
type FFmpegSource struct {
	inputURL string
	mimeType string
	args     []string

	mu       sync.Mutex
	buf      bytes.Buffer
	cmd      *exec.Cmd
	readDone chan struct{}
}

// NewFFmpegSource captures inputURL (a device path, RTMP URL, or file)
// as a WebM stream. extraInputArgs are passed to ffmpeg ahead of -i,
// for input-format flags such as -f v4l2.
func NewFFmpegSource(inputURL, mimeType string, extraInputArgs ...string) *FFmpegSource {
	return &FFmpegSource{
		inputURL: inputURL,
		mimeType: mimeType,
		args:     extraInputArgs,
	}
}

func (s *FFmpegSource) Open(ctx context.Context) error {
	args := append([]string{"-hide_banner", "-loglevel", "error"}, s.args...)
	args = append(args,
		"-i", s.inputURL,
		"-c:v", "libvpx-vp9",
		"-c:a", "libopus",
		"-deadline", "realtime",
		"-f", "webm",
		"pipe:1",
	)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}

	done := make(chan struct{})
	s.mu.Lock()
	s.cmd = cmd
	s.readDone = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		s.readLoop(stdout)
	}()
	return nil
}

func (s *FFmpegSource) readLoop(r io.Reader) {
	chunk := make([]byte, 32*1024)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			s.mu.Lock()
			s.buf.Write(chunk[:n])
			s.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

func (s *FFmpegSource) Drain() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buf.Len() == 0 {
		return nil
	}
	out := append([]byte(nil), s.buf.Bytes()...)
	s.buf.Reset()
	return out
}

func (s *FFmpegSource) MimeType() string {
	return s.mimeType
}

func (s *FFmpegSource) Close() error {
	s.mu.Lock()
	cmd := s.cmd
	done := s.readDone
	s.cmd = nil
	s.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if err := cmd.Process.Kill(); err != nil {
		return err
	}
	// Wait closes the stdout pipe; let the reader hit EOF and finish
	// buffering first, so the final Drain sees every byte ffmpeg wrote.
	if done != nil {
		<-done
	}
	// Wait reports the kill signal as an error; the exit is expected.
	_ = cmd.Wait()
	return nil
}
