package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/voltclass/presenterd/internal/domain"
)

// runner abstracts process execution so tests never spawn ffmpeg.
type runner interface {
	Start(name string, args ...string) (process, error)
	Run(ctx context.Context, name string, args ...string) error
}

type process interface {
	Signal(sig os.Signal) error
	Wait() error
}

type execRunner struct{}

func (execRunner) Start(name string, args ...string) (process, error) {
	cmd := exec.Command(name, args...)
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &execProcess{cmd: cmd}, nil
}

func (execRunner) Run(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w\n%s", name, err, out)
	}
	return nil
}

type execProcess struct{ cmd *exec.Cmd }

func (p *execProcess) Signal(sig os.Signal) error { return p.cmd.Process.Signal(sig) }
func (p *execProcess) Wait() error                { return p.cmd.Wait() }

// Source is one microphone capture device, fanned out to any number of
// ffmpeg consumers. The browser original cloned a MediaStream per
// MediaRecorder; here every consumer is its own ffmpeg process on the
// same device.
type Source struct {
	backend string // alsa, pulse, avfoundation
	device  string
	dir     string
	run     runner
}

// NewSource probes for ffmpeg and prepares the clip directory. A missing
// ffmpeg maps to ErrMicUnavailable: the session proceeds without audio.
func NewSource(backend, device, dir string) (*Source, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("%w: ffmpeg not found", domain.ErrMicUnavailable)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("audio: clip dir: %w", err)
	}
	if backend == "" {
		backend = "alsa"
	}
	if device == "" {
		device = "default"
	}
	return &Source{backend: backend, device: device, dir: dir, run: execRunner{}}, nil
}

// NewRecorder returns an idle consumer writing clips named after prefix.
func (s *Source) NewRecorder(prefix string) *Recorder {
	return &Recorder{src: s, prefix: prefix}
}

// Recorder is one mic consumer: a restartable ffmpeg process writing a
// mono 16 kHz clip, pausable via SIGSTOP/SIGCONT.
type Recorder struct {
	src    *Source
	prefix string

	mu     sync.Mutex
	proc   process
	path   string
	paused bool
	seq    int
}

func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.proc != nil {
		return nil
	}
	r.seq++
	r.path = filepath.Join(r.src.dir, fmt.Sprintf("%s-%03d.ogg", r.prefix, r.seq))

	proc, err := r.src.run.Start("ffmpeg",
		"-f", r.src.backend,
		"-i", r.src.device,
		"-ac", "1",
		"-ar", "16000",
		"-y",
		r.path,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMicUnavailable, err)
	}
	r.proc = proc
	r.paused = false
	return nil
}

func (r *Recorder) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.proc == nil || r.paused {
		return nil
	}
	if err := r.proc.Signal(syscall.SIGSTOP); err != nil {
		return err
	}
	r.paused = true
	return nil
}

func (r *Recorder) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.proc == nil || !r.paused {
		return nil
	}
	if err := r.proc.Signal(syscall.SIGCONT); err != nil {
		return err
	}
	r.paused = false
	return nil
}

// Stop finalizes the current clip and returns its path. Stopping an idle
// recorder is a no-op: this runs inside teardown paths that cannot act on
// a second-order failure.
func (r *Recorder) Stop() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.proc == nil {
		return "", nil
	}
	if r.paused {
		_ = r.proc.Signal(syscall.SIGCONT)
	}
	// SIGINT makes ffmpeg write the container trailer before exiting
	_ = r.proc.Signal(os.Interrupt)
	_ = r.proc.Wait()

	path := r.path
	r.proc = nil
	r.paused = false
	return path, nil
}

func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.proc != nil
}
