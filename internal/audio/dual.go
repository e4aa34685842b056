package audio

import (
	"context"
	"errors"
	"time"
)

// Dual fans one capture source out to two consumers: the continuous
// session-long clip and the windowed clip feeding the recommendation
// pipeline. Pause and resume are mirrored so both halves stay
// state-consistent.
type Dual struct {
	Session *Recorder
	Window  *Recorder

	// settle is the gap between flushing a window clip and starting the
	// next one, giving ffmpeg time to finalize the container.
	settle time.Duration
}

func NewDual(src *Source) *Dual {
	return &Dual{
		Session: src.NewRecorder("session"),
		Window:  src.NewRecorder("window"),
		settle:  200 * time.Millisecond,
	}
}

func (d *Dual) Start() error {
	if err := d.Session.Start(); err != nil {
		return err
	}
	if err := d.Window.Start(); err != nil {
		_, _ = d.Session.Stop()
		return err
	}
	return nil
}

func (d *Dual) Pause() error {
	return errors.Join(d.Session.Pause(), d.Window.Pause())
}

func (d *Dual) Resume() error {
	return errors.Join(d.Session.Resume(), d.Window.Resume())
}

// Stop finalizes both clips and returns the session-long one.
func (d *Dual) Stop() (string, error) {
	_, werr := d.Window.Stop()
	path, serr := d.Session.Stop()
	return path, errors.Join(serr, werr)
}

// FlushWindow finalizes the current window clip and immediately restarts a
// fresh one for the next window, returning the flushed clip's path.
func (d *Dual) FlushWindow(ctx context.Context) (string, error) {
	path, err := d.Window.Stop()
	if err != nil {
		return "", err
	}

	select {
	case <-time.After(d.settle):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if err := d.Window.Start(); err != nil {
		return "", err
	}
	return path, nil
}
