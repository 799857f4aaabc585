package apiclient

import (
	"context"
	"net/url"
	"strings"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/contadorvs/scorerooms/pkg/roomdto"
)

// UpdateFunc receives each frame from the live stream.
type UpdateFunc func(roomdto.WSUpdate)

// Watcher maintains a websocket subscription against the daemon, redialing
// with backoff when the connection drops. Updates are full snapshots, so a
// reconnect never misses state, only intermediate frames.
type Watcher struct {
	wsURL       string
	maxAttempts int
}

func NewWatcher(wsURL string) *Watcher {
	return &Watcher{wsURL: strings.TrimSpace(wsURL), maxAttempts: 5}
}

// WatchRoom streams one room's snapshots until ctx is cancelled.
func (w *Watcher) WatchRoom(ctx context.Context, code string, fn UpdateFunc) error {
	return w.run(ctx, w.wsURL+"?code="+url.QueryEscape(code), fn)
}

// WatchMine streams the device's room listing until ctx is cancelled.
func (w *Watcher) WatchMine(ctx context.Context, deviceID string, fn UpdateFunc) error {
	return w.run(ctx, w.wsURL+"?device="+url.QueryEscape(deviceID), fn)
}

func (w *Watcher) run(ctx context.Context, target string, fn UpdateFunc) error {
	attempt := 0
	for {
		conn, err := w.dial(ctx, target)
		if err != nil {
			attempt++
			if attempt > w.maxAttempts {
				return err
			}
			if serr := sleepWithContext(ctx, backoffDuration(attempt)); serr != nil {
				return serr
			}
			continue
		}
		attempt = 0

		err = w.readLoop(ctx, conn, fn)
		_ = conn.Close(websocket.StatusGoingAway, "reconnect")
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// connection dropped; fall through to redial
		attempt++
		if attempt > w.maxAttempts {
			return err
		}
		if serr := sleepWithContext(ctx, backoffDuration(attempt)); serr != nil {
			return serr
		}
	}
}

func (w *Watcher) dial(ctx context.Context, target string) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, target, nil)
	return conn, err
}

func (w *Watcher) readLoop(ctx context.Context, conn *websocket.Conn, fn UpdateFunc) error {
	for {
		var u roomdto.WSUpdate
		if err := wsjson.Read(ctx, conn, &u); err != nil {
			return err
		}
		fn(u)
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 200 * time.Millisecond
}
