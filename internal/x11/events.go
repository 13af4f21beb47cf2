package x11

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"
	"github.com/rs/zerolog/log"
)

// ClientWatcher turns _NET_CLIENT_LIST changes on the root window into
// per-window added/removed callbacks.
type ClientWatcher struct {
	conn      *Connection
	list      func() ([]xproto.Window, error)
	atom      xproto.Atom
	onAdded   func(xproto.Window)
	onRemoved func(xproto.Window)

	mu     sync.Mutex
	known  map[xproto.Window]struct{}
	closed bool
}

// WatchClients starts delivering client list changes. Windows already in the
// client list are recorded as known and not reported as added.
func (c *Connection) WatchClients(onAdded, onRemoved func(xproto.Window)) (*ClientWatcher, error) {
	atom, err := xprop.Atm(c.XUtil, "_NET_CLIENT_LIST")
	if err != nil {
		return nil, fmt.Errorf("failed to intern _NET_CLIENT_LIST: %w", err)
	}

	if err := xwindow.New(c.XUtil, c.Root).Listen(xproto.EventMaskPropertyChange); err != nil {
		return nil, fmt.Errorf("failed to select root property events: %w", err)
	}

	clients, err := c.ClientList()
	if err != nil {
		return nil, fmt.Errorf("failed to read _NET_CLIENT_LIST (is an EWMH window manager running?): %w", err)
	}

	w := &ClientWatcher{
		conn:      c,
		list:      c.ClientList,
		atom:      atom,
		onAdded:   onAdded,
		onRemoved: onRemoved,
		known:     make(map[xproto.Window]struct{}, len(clients)),
	}
	for _, win := range clients {
		w.known[win] = struct{}{}
	}

	xevent.PropertyNotifyFun(func(_ *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
		if ev.Atom != w.atom {
			return
		}
		w.refresh()
	}).Connect(c.XUtil, c.Root)

	c.StartEventLoop()
	return w, nil
}

func (w *ClientWatcher) refresh() {
	clients, err := w.list()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read _NET_CLIENT_LIST, client changes skipped")
		return
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	var added, removed []xproto.Window
	w.known, added, removed = diffClients(w.known, clients)
	w.mu.Unlock()

	for _, win := range removed {
		w.onRemoved(win)
	}
	for _, win := range added {
		w.onAdded(win)
	}
}

// diffClients compares the known set with a fresh client list. Added windows
// keep client list order; removed windows are sorted by id.
func diffClients(known map[xproto.Window]struct{}, clients []xproto.Window) (current map[xproto.Window]struct{}, added, removed []xproto.Window) {
	current = make(map[xproto.Window]struct{}, len(clients))
	for _, win := range clients {
		if _, dup := current[win]; dup {
			continue
		}
		current[win] = struct{}{}
		if _, ok := known[win]; !ok {
			added = append(added, win)
		}
	}
	for win := range known {
		if _, ok := current[win]; !ok {
			removed = append(removed, win)
		}
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
	return current, added, removed
}

// Close detaches the root window callbacks and stops the event loop.
func (w *ClientWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	xevent.Detach(w.conn.XUtil, w.conn.Root)
	w.conn.StopEventLoop()
	return nil
}

// WatchGeometry calls fn with the window's outer rectangle on every
// ConfigureNotify it receives during the next d. The returned function stops
// watching early. The event loop must already be running.
func (c *Connection) WatchGeometry(windowID xproto.Window, d time.Duration, fn func(Geometry)) (func(), error) {
	if err := xwindow.New(c.XUtil, windowID).Listen(xproto.EventMaskStructureNotify); err != nil {
		return nil, fmt.Errorf("failed to select structure events on 0x%x: %w", windowID, err)
	}

	xevent.ConfigureNotifyFun(func(_ *xgbutil.XUtil, _ xevent.ConfigureNotifyEvent) {
		geom, err := c.FrameGeometry(windowID)
		if err != nil {
			return
		}
		fn(geom)
	}).Connect(c.XUtil, windowID)

	var once sync.Once
	stop := func() {
		once.Do(func() { xevent.Detach(c.XUtil, windowID) })
	}
	time.AfterFunc(d, stop)
	return stop, nil
}
