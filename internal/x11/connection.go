package x11

import (
	"errors"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"
)

// ErrBadWindow is returned when the X server no longer knows a window.
var ErrBadWindow = errors.New("x11: bad window")

// Connection manages the X11 connection and core X resources
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window

	loopOnce sync.Once

	supportedOnce sync.Once
	supported     []string
}

// NewConnection establishes a connection to the X11 server.
func NewConnection() (*Connection, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, err
	}

	return &Connection{
		XUtil: xu,
		Root:  xu.RootWin(),
	}, nil
}

// StartEventLoop runs the X11 event loop in the background. Safe to call
// more than once; only the first call starts the loop.
func (c *Connection) StartEventLoop() {
	c.loopOnce.Do(func() {
		go xevent.Main(c.XUtil)
	})
}

// StopEventLoop asks the running event loop to return.
func (c *Connection) StopEventLoop() {
	xevent.Quit(c.XUtil)
}

// Close cleanly disconnects from the X11 server
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}

// badWindow maps X protocol errors for vanished windows to ErrBadWindow.
func badWindow(err error) error {
	switch err.(type) {
	case xproto.WindowError, *xproto.WindowError, xproto.DrawableError, *xproto.DrawableError:
		return ErrBadWindow
	}
	return err
}
