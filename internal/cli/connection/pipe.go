package connection

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/yndnr/kvs-go/pkg/wire"
)

// DefaultPipeDir holds the client FIFOs unless configured otherwise.
const DefaultPipeDir = "/tmp"

var (
	// ErrRejected is returned by Connect when the server is full.
	ErrRejected = errors.New("connection: server rejected the connection")

	// ErrNotConnected is returned by requests before Connect.
	ErrNotConnected = errors.New("connection: not connected")
)

// Config configures a pipe client.
type Config struct {
	// ID makes the client's FIFO names unique.
	ID string
	// RegisterPath is the server's registration FIFO.
	RegisterPath string
	// PipeDir holds the client FIFOs.
	PipeDir string
	// Opener opens channels; nil creates and opens real FIFOs.
	Opener wire.Opener
}

// PipeClient is one client session over named pipes.
type PipeClient struct {
	cfg    Config
	paths  wire.ConnectRequest
	opener wire.Opener
	fifos  bool

	mu    sync.Mutex
	req   io.WriteCloser
	resp  io.ReadCloser
	notif io.ReadCloser
}

// NewPipeClient creates a client; it does not touch the file system.
func NewPipeClient(cfg Config) *PipeClient {
	if cfg.PipeDir == "" {
		cfg.PipeDir = DefaultPipeDir
	}
	c := &PipeClient{
		cfg: cfg,
		paths: wire.ConnectRequest{
			RequestPath:  filepath.Join(cfg.PipeDir, "req"+cfg.ID),
			ResponsePath: filepath.Join(cfg.PipeDir, "resp"+cfg.ID),
			NotifyPath:   filepath.Join(cfg.PipeDir, "notif"+cfg.ID),
		},
		opener: cfg.Opener,
	}
	if c.opener == nil {
		c.opener = wire.FIFOOpener{}
		c.fifos = true
	}
	return c
}

// Paths returns the client's channel paths.
func (c *PipeClient) Paths() wire.ConnectRequest {
	return c.paths
}

// Connect creates the client FIFOs, registers with the server and opens
// the request, response and notification channels in that order.
func (c *PipeClient) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fifos {
		for _, p := range []string{c.paths.RequestPath, c.paths.ResponsePath, c.paths.NotifyPath} {
			if err := wire.MakeFIFO(p); err != nil {
				c.removeFIFOs()
				return err
			}
		}
	}

	reg, err := c.opener.OpenWrite(c.cfg.RegisterPath)
	if err != nil {
		c.removeFIFOs()
		return fmt.Errorf("open registration pipe: %w", err)
	}
	_, err = io.WriteString(reg, c.paths.Encode())
	reg.Close()
	if err != nil {
		c.removeFIFOs()
		return fmt.Errorf("register: %w", err)
	}

	if err := c.open(); err != nil {
		c.closeLocked()
		return err
	}

	status, err := wire.ReadStatus(c.resp)
	if err != nil {
		c.closeLocked()
		return fmt.Errorf("read handshake: %w", err)
	}
	if status != wire.StatusOK {
		c.closeLocked()
		return ErrRejected
	}
	return nil
}

func (c *PipeClient) open() error {
	var err error
	if c.req, err = c.opener.OpenWrite(c.paths.RequestPath); err != nil {
		return fmt.Errorf("open request pipe: %w", err)
	}
	if c.resp, err = c.opener.OpenRead(c.paths.ResponsePath); err != nil {
		return fmt.Errorf("open response pipe: %w", err)
	}
	if c.notif, err = c.opener.OpenRead(c.paths.NotifyPath); err != nil {
		return fmt.Errorf("open notification pipe: %w", err)
	}
	return nil
}

// Subscribe asks for notifications on key and returns the status byte.
func (c *PipeClient) Subscribe(key string) (byte, error) {
	return c.do(wire.Request{Op: wire.OpSubscribe, Key: key})
}

// Unsubscribe cancels notifications on key and returns the status byte.
func (c *PipeClient) Unsubscribe(key string) (byte, error) {
	return c.do(wire.Request{Op: wire.OpUnsubscribe, Key: key})
}

// Disconnect ends the session, closes the channels and removes the
// client FIFOs.
func (c *PipeClient) Disconnect() (byte, error) {
	status, err := c.do(wire.Request{Op: wire.OpDisconnect})
	if closeErr := c.Close(); err == nil {
		err = closeErr
	}
	return status, err
}

func (c *PipeClient) do(req wire.Request) (byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.req == nil {
		return 0, ErrNotConnected
	}
	if _, err := io.WriteString(c.req, req.Encode()); err != nil {
		return 0, fmt.Errorf("send %s: %w", wire.OpName(req.Op), err)
	}
	status, err := wire.ReadStatus(c.resp)
	if err != nil {
		return 0, fmt.Errorf("read %s response: %w", wire.OpName(req.Op), err)
	}
	return status, nil
}

// Notifications returns the notification channel, or nil before Connect.
func (c *PipeClient) Notifications() io.Reader {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.notif == nil {
		return nil
	}
	return c.notif
}

// Close closes the channels and removes the client FIFOs. It is safe to
// call more than once.
func (c *PipeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *PipeClient) closeLocked() error {
	var errs []error
	if c.req != nil {
		errs = append(errs, c.req.Close())
		c.req = nil
	}
	if c.resp != nil {
		errs = append(errs, c.resp.Close())
		c.resp = nil
	}
	if c.notif != nil {
		errs = append(errs, c.notif.Close())
		c.notif = nil
	}
	c.removeFIFOs()
	return errors.Join(errs...)
}

func (c *PipeClient) removeFIFOs() {
	if !c.fifos {
		return
	}
	for _, p := range []string{c.paths.RequestPath, c.paths.ResponsePath, c.paths.NotifyPath} {
		_ = os.Remove(p)
	}
}
