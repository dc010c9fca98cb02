package sqlclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tuannm99/novacol/internal/sql/executor"
	"github.com/tuannm99/novacol/server/novacolwire"
)

var (
	ErrNilClient  = errors.New("sqlclient: nil client")
	ErrIDMismatch = errors.New("sqlclient: response id mismatch")
)

// Client is a synchronous client. Exec calls may be made concurrently; they
// serialize on the connection.
type Client struct {
	conn net.Conn
	mu   sync.Mutex
	id   atomic.Uint64

	// Per-request read/write timeout (0 = none).
	rwTimeout time.Duration
}

func Dial(addr string, timeout time.Duration) (*Client, error) {
	return DialContext(context.Background(), addr, timeout)
}

func DialContext(ctx context.Context, addr string, timeout time.Duration) (*Client, error) {
	d := net.Dialer{Timeout: timeout}
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Client{conn: c}, nil
}

// SetRWTimeout sets a per-Exec read/write deadline.
func (c *Client) SetRWTimeout(d time.Duration) {
	if c == nil {
		return
	}
	c.rwTimeout = d
}

func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// ExecSQL lets a Client stand in for a local executor.
func (c *Client) ExecSQL(sql string) (*executor.Result, error) {
	return c.ExecContext(context.Background(), sql)
}

func (c *Client) ExecContext(ctx context.Context, sql string) (*executor.Result, error) {
	if c == nil || c.conn == nil {
		return nil, ErrNilClient
	}

	reqID := c.id.Add(1)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.applyDeadline(ctx); err != nil {
		return nil, err
	}
	// clear the deadline so an idle connection does not expire
	defer func() { _ = c.conn.SetDeadline(time.Time{}) }()

	if err := novacolwire.WriteFrame(c.conn, novacolwire.ExecuteRequest{ID: reqID, SQL: sql}); err != nil {
		return nil, err
	}

	var resp novacolwire.ExecuteResponse
	if err := novacolwire.ReadFrame(c.conn, &resp); err != nil {
		return nil, err
	}
	if resp.ID != reqID {
		return nil, fmt.Errorf("%w: got=%d want=%d", ErrIDMismatch, resp.ID, reqID)
	}
	if resp.Error != "" {
		return nil, errors.New(resp.Error)
	}
	if resp.Result == nil {
		return &executor.Result{}, nil
	}
	return resp.Result, nil
}

func (c *Client) applyDeadline(ctx context.Context) error {
	if dl, ok := ctx.Deadline(); ok {
		return c.conn.SetDeadline(dl)
	}
	if c.rwTimeout > 0 {
		return c.conn.SetDeadline(time.Now().Add(c.rwTimeout))
	}
	return nil
}
