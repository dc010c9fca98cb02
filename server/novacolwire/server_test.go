package novacolwire_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novacol/internal/engine"
	"github.com/tuannm99/novacol/internal/loader"
	"github.com/tuannm99/novacol/internal/pivot"
	"github.com/tuannm99/novacol/internal/sql/executor"
	"github.com/tuannm99/novacol/server/novacolwire"
	"github.com/tuannm99/novacol/sqlclient"
)

func TestFrame_RoundTripKeepsIntegers(t *testing.T) {
	var buf bytes.Buffer
	in := novacolwire.ExecuteResponse{
		ID: 7,
		Result: &executor.Result{
			Columns:      []string{"sex", "sum_age"},
			Rows:         [][]any{{"Male", int64(9007199254740993)}},
			AffectedRows: 1,
		},
	}
	require.NoError(t, novacolwire.WriteFrame(&buf, in))

	var out novacolwire.ExecuteResponse
	require.NoError(t, novacolwire.ReadFrame(&buf, &out))
	require.Equal(t, uint64(7), out.ID)
	require.Equal(t, json.Number("9007199254740993"), out.Result.Rows[0][1])
}

func TestFrame_Rejects(t *testing.T) {
	var hdr [4]byte
	var v novacolwire.ExecuteRequest

	require.ErrorIs(t, novacolwire.ReadFrame(bytes.NewReader(hdr[:]), &v), novacolwire.ErrEmptyFrame)

	binary.BigEndian.PutUint32(hdr[:], novacolwire.MaxFrameSize+1)
	require.ErrorIs(t, novacolwire.ReadFrame(bytes.NewReader(hdr[:]), &v), novacolwire.ErrFrameTooLarge)

	binary.BigEndian.PutUint32(hdr[:], 3)
	require.Error(t, novacolwire.ReadFrame(bytes.NewReader(append(hdr[:], "{x}"...)), &v))
}

func startServer(t *testing.T) string {
	t.Helper()

	db := engine.NewDatabase(pivot.Options{Workers: 2, MinRowsPerWorker: 1}, nil)
	t.Cleanup(func() { _ = db.Close() })
	srv := novacolwire.NewServer(executor.NewExecutor(db, loader.Options{}), nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("server did not stop")
		}
	})
	return ln.Addr().String()
}

func TestServer_SharedCatalogAcrossConnections(t *testing.T) {
	addr := startServer(t)

	a, err := sqlclient.Dial(addr, time.Second)
	require.NoError(t, err)
	defer func() { _ = a.Close() }()
	a.SetRWTimeout(5 * time.Second)

	b, err := sqlclient.Dial(addr, time.Second)
	require.NoError(t, err)
	defer func() { _ = b.Close() }()

	for _, sql := range []string{
		"CREATE TABLE staff (sex TEXT, age INT);",
		"INSERT INTO staff VALUES ('Male', 20);",
		"INSERT INTO staff VALUES ('Female', 21);",
		"INSERT INTO staff VALUES ('Male', 38);",
	} {
		_, err := a.ExecSQL(sql)
		require.NoError(t, err, sql)
	}

	res, err := b.ExecSQL("PIVOT staff BY sex ON age USING MAX;")
	require.NoError(t, err)
	require.Equal(t, []string{"sex", "max_age"}, res.Columns)
	require.Equal(t, [][]any{
		{"Male", json.Number("38")},
		{"Female", json.Number("21")},
	}, res.Rows)

	_, err = b.ExecSQL("PIVOT staff BY age ON sex USING SUM;")
	require.Error(t, err)
	require.Contains(t, err.Error(), "group-by")

	// the connection stays usable after an error
	res, err = b.ExecSQL("SHOW TABLES;")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
}

// flakyListener fails Accept a fixed number of times, then reports closed.
type flakyListener struct {
	net.Listener
	failures int32
	calls    atomic.Int32
}

func (l *flakyListener) Accept() (net.Conn, error) {
	if l.calls.Add(1) <= l.failures {
		return nil, errors.New("accept: too many open files")
	}
	return nil, net.ErrClosed
}

func TestServer_AcceptErrorsBackOff(t *testing.T) {
	inner, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = inner.Close() }()

	ln := &flakyListener{Listener: inner, failures: 3}
	srv := novacolwire.NewServer(nil, nil)

	start := time.Now()
	require.NoError(t, srv.Serve(context.Background(), ln))
	require.Equal(t, int32(4), ln.calls.Load())
	// 5ms + 10ms + 20ms between retries
	require.GreaterOrEqual(t, time.Since(start), 35*time.Millisecond)
}

func TestServer_ListenerClosedExternally(t *testing.T) {
	db := engine.NewDatabase(pivot.Options{Workers: 1}, nil)
	t.Cleanup(func() { _ = db.Close() })
	srv := novacolwire.NewServer(executor.NewExecutor(db, loader.Options{}), nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background(), ln) }()

	c, err := sqlclient.Dial(ln.Addr().String(), time.Second)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()
	c.SetRWTimeout(5 * time.Second)
	_, err = c.ExecSQL("SHOW TABLES;")
	require.NoError(t, err)

	// an open connection must not keep Serve from returning
	require.NoError(t, ln.Close())
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	_, err = c.ExecSQL("SHOW TABLES;")
	require.Error(t, err)
}

func TestClient_Nil(t *testing.T) {
	var c *sqlclient.Client
	_, err := c.ExecSQL("SHOW TABLES;")
	require.ErrorIs(t, err, sqlclient.ErrNilClient)
	require.NoError(t, c.Close())
}
