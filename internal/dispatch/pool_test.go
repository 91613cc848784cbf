package dispatch

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lucas-de-lima/rinha-reactor-2025/internal/frame"
)

// fakeWorker is a minimal stand-in for a worker reactor's IPC
// listener: a real Unix-domain socket that records every frame it
// receives, built with net.Listen rather than the raw-syscall path so
// the test exercises dispatch.Pool against a genuinely independent
// peer.
type fakeWorker struct {
	path     string
	received chan []byte
	ln       *net.UnixListener
}

func startFakeWorker(t *testing.T, dir, name string) *fakeWorker {
	t.Helper()
	path := filepath.Join(dir, name+".sock")
	addr, err := net.ResolveUnixAddr("unix", path)
	require.NoError(t, err)
	ln, err := net.ListenUnix("unix", addr)
	require.NoError(t, err)

	w := &fakeWorker{path: path, received: make(chan []byte, 64), ln: ln}
	go func() {
		for {
			conn, err := ln.AcceptUnix()
			if err != nil {
				return
			}
			go w.drain(conn)
		}
	}()
	t.Cleanup(func() { ln.Close() })
	return w
}

func (w *fakeWorker) drain(conn *net.UnixConn) {
	buf := make([]byte, frame.Size)
	for {
		_, err := conn.Read(buf)
		if err != nil {
			return
		}
		cp := make([]byte, frame.Size)
		copy(cp, buf)
		w.received <- cp
	}
}

func testLogger(t *testing.T) *zap.Logger {
	t.Helper()
	return zap.NewNop()
}

func TestRenewDiscoversSocketFiles(t *testing.T) {
	dir := t.TempDir()
	w1 := startFakeWorker(t, dir, "worker-a")
	w2 := startFakeWorker(t, dir, "worker-b")
	_ = w1
	_ = w2

	pool := NewPool(dir, testLogger(t))
	pool.Renew()

	require.Len(t, pool.stream, 2)

	select {
	case <-w1.received:
	case <-time.After(2 * time.Second):
		t.Fatal("worker-a never received Ack handshake")
	}
	select {
	case <-w2.received:
	case <-time.After(2 * time.Second):
		t.Fatal("worker-b never received Ack handshake")
	}
}

func TestRenewIgnoresNonSocketFiles(t *testing.T) {
	dir := t.TempDir()
	startFakeWorker(t, dir, "worker-a")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o600))

	pool := NewPool(dir, testLogger(t))
	pool.Renew()

	require.Len(t, pool.stream, 1)
}

func TestSendRoundRobinsAcrossWorkers(t *testing.T) {
	dir := t.TempDir()
	w1 := startFakeWorker(t, dir, "worker-a")
	w2 := startFakeWorker(t, dir, "worker-b")

	pool := NewPool(dir, testLogger(t))
	pool.Renew()

	// drain the handshake Acks first
	<-w1.received
	<-w2.received

	for i := 0; i < 6; i++ {
		msg := frame.Payment(uint64(1000+i), [36]byte{})
		result := pool.send(msg)
		require.Equal(t, sendFull, result)
	}

	require.Eventually(t, func() bool {
		return len(w1.received) == 3 && len(w2.received) == 3
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSendWithNoWorkersIsError(t *testing.T) {
	pool := NewPool(t.TempDir(), testLogger(t))
	result := pool.send(frame.Ack())
	require.Equal(t, sendError, result)
}
