package conn

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lucas-de-lima/rinha-reactor-2025/internal/frame"
)

// fakeStream is an in-memory Stream: reads come from a fixed buffer,
// writes accumulate into a bytes.Buffer.
type fakeStream struct {
	readData []byte
	readPos  int
	written  bytes.Buffer
	closed   bool
}

func (f *fakeStream) Read(p []byte) (int, error) {
	if f.readPos >= len(f.readData) {
		return 0, nil
	}
	n := copy(p, f.readData[f.readPos:])
	f.readPos += n
	return n, nil
}

func (f *fakeStream) Write(p []byte) (int, error) {
	return f.written.Write(p)
}

func (f *fakeStream) Close() error {
	f.closed = true
	return nil
}

func TestHandleHTTPFullLifecycle(t *testing.T) {
	s := &fakeStream{readData: []byte("GET /unknown HTTP/1.1\r\n\r\n")}
	c := New(350)
	c.Bind(s)

	status, err := c.HandleHTTP(true)
	require.NoError(t, err)
	require.Equal(t, StatusWritable, status)

	c.OutBuffer = append(c.OutBuffer, []byte("HTTP/1.1 404 Not Found\r\n\r\n")...)

	status, err = c.HandleHTTP(false)
	require.NoError(t, err)
	require.True(t, c.Done())
	require.Equal(t, StatusDone, status)
	require.LessOrEqual(t, c.written, len(c.OutBuffer))
}

func TestHandleHTTPEmptyOutBufferIsImmediatelyDone(t *testing.T) {
	s := &fakeStream{readData: []byte("x")}
	c := New(350)
	c.Bind(s)
	_, err := c.HandleHTTP(true)
	require.NoError(t, err)

	status, err := c.HandleHTTP(false)
	require.NoError(t, err)
	require.Equal(t, StatusDone, status)
	require.True(t, c.Done())
}

func TestHandleHTTPRecordsBytesActuallyRead(t *testing.T) {
	s := &fakeStream{readData: []byte("GET /x HTTP/1.1\r\n\r\n")}
	c := New(350)
	c.Bind(s)

	_, err := c.HandleHTTP(true)
	require.NoError(t, err)
	require.Equal(t, len(s.readData), c.Read)
}

func TestHandleHTTPZeroReadClosesConnection(t *testing.T) {
	s := &fakeStream{readData: nil}
	c := New(350)
	c.Bind(s)

	status, err := c.HandleHTTP(true)
	require.NoError(t, err)
	require.Equal(t, StatusClose, status)
}

func TestHandleHTTPIllegalStateOnEmptySlot(t *testing.T) {
	c := New(350)
	_, err := c.HandleHTTP(true)
	require.ErrorIs(t, err, ErrIllegalState)
}

func TestResetClearsSlot(t *testing.T) {
	s := &fakeStream{readData: []byte("hi")}
	c := New(350)
	c.Bind(s)
	c.OutBuffer = append(c.OutBuffer, 'a', 'b')
	c.RoundTrip = 3

	c.Reset()

	require.Equal(t, StatusEmpty, c.Status)
	require.Nil(t, c.Stream)
	require.Zero(t, len(c.OutBuffer))
	require.Zero(t, c.RoundTrip)
}

func TestReadMessagesDecodesAndTruncatesOnError(t *testing.T) {
	good := frame.Encode(frame.Summary(1, 2))
	bad := make([]byte, frame.Size)
	bad[0] = 'X'
	payload := append(append([]byte{}, good[:]...), bad...)

	s := &fakeStream{readData: payload}
	c := New(540)
	c.Stream = s
	c.Status = StatusReadable

	msgs, n, err := c.ReadMessages()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, frame.KindSummary, msgs[0].Kind)
	require.Equal(t, len(payload), n)
	require.Less(t, len(msgs), n/frame.Size)
}

func TestReadMessagesEOF(t *testing.T) {
	s := &fakeStream{}
	c := New(540)
	c.Stream = s
	c.Status = StatusReadable

	_, _, err := c.ReadMessages()
	require.ErrorIs(t, err, io.EOF)
}

func TestReadMessagesClosedConnection(t *testing.T) {
	c := New(540)
	_, _, err := c.ReadMessages()
	require.ErrorIs(t, err, ErrClosedConnection)
}

func TestWriteMessageAppendsAndWrites(t *testing.T) {
	s := &fakeStream{}
	c := New(540)
	c.Bind(s)

	err := c.WriteMessage(frame.Ack())
	require.NoError(t, err)
	require.Equal(t, StatusWritable, c.Status)
	require.Equal(t, frame.Size, s.written.Len())
}

func TestWriteMessageOnClosedConnection(t *testing.T) {
	c := New(540)
	err := c.WriteMessage(frame.Ack())
	require.ErrorIs(t, err, ErrClosedConnection)
}

var errBoom = errors.New("boom")

type erroringStream struct{}

func (erroringStream) Read([]byte) (int, error)  { return 0, errBoom }
func (erroringStream) Write([]byte) (int, error) { return 0, errBoom }
func (erroringStream) Close() error              { return nil }

func TestHandleHTTPPropagatesReadError(t *testing.T) {
	c := New(350)
	c.Bind(erroringStream{})
	_, err := c.HandleHTTP(true)
	require.ErrorIs(t, err, errBoom)
}
