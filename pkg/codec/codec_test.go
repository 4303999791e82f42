package codec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecoder_SnapshotRoundTrip(t *testing.T) {
	ts := time.UnixMilli(1_700_000_000_123)
	modules := map[int][]int{
		1: {0, 0, 0, 0, 0, 0, 0, 0},
		3: {0, 255, 0, 0x7E, 0x7D, 0x11, 0, 0},
	}
	frame, err := EncodeSnapshot(9, ts, modules)
	require.NoError(t, err)

	frames := NewDecoder().Feed(frame)
	require.Len(t, frames, 1)

	snap, ok := frames[0].(SnapshotFrame)
	require.True(t, ok, "got %T", frames[0])
	assert.Equal(t, uint8(9), snap.Seq)
	assert.True(t, ts.Equal(snap.Timestamp))
	assert.Equal(t, modules, snap.Modules)
}

func TestDecoder_PartialReads(t *testing.T) {
	a := EncodeAck(1)
	e := EncodeError(2, CodeUnknownOutput)
	stream := append(append([]byte{}, a...), e...)

	d := NewDecoder()
	var frames []Frame
	for _, b := range stream {
		frames = append(frames, d.Feed([]byte{b})...)
	}

	require.Len(t, frames, 2)
	assert.Equal(t, AckFrame{Seq: 1}, frames[0])
	assert.Equal(t, ErrorFrame{Seq: 2, Code: CodeUnknownOutput}, frames[1])
	assert.Zero(t, d.Buffered())
}

func TestDecoder_HoldsIncompleteFrame(t *testing.T) {
	a := EncodeAck(4)
	d := NewDecoder()

	assert.Empty(t, d.Feed(a[:len(a)-1]))
	assert.NotZero(t, d.Buffered())

	frames := d.Feed(a[len(a)-1:])
	require.Len(t, frames, 1)
	assert.Equal(t, AckFrame{Seq: 4}, frames[0])
}

func TestDecoder_CRCMismatchIsMalformed(t *testing.T) {
	a := EncodeAck(7)
	a[0] ^= 0x01

	frames := NewDecoder().Feed(a)
	require.Len(t, frames, 1)
	m, ok := frames[0].(Malformed)
	require.True(t, ok)
	assert.Equal(t, "crc mismatch", m.Reason)
}

func TestDecoder_RecoversAfterGarbage(t *testing.T) {
	stream := []byte{0x00, 0x01, 0x02, flagByte}
	stream = append(stream, EncodeAck(3)...)

	frames := NewDecoder().Feed(stream)
	require.Len(t, frames, 2)
	assert.IsType(t, Malformed{}, frames[0])
	assert.Equal(t, AckFrame{Seq: 3}, frames[1])
}

func TestDecoder_OversizeFrame(t *testing.T) {
	junk := make([]byte, 3*MaxFrameLen)
	for i := range junk {
		junk[i] = 0x42
	}
	junk = append(junk, flagByte)
	junk = append(junk, EncodeAck(5)...)

	frames := NewDecoder().Feed(junk)
	require.Len(t, frames, 2)
	m, ok := frames[0].(Malformed)
	require.True(t, ok)
	assert.Equal(t, "frame exceeds maximum length", m.Reason)
	assert.Equal(t, AckFrame{Seq: 5}, frames[1])
}

func TestDecoder_IdleFlagsAndCancel(t *testing.T) {
	stream := []byte{flagByte, flagByte, 0x42, 0x43, cancelByte}
	stream = append(stream, EncodeAck(6)...)

	frames := NewDecoder().Feed(stream)
	require.Len(t, frames, 1)
	assert.Equal(t, AckFrame{Seq: 6}, frames[0])
}

func TestDecoder_TruncatedSnapshot(t *testing.T) {
	// count says two modules, body carries one
	raw := []byte{byte(KindSnapshot), 1, 0, 0, 0, 0, 0, 0, 0, 0, 2, 1, 1, 0}
	frames := NewDecoder().Feed(wrap(raw))
	require.Len(t, frames, 1)
	assert.IsType(t, Malformed{}, frames[0])
}

func TestDecoder_InboundRejectsRequests(t *testing.T) {
	frames := NewDecoder().Feed(EncodePing(1))
	require.Len(t, frames, 1)
	assert.IsType(t, Malformed{}, frames[0])
}

func TestRequestDecoder(t *testing.T) {
	auth, err := EncodeAuth(1, "admin", "s3cr\x7Et")
	require.NoError(t, err)
	set, err := EncodeSetOutput(2, 3, 2, 255)
	require.NoError(t, err)

	stream := append(append(append([]byte{}, auth...), set...), EncodeSnapshotRequest(3)...)
	frames := NewRequestDecoder().Feed(stream)
	require.Len(t, frames, 3)

	r, ok := AsRequest(frames[0])
	require.True(t, ok)
	assert.Equal(t, KindAuth, r.Kind)
	assert.Equal(t, "admin", r.Username)
	assert.Equal(t, "s3cr\x7Et", r.Password)

	r, ok = AsRequest(frames[1])
	require.True(t, ok)
	assert.Equal(t, Request{Kind: KindSetOutput, Seq: 2, Module: 3, Output: 2, Value: 255}, r)

	r, ok = AsRequest(frames[2])
	require.True(t, ok)
	assert.Equal(t, KindSnapshotRequest, r.Kind)
}

func TestEncodeSetOutput_Bounds(t *testing.T) {
	_, err := EncodeSetOutput(1, 0, 1, 1)
	assert.Error(t, err)
	_, err = EncodeSetOutput(1, 1, 1, 256)
	assert.Error(t, err)
	_, err = EncodeSetOutput(1, 1, 1, -1)
	assert.Error(t, err)
}
