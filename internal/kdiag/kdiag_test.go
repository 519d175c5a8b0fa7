package kdiag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type bufSink struct {
	strings.Builder
}

func (b *bufSink) WriteString(s string) { b.Builder.WriteString(s) }

func TestPutsAppendsCRLF(t *testing.T) {
	var b bufSink
	SetSink(&b)
	Puts("hello")
	require.Equal(t, "hello\r\n", b.String())
}

func TestPutHex64ZeroPads(t *testing.T) {
	var b bufSink
	SetSink(&b)
	PutHex64(0xBEEF)
	require.Equal(t, "000000000000beef", b.String())
}

func TestPutHex32ZeroPads(t *testing.T) {
	var b bufSink
	SetSink(&b)
	PutHex32(0xCAFE)
	require.Equal(t, "0000cafe", b.String())
}

func TestPutUintZero(t *testing.T) {
	var b bufSink
	SetSink(&b)
	PutUint(0)
	require.Equal(t, "0", b.String())
}

func TestPutUintDecimal(t *testing.T) {
	var b bufSink
	SetSink(&b)
	PutUint(1234567890)
	require.Equal(t, "1234567890", b.String())
}

func TestWriteNoopsBeforeSinkSet(t *testing.T) {
	sink.Store(nil)
	require.NotPanics(t, func() { Puts("no sink yet") })
}
