package bitfield

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type sample struct {
	A uint8 `bitfield:",4"`
	B uint8 `bitfield:",4"`
	C bool  `bitfield:",1"`
}

func TestPackUnpackRoundTrips(t *testing.T) {
	in := sample{A: 0xA, B: 0x5, C: true}
	packed, err := Pack(&in, nil)
	require.NoError(t, err)

	var out sample
	require.NoError(t, Unpack(packed, &out))
	require.Equal(t, in, out)
}

func TestPackRejectsOversizedField(t *testing.T) {
	_, err := Pack(&sample{A: 0xFF}, nil)
	require.Error(t, err)
}

func TestPackIgnoresUntaggedFields(t *testing.T) {
	type mixed struct {
		Tagged   uint8 `bitfield:",4"`
		Untagged uint8
	}
	packed, err := Pack(&mixed{Tagged: 0x3, Untagged: 0xFF}, nil)
	require.NoError(t, err)
	require.EqualValues(t, 0x3, packed)
}

func TestPackEnforcesNumBitsBudget(t *testing.T) {
	type wide struct {
		A uint8 `bitfield:",4"`
		B uint8 `bitfield:",4"`
	}
	_, err := Pack(&wide{A: 1, B: 1}, &Config{NumBits: 4})
	require.Error(t, err)
}
