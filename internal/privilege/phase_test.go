package privilege

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPhaseAdvancesMonotonically(t *testing.T) {
	var sm StateMachine
	require.Equal(t, PhaseOff, sm.CurrentPhase())

	require.True(t, sm.advance(PhaseGDTTSS))
	require.Equal(t, PhaseGDTTSS, sm.CurrentPhase())

	require.True(t, sm.advance(PhaseUserGates))
	require.True(t, sm.advance(PhaseSyscallMSR))
	require.True(t, sm.advance(PhaseCPL3OK))

	require.EqualValues(t, PhaseCPL3OK, sm.StatusWord()&0xff)
}

func TestPhaseRegressionIgnored(t *testing.T) {
	var sm StateMachine
	sm.advance(PhaseSyscallMSR)
	require.False(t, sm.advance(PhaseGDTTSS))
	require.Equal(t, PhaseSyscallMSR, sm.CurrentPhase())
}

func TestPhaseRepeatIgnored(t *testing.T) {
	var sm StateMachine
	require.True(t, sm.advance(PhaseGDTTSS))
	require.False(t, sm.advance(PhaseGDTTSS))
}

func TestCPL3ResultPacksIntoStatusWord(t *testing.T) {
	var sm StateMachine
	sm.advance(PhaseCPL3OK)
	sm.setCPL3Result(CPL3SkippedSafe)

	require.Equal(t, CPL3SkippedSafe, sm.CurrentCPL3Result())
	require.EqualValues(t, PhaseCPL3OK, sm.StatusWord()&0xff)
}
