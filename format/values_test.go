package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGasMix(t *testing.T) {
	trimix := GasMix{Oxygen: 18, Helium: 45}
	require.Equal(t, uint8(37), trimix.Nitrogen())

	require.True(t, trimix.Equal(GasMix{Oxygen: 18, Helium: 45, ID: 3}))
	require.False(t, trimix.Equal(GasMix{Oxygen: 18, Helium: 45, Usage: UsageDiluent}))
	require.False(t, trimix.Equal(GasMix{Oxygen: 21}))
}

func TestTankWaterVolume(t *testing.T) {
	metric := Tank{Units: TankMetric, Volume: 120}
	require.InDelta(t, 12.0, metric.WaterVolume(), 1e-9)

	// An AL80: 77.4 cu ft at 3000 psi works out to ~10.7 l of water
	// volume under the ideal-gas conversion.
	imperial := Tank{
		Units:        TankImperial,
		Volume:       7740,
		WorkPressure: 3000 * PsiToBar,
	}
	require.InDelta(t, 10.74, imperial.WaterVolume(), 0.05)

	require.Zero(t, Tank{Units: TankImperial}.WaterVolume())
	require.Zero(t, Tank{}.WaterVolume())
}

func TestStrings(t *testing.T) {
	require.Equal(t, "Divesoft Freedom", FamilyDivesoftFreedom.String())
	require.Equal(t, "CCR", ModeClosedCircuit.String())
	require.Equal(t, "NDL", DecoNDL.String())
	require.Equal(t, "MaxDepth", FieldMaxDepth.String())
	require.Equal(t, "Buhlmann", DecoModelBuhlmann.String())
	require.Equal(t, "Unknown", Family(0xff).String())
}
