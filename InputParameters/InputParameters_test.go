package InputParameters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	data := []byte(`
Title: "Radial Dam Break"
CellCountX: 100
CellCountY: 80
BlockCountX: 2
BlockCountY: 2
DomainSizeX: 1000
DomainSizeY: 800
SimulationDuration: 15
CheckpointCount: 20
Scenario: RadialDamBreak
OutputPrefix: out/radial
Boundaries:
  left: wall
  right: outflow
ParallelDegree: 8
`)
	ip := &InputParametersSWE{}
	require.NoError(t, ip.Parse(data))
	assert.Equal(t, "Radial Dam Break", ip.Title)
	assert.Equal(t, 100, ip.CellCountX)
	assert.Equal(t, 80, ip.CellCountY)
	assert.Equal(t, 2, ip.BlockCountX)
	assert.Equal(t, float64(800), ip.DomainSizeY)
	assert.Equal(t, 15.0, ip.SimulationDuration)
	assert.Equal(t, 20, ip.CheckpointCount)
	assert.Equal(t, "RadialDamBreak", ip.Scenario)
	assert.Equal(t, "out/radial", ip.OutputPrefix)
	assert.Equal(t, "wall", ip.Boundaries["left"])
	assert.Equal(t, "outflow", ip.Boundaries["right"])
	assert.Equal(t, 8, ip.ParallelDegree)

	// Unset fields stay at their zero values for the caller to validate
	assert.Equal(t, float64(0), ip.OriginX)
}

func TestParseRejectsGarbage(t *testing.T) {
	ip := &InputParametersSWE{}
	assert.Error(t, ip.Parse([]byte("CellCountX: [not, an, int]")))
}
