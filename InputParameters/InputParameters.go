package InputParameters

import (
	"fmt"
	"sort"

	"github.com/ghodss/yaml"
)

// Parameters obtained from the YAML input file
type InputParametersSWE struct {
	Title              string            `yaml:"Title"`
	CellCountX         int               `yaml:"CellCountX"`
	CellCountY         int               `yaml:"CellCountY"`
	BlockCountX        int               `yaml:"BlockCountX"`
	BlockCountY        int               `yaml:"BlockCountY"`
	DomainSizeX        float64           `yaml:"DomainSizeX"` // meters
	DomainSizeY        float64           `yaml:"DomainSizeY"`
	OriginX            float64           `yaml:"OriginX"`
	OriginY            float64           `yaml:"OriginY"`
	SimulationDuration float64           `yaml:"SimulationDuration"` // seconds
	CheckpointCount    int               `yaml:"CheckpointCount"`
	Scenario           string            `yaml:"Scenario"` // RadialDamBreak | DamBreak | LakeAtRest
	OutputPrefix       string            `yaml:"OutputPrefix"`
	Boundaries         map[string]string `yaml:"Boundaries"` // left/right/bottom/top -> wall|outflow
	ParallelDegree     int               `yaml:"ParallelDegree"`
}

func (ip *InputParametersSWE) Parse(data []byte) error {
	return yaml.Unmarshal(data, ip)
}

func (ip *InputParametersSWE) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("[%d x %d]\t\t= Cells\n", ip.CellCountX, ip.CellCountY)
	fmt.Printf("[%d x %d]\t\t\t= Blocks\n", ip.BlockCountX, ip.BlockCountY)
	fmt.Printf("[%g x %g]\t\t= Domain size (m)\n", ip.DomainSizeX, ip.DomainSizeY)
	fmt.Printf("%8.5f\t\t= SimulationDuration\n", ip.SimulationDuration)
	fmt.Printf("[%d]\t\t\t\t= CheckpointCount\n", ip.CheckpointCount)
	fmt.Printf("[%s]\t\t= Scenario\n", ip.Scenario)
	keys := make([]string, 0, len(ip.Boundaries))
	for k := range ip.Boundaries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("Boundaries[%s] = %v\n", key, ip.Boundaries[key])
	}
}
