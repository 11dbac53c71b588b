package InputParameters

import (
	"fmt"

	"github.com/ghodss/yaml"
)

// Parameters obtained from the YAML input file
type SimulationParameters struct {
	Title               string    `yaml:"Title"`
	Formulation         string    `yaml:"Formulation"`
	YoungsModulus       float64   `yaml:"YoungsModulus"`
	PoissonRatio        float64   `yaml:"PoissonRatio"`
	SpringStiffness     float64   `yaml:"SpringStiffness"`
	Density             float64   `yaml:"Density"`
	BodyForce           []float64 `yaml:"BodyForce"`
	DT                  float64   `yaml:"DT"`
	FinalTime           float64   `yaml:"FinalTime"`
	GridN               int       `yaml:"GridN"`
	MaxNewtonIterations int       `yaml:"MaxNewtonIterations"`
	NewtonTolerance     float64   `yaml:"NewtonTolerance"`
	HasCollision        bool      `yaml:"HasCollision"`
	BarrierStiffness    float64   `yaml:"BarrierStiffness"`
	DHatSquared         float64   `yaml:"DHatSquared"`
}

func (sp *SimulationParameters) Parse(data []byte) error {
	if err := yaml.Unmarshal(data, sp); err != nil {
		return err
	}
	if sp.Formulation == "" {
		sp.Formulation = "LinearElasticity"
	}
	if sp.GridN <= 0 {
		sp.GridN = 8
	}
	if sp.MaxNewtonIterations <= 0 {
		sp.MaxNewtonIterations = 100
	}
	if sp.NewtonTolerance <= 0 {
		sp.NewtonTolerance = 1.e-10
	}
	return nil
}

func (sp *SimulationParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", sp.Title)
	fmt.Printf("[%s]\t= Formulation\n", sp.Formulation)
	fmt.Printf("%8.5f\t\t= DT\n", sp.DT)
	fmt.Printf("%8.5f\t\t= FinalTime\n", sp.FinalTime)
	fmt.Printf("[%d]\t\t\t\t= GridN\n", sp.GridN)
	fmt.Printf("%8.5g\t\t= YoungsModulus\n", sp.YoungsModulus)
	fmt.Printf("%8.5f\t\t= PoissonRatio\n", sp.PoissonRatio)
	fmt.Printf("%8.5g\t\t= SpringStiffness\n", sp.SpringStiffness)
	fmt.Printf("%8.5f\t\t= Density\n", sp.Density)
	fmt.Printf("[%v]\t\t\t= HasCollision\n", sp.HasCollision)
	if sp.HasCollision {
		fmt.Printf("%8.5g\t\t= BarrierStiffness\n", sp.BarrierStiffness)
		fmt.Printf("%8.5g\t\t= DHatSquared\n", sp.DHatSquared)
	}
}
