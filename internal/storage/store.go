// Package storage persists finished runs: metadata for listing and the
// error history for plotting.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/mkron/eulerdg/internal/config"
	"github.com/mkron/eulerdg/internal/driver"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Dimension   int       `json:"dimension"`
	Degree      int       `json:"degree"`
	Scheme      string    `json:"scheme"`
	InitialCase int       `json:"initial_case"`
	CFL         float64   `json:"cfl"`
	FinalTime   float64   `json:"final_time"`
	Refinements int       `json:"refinements"`
	Adaptive    int       `json:"adaptive_refinements"`

	Steps   int           `json:"steps"`
	Cells   int           `json:"cells"`
	Outputs int           `json:"outputs"`
	Stable  bool          `json:"stable"`
	PerStep time.Duration `json:"per_step_ns"`
}

func (s *Store) Save(p *config.Parameters, rep driver.Report, history []driver.Sample) (string, error) {
	runID := fmt.Sprintf("%s_deg%d_case%d_%d", p.Scheme, p.Degree, p.InitialCase, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:          runID,
		Timestamp:   time.Now(),
		Dimension:   p.Dimension,
		Degree:      p.Degree,
		Scheme:      p.Scheme,
		InitialCase: p.InitialCase,
		CFL:         p.CFL,
		FinalTime:   p.FinalTime,
		Refinements: p.Refinements,
		Adaptive:    p.AdaptiveRefinements,
		Steps:       rep.Steps,
		Cells:       rep.Cells,
		Outputs:     rep.Outputs,
		Stable:      rep.Stable,
		PerStep:     rep.PerStep,
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "history.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	header := []string{"time", "error_density", "error_momentum", "error_energy", "density_magnitude"}
	if err := w.Write(header); err != nil {
		return "", err
	}
	for _, smp := range history {
		row := []string{
			strconv.FormatFloat(smp.Time, 'f', 6, 64),
			strconv.FormatFloat(smp.ErrorDensity, 'e', 8, 64),
			strconv.FormatFloat(smp.ErrorMomentum, 'e', 8, 64),
			strconv.FormatFloat(smp.ErrorEnergy, 'e', 8, 64),
			strconv.FormatFloat(smp.DensityMagnitude, 'e', 8, 64),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	return runID, nil
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}
		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadHistory reads back the error trajectory of a saved run.
func (s *Store) LoadHistory(runID string) ([]driver.Sample, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "history.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	history := make([]driver.Sample, 0, len(records))
	for i := 1; i < len(records); i++ {
		rec := records[i]
		if len(rec) < 5 {
			continue
		}
		vals := make([]float64, 5)
		ok := true
		for j := range vals {
			v, err := strconv.ParseFloat(rec[j], 64)
			if err != nil {
				ok = false
				break
			}
			vals[j] = v
		}
		if !ok {
			continue
		}
		history = append(history, driver.Sample{
			Time:             vals[0],
			ErrorDensity:     vals[1],
			ErrorMomentum:    vals[2],
			ErrorEnergy:      vals[3],
			DensityMagnitude: vals[4],
		})
	}
	return history, nil
}
