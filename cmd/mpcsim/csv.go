package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/alexha11/tunnel-mpc/internal/model"
)

// writeRecordsCSV mirrors the teacher's ledger-CSV shape: one row per
// (pump, step) decision, with the simulation-level fields repeated.
func writeRecordsCSV(path string, records []model.SimulationRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"step_index", "request_id", "wall_time", "mode", "l1_m", "pump_id", "is_on",
		"frequency_hz", "flow_m3s", "power_kw", "violations", "objective_total", "emergency",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i, r := range records {
		l1 := 0.0
		if len(r.L1Trajectory) > 0 {
			l1 = r.L1Trajectory[0]
		}
		if len(r.Schedule) == 0 {
			if err := w.Write([]string{
				fmt.Sprint(i), r.RequestID, r.WallTime.Format(time.RFC3339), string(r.Mode), fmt.Sprintf("%.3f", l1),
				"", "", "", "", "", fmt.Sprint(r.Violations), fmt.Sprintf("%.4f", r.Objective.Total), fmt.Sprint(r.Emergency),
			}); err != nil {
				return err
			}
			continue
		}
		for _, e := range r.Schedule {
			if e.TimeStep != 0 {
				continue
			}
			row := []string{
				fmt.Sprint(i), r.RequestID, r.WallTime.Format(time.RFC3339), string(r.Mode), fmt.Sprintf("%.3f", l1),
				e.PumpID, fmt.Sprint(e.IsOn), fmt.Sprintf("%.2f", e.FrequencyHz),
				fmt.Sprintf("%.4f", e.FlowM3S), fmt.Sprintf("%.2f", e.PowerKW),
				fmt.Sprint(r.Violations), fmt.Sprintf("%.4f", r.Objective.Total), fmt.Sprint(r.Emergency),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	return w.Error()
}
