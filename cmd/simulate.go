package cmd

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"libflow/config"
	"libflow/internal/occupancy"
	"libflow/models"
)

// NewSimulateCommand runs the seat simulation headless and prints the
// stats after every tick.
func NewSimulateCommand() *cobra.Command {
	var (
		ticks     int
		zonesFile string
		seed      uint64
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the seat occupancy simulation without the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			zones := models.DefaultZones
			if zonesFile != "" {
				loaded, err := config.LoadZones(zonesFile)
				if err != nil {
					return err
				}
				zones = loaded
			}

			src := occupancy.DefaultSource()
			if cmd.Flags().Changed("seed") {
				src = rand.New(rand.NewPCG(seed, seed))
			}

			return RunSimulation(cmd.OutOrStdout(), zones, ticks, src, asJSON)
		},
	}

	cmd.Flags().IntVar(&ticks, "ticks", 20, "number of ticks to run")
	cmd.Flags().StringVar(&zonesFile, "zones-file", "", "YAML zone layout (defaults to the built-in floor)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "seed for a reproducible run")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print one JSON stats object per tick")

	return cmd
}

// RunSimulation initializes a simulator over zones and steps it ticks
// times, writing the stats of the initial state and of every tick to w.
func RunSimulation(w io.Writer, zones models.ZoneConfig, ticks int, src occupancy.Source, asJSON bool) error {
	if ticks < 0 {
		return fmt.Errorf("ticks must not be negative, got %d", ticks)
	}

	sim := occupancy.New(zones, occupancy.WithInterval(0), occupancy.WithSource(src))
	defer sim.Stop()

	var err error
	record := func(snap models.Snapshot) {
		if err != nil {
			return
		}
		err = writeStats(w, snap, asJSON)
	}
	unsubscribe := sim.Subscribe(record)
	defer unsubscribe()

	if startErr := sim.Start(context.Background()); startErr != nil {
		return startErr
	}
	for i := 0; i < ticks && err == nil; i++ {
		if _, stepErr := sim.Step(); stepErr != nil {
			return stepErr
		}
	}
	return err
}

func writeStats(w io.Writer, snap models.Snapshot, asJSON bool) error {
	if asJSON {
		line, err := json.Marshal(map[string]any{
			"tick":  snap.Version,
			"stats": snap.Stats,
		})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(line))
		return err
	}

	free := make([]string, 0, len(snap.Stats.Zones))
	for _, z := range snap.Stats.Zones {
		free = append(free, fmt.Sprintf("%s=%d/%d", z.Zone, z.Free, z.Total))
	}
	_, err := fmt.Fprintf(w, "tick %4d  available %3d  occupied %3d  reserved %3d  occupancy %3d%%  free %s\n",
		snap.Version,
		snap.Stats.Available,
		snap.Stats.Occupied,
		snap.Stats.Reserved,
		snap.Stats.OccupancyPercent,
		strings.Join(free, " "),
	)
	return err
}
