package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"railsim/pkg/render"
	"railsim/pkg/types"
)

// DryRunObserver prints each snapshot to w instead of shipping it anywhere:
// a short summary followed by the JSON line the Loki sink would push per train.
func DryRunObserver(w io.Writer) Observer {
	return func(_ context.Context, snap types.Snapshot) {
		fmt.Fprintf(w, "\n=== DRY RUN - Fleet Snapshot %d ===\n", snap.Tick)
		fmt.Fprintf(w, "Snapshot: %s\n", snap.ID)
		fmt.Fprintf(w, "Timestamp: %s\n", snap.Timestamp.UTC().Format(time.RFC3339Nano))
		fmt.Fprintf(w, "Trains: %d\n", len(snap.Trains))

		for i, t := range snap.Trains {
			flag := ""
			if t.Conflict {
				flag = " [CONFLICT]"
			}
			fmt.Fprintf(w, "  %d. %s %s (%s, %s) pos=%.2f%% speed=%.0fkm/h delay=%dmin%s\n",
				i+1, t.ID, t.Name, t.Category, t.Direction, t.Position, t.Speed, t.Delay, flag)
		}

		fmt.Fprintln(w, "\nLog lines:")
		for _, t := range snap.Trains {
			line, err := json.Marshal(TrainLogLine(snap, t))
			if err != nil {
				slog.Error("Failed to marshal dry run line", "train", t.ID, "error", err)
				continue
			}
			fmt.Fprintln(w, string(line))
		}
		fmt.Fprintln(w, "=== END DRY RUN ===")
	}
}

// TrainLogLine is the per-train record shipped to log sinks. The badge lets
// Grafana panels render the train without a lookup.
func TrainLogLine(snap types.Snapshot, t types.Train) map[string]interface{} {
	return map[string]interface{}{
		"snapshot_id":  snap.ID,
		"tick":         snap.Tick,
		"timestamp":    snap.Timestamp.UTC().Format(time.RFC3339Nano),
		"train_id":     t.ID,
		"name":         t.Name,
		"category":     t.Category,
		"status":       t.Status,
		"delay":        t.Delay,
		"position":     t.Position,
		"direction":    t.Direction,
		"priority":     t.Priority,
		"speed":        t.Speed,
		"location":     t.Location,
		"next_station": t.NextStation,
		"conflict":     t.Conflict,
		"badge":        render.Badge(t),
	}
}
