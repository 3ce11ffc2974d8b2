package console

import (
	"context"
	"net/http"

	"aircraftconsole/internal/gateway"
	"aircraftconsole/internal/grid"
	"aircraftconsole/internal/logging"
)

const (
	MsgStockAllClear       = "No stock at a critical level. All good!"
	MsgStockWarningsFailed = "There was a problem loading stock warnings."
)

// Warnings is the dashboard's depleted-stock summary.
type Warnings struct {
	Loaded bool
	Lines  []string
	// Failed replaces the list with MsgStockWarningsFailed.
	Failed bool
}

// AllClear reports a successful load without depleted stocks.
func (w Warnings) AllClear() bool { return w.Loaded && !w.Failed && len(w.Lines) == 0 }

func (c *Console) Warnings() Warnings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.warnings
}

// loadWarnings fetches the full part stock quietly and keeps the depleted entries.
func (c *Console) loadWarnings(ctx context.Context) error {
	list, err := c.Gateway.GetList(ctx, gateway.Call{
		Endpoint: grid.PartStock.Endpoint,
		Method:   http.MethodGet,
		Payload: map[string]any{
			"stock_type": grid.StockParts,
			"length":     -1,
			"start":      0,
		},
		Quiet: true,
	})
	var w Warnings
	if err == nil {
		var recs []map[string]any
		if recs, err = list.Records(); err == nil {
			rows := make([]grid.Row, len(recs))
			for i, r := range recs {
				rows[i] = grid.Row(r)
			}
			w.Lines = grid.StockWarnings(rows)
		}
	}
	w.Loaded = true
	w.Failed = err != nil

	c.mu.Lock()
	c.warnings = w
	c.mu.Unlock()

	if err != nil {
		return err
	}
	if c.stockAlerts != nil {
		if sent := c.stockAlerts.Relay(ctx, w.Lines); len(sent) > 0 {
			logging.From(ctx).Info("console.stock_alert", "count", len(sent))
		}
	}
	return nil
}
