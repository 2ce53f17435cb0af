package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/lbatista/fabrica/pkg/application/dto"
	"github.com/lbatista/fabrica/pkg/domain/entities"
)

// Config holds configuration for output generation
type Config struct {
	Format  string // text or json
	Verbose bool
}

// FormatOrderNumber renders a sequential order number the way it appears on
// printed paperwork.
func FormatOrderNumber(number int64) string {
	return fmt.Sprintf("%06d", number)
}

// FormatLot renders a lot number.
func FormatLot(lot int64) string {
	return fmt.Sprintf("LOTE%05d", lot)
}

// TraceabilityCode renders the label payload stamped on finished goods.
func TraceabilityCode(productCode entities.ItemCode, lot int64) string {
	return fmt.Sprintf("OP-%s-%s", productCode, FormatLot(lot))
}

// Simulation writes a simulation result in the configured format.
func Simulation(w io.Writer, result *dto.SimulationResult, config Config) error {
	switch config.Format {
	case "", "text":
		return simulationText(w, result)
	case "json":
		return writeJSON(w, result)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

func simulationText(w io.Writer, result *dto.SimulationResult) error {
	fmt.Fprintf(w, "Requirements\n")
	fmt.Fprintf(w, "%-8s %-24s %-6s %12s %12s\n", "Code", "Name", "Unit", "Required", "On hand")
	for _, req := range result.Requirements {
		fmt.Fprintf(w, "%-8s %-24s %-6s %12.3f %12.3f\n",
			req.ItemCode, req.ItemName, req.Unit, req.RequiredQty, req.CurrentStock)
	}

	short := result.ShortLines()
	if len(short) == 0 {
		fmt.Fprintf(w, "\nAll requirements covered by stock.\n")
		return nil
	}

	fmt.Fprintf(w, "\nShortages\n")
	fmt.Fprintf(w, "%-8s %-24s %12s\n", "Code", "Name", "Short")
	for _, line := range short {
		fmt.Fprintf(w, "%-8s %-24s %12.3f\n", line.ItemCode, line.ItemName, line.ShortQty)
	}
	fmt.Fprintf(w, "\nEstimated purchase cost: %s\n", result.EstimatedPurchaseCost)
	return nil
}

// Commit writes a batch commit result in the configured format.
func Commit(w io.Writer, result *dto.CommitResult, config Config) error {
	switch config.Format {
	case "", "text":
		return commitText(w, result)
	case "json":
		return writeJSON(w, result)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

func commitText(w io.Writer, result *dto.CommitResult) error {
	fmt.Fprintf(w, "Production orders created: %d\n", len(result.Orders))
	for _, order := range result.Orders {
		fmt.Fprintf(w, "  OP %s  recipe %s  qty %d\n",
			FormatOrderNumber(order.Number), order.RecipeID, order.Quantity)
	}

	if result.PurchaseOrder != nil {
		po := result.PurchaseOrder
		fmt.Fprintf(w, "Consolidated purchase order: OC %s (%d lines)\n",
			FormatOrderNumber(po.Number), len(po.Lines))
		for _, line := range po.Lines {
			fmt.Fprintf(w, "  %-8s %12.3f\n", line.ItemCode, line.QtyOrdered)
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
