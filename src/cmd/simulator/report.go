package main

import (
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gridlabs/gridtrader/src/models"
	"github.com/gridlabs/gridtrader/src/simulator"
)

// PrintReport renders the account summary and the closed positions the way
// the positions window of the UI shows them.
func PrintReport(w io.Writer, sim *simulator.Simulator) {
	p := message.NewPrinter(language.English)
	state := sim.State()

	fmt.Fprintln(w, "Account:")

	accountTable := tablewriter.NewWriter(w)
	accountTable.SetAlignment(tablewriter.ALIGN_CENTER)
	accountTable.SetHeader([]string{"Balance", "Profit", "Floating Profit", "Free Margin", "Margin"})
	accountTable.Append([]string{
		p.Sprintf("$%.2f", state.Balance),
		p.Sprintf("$%.2f", state.Profit),
		p.Sprintf("$%.2f", state.FloatingProfit),
		p.Sprintf("$%.2f", state.FreeMargin),
		p.Sprintf("$%.2f", state.Margin),
	})
	accountTable.Render()

	closed := sim.ClosedPositions()
	if len(closed) > 0 {
		fmt.Fprintln(w, "Closed Positions:")

		positionsTable := tablewriter.NewWriter(w)
		positionsTable.SetAlignment(tablewriter.ALIGN_CENTER)
		positionsTable.SetHeader([]string{"Side", "Entry Price", "Exit Price", "Volume", "Profit", "Commission"})

		for _, position := range closed {
			exitPrice := ""
			if position.ExitPrice != nil {
				exitPrice = fmt.Sprintf("%.8f", *position.ExitPrice)
			}

			positionsTable.Append([]string{
				string(position.Side),
				fmt.Sprintf("%.8f", position.EntryPrice),
				exitPrice,
				fmt.Sprintf("%.8f", position.Volume),
				fmt.Sprintf("%.8f", position.Profit),
				fmt.Sprintf("%.8f", position.Commission),
			})
		}

		positionsTable.Render()
	}

	summary := sim.GetProfitSummary()
	fmt.Fprintf(w, "Gross Profit: %.8f\n", summary.GrossProfit)
	fmt.Fprintf(w, "Total Commission: %.8f\n", summary.TotalCommission)
	fmt.Fprintf(w, "Total Profit (including commission): %.8f\n", summary.NetProfit)
}

// ExportOrderHistory writes every executed order to a CSV file.
func ExportOrderHistory(filename string, history []*models.Order) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("ExportOrderHistory: create %s: %w", filename, err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(&history, f); err != nil {
		return fmt.Errorf("ExportOrderHistory: marshal: %w", err)
	}

	return nil
}
