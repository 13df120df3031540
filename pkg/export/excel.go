package export

import (
	"fmt"

	"github.com/sangkips/posledger-api/internal/domain/entity"
	"github.com/sangkips/posledger-api/pkg/money"
	"github.com/xuri/excelize/v2"
)

const statementSheet = "Statement"

// CustomerStatement renders a projected customer ledger as an .xlsx
// statement: one row per receipt in chronological order, with totals at the
// bottom. The receipts are expected to come from the ledger projection so
// running balances are already filled in.
func CustomerStatement(customerKey string, receipts []entity.Receipt) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", statementSheet); err != nil {
		return nil, err
	}

	rows := [][]interface{}{
		{"Customer", customerKey},
		{},
		{"Date", "Invoice No", "Total", "Paid", "Own Balance", "Old Balance Cleared", "Outstanding Old Balance", "Running Balance", "Status"},
	}

	var totalSales, totalPaid, totalDue money.Amount
	for i := range receipts {
		r := &receipts[i]
		status := "DUE"
		if r.IsFullyPaid() {
			status = "PAID"
		}
		rows = append(rows, []interface{}{
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.InvoiceNo,
			r.LineItemsTotal.Float64(),
			r.AmountPaid.Float64(),
			r.OwnBalance().Float64(),
			r.OldBalanceCleared.Float64(),
			r.OutstandingOldBalance().Float64(),
			r.RunningBalance.Float64(),
			status,
		})
		totalSales = totalSales.Add(r.LineItemsTotal)
		totalPaid = totalPaid.Add(r.AmountPaid)
		totalDue = totalDue.Add(r.TotalDebt().ClampNonNegative())
	}

	rows = append(rows,
		[]interface{}{},
		[]interface{}{"Total Sales", totalSales.Float64()},
		[]interface{}{"Total Paid", totalPaid.Float64()},
		[]interface{}{"Total Outstanding", totalDue.Float64()},
	)

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(statementSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write statement row %d: %w", i+1, err)
		}
	}

	return f, nil
}
