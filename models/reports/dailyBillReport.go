package reports

import (
	"context"
	"fmt"
	"io"

	"github.com/saif43/inventory-app-api/config"
	"github.com/saif43/inventory-app-api/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type DailyBillReport struct {
	TotalSales     decimal.Decimal      `json:"total_sales"`
	TotalPurchases decimal.Decimal      `json:"total_purchases"`
	Details        []DailyBillReportRow `json:"details"`
}

type DailyBillReportRow struct {
	Day       string          `json:"day"`
	Sales     decimal.Decimal `json:"sales"`
	SalesPaid decimal.Decimal `json:"sales_paid"`
	Purchases decimal.Decimal `json:"purchases"`
	Purchased decimal.Decimal `json:"purchases_paid"`
}

// GetDailyBillReport aggregates bill totals per calendar day over the given
// inclusive date range ("2006-01-02" strings).
func GetDailyBillReport(ctx context.Context, shop *models.Shop, fromDate, toDate string) (*DailyBillReport, error) {

	db := config.GetDB()

	query := `
		SELECT
			day,
			COALESCE(SUM(sales), 0) AS sales,
			COALESCE(SUM(sales_paid), 0) AS sales_paid,
			COALESCE(SUM(purchases), 0) AS purchases,
			COALESCE(SUM(purchases_paid), 0) AS purchases_paid
		FROM (
			SELECT
				DATE(created_at) AS day,
				total_bill AS sales,
				paid AS sales_paid,
				0 AS purchases,
				0 AS purchases_paid
			FROM customer_bills
			WHERE shop_id = ? AND DATE(created_at) BETWEEN ? AND ?
			UNION ALL
			SELECT
				DATE(created_at) AS day,
				0, 0,
				total_bill,
				paid
			FROM vendor_bills
			WHERE shop_id = ? AND DATE(created_at) BETWEEN ? AND ?
		) AS bills
		GROUP BY day
		ORDER BY day;
	`

	rows, err := db.WithContext(ctx).Raw(query,
		shop.ID.String(), fromDate, toDate,
		shop.ID.String(), fromDate, toDate,
	).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totalSales, totalPurchases decimal.Decimal
	var details []DailyBillReportRow

	for rows.Next() {
		var row DailyBillReportRow
		if err := rows.Scan(&row.Day, &row.Sales, &row.SalesPaid, &row.Purchases, &row.Purchased); err != nil {
			return nil, err
		}
		details = append(details, row)
		totalSales = totalSales.Add(row.Sales)
		totalPurchases = totalPurchases.Add(row.Purchases)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &DailyBillReport{
		TotalSales:     totalSales,
		TotalPurchases: totalPurchases,
		Details:        details,
	}, nil
}

// ExportDailyBillReport writes the report as an xlsx workbook.
func ExportDailyBillReport(w io.Writer, report *DailyBillReport) error {

	f := excelize.NewFile()
	_, err := f.NewSheet("Sheet1")
	if err != nil {
		return err
	}

	// Add headers
	f.SetCellValue("Sheet1", "A1", "Day")
	f.SetCellValue("Sheet1", "B1", "Sales")
	f.SetCellValue("Sheet1", "C1", "SalesPaid")
	f.SetCellValue("Sheet1", "D1", "Purchases")
	f.SetCellValue("Sheet1", "E1", "PurchasesPaid")

	// Add data
	for i, d := range report.Details {
		f.SetCellValue("Sheet1", "A"+fmt.Sprint(i+2), d.Day)
		f.SetCellValue("Sheet1", "B"+fmt.Sprint(i+2), d.Sales.InexactFloat64())
		f.SetCellValue("Sheet1", "C"+fmt.Sprint(i+2), d.SalesPaid.InexactFloat64())
		f.SetCellValue("Sheet1", "D"+fmt.Sprint(i+2), d.Purchases.InexactFloat64())
		f.SetCellValue("Sheet1", "E"+fmt.Sprint(i+2), d.Purchased.InexactFloat64())
	}

	totalRow := len(report.Details) + 2
	f.SetCellValue("Sheet1", "A"+fmt.Sprint(totalRow), "Total")
	f.SetCellValue("Sheet1", "B"+fmt.Sprint(totalRow), report.TotalSales.InexactFloat64())
	f.SetCellValue("Sheet1", "D"+fmt.Sprint(totalRow), report.TotalPurchases.InexactFloat64())

	return f.Write(w)
}
