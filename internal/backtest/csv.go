package backtest

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"
)

var ledgerHeader = []string{
	"index",
	"datetime",
	"date",
	"price",
	"action",
	"cycle",
	"charge_mwh",
	"discharge_mwh",
	"soc_start_mwh",
	"battery_soc",
	"charge_cost",
	"discharge_revenue",
	"cash_flow",
	"net_revenue",
}

// LedgerHeader returns the column names used by WriteLedgerCSV.
func LedgerHeader() []string {
	return append([]string(nil), ledgerHeader...)
}

// LedgerRecord formats one row in LedgerHeader order.
func LedgerRecord(r LedgerRow) []string {
	return []string{
		strconv.Itoa(r.Index),
		fmtTime(r.Datetime),
		r.Date.Format("2006-01-02"),
		fmtFloat(r.Price),
		string(r.Action),
		strconv.Itoa(r.Cycle),
		fmtFloat(r.ChargeMWh),
		fmtFloat(r.DischargeMWh),
		fmtFloat(r.SOCStartMWh),
		fmtFloat(r.SOCMWh),
		fmtFloat(r.ChargeCost),
		fmtFloat(r.DischargeRevenue),
		fmtFloat(r.CashFlow),
		fmtFloat(r.NetRevenue),
	}
}

func WriteLedgerCSV(path string, ledger []LedgerRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return EncodeLedgerCSV(f, ledger)
}

// EncodeLedgerCSV writes the ledger with a header row to w.
func EncodeLedgerCSV(w io.Writer, ledger []LedgerRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ledgerHeader); err != nil {
		return err
	}
	for _, r := range ledger {
		if err := cw.Write(LedgerRecord(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
