// Package columns shapes query results for the portal table.
package columns

import (
	"strings"

	"github.com/sayshey/clientportal/pkg/notion"
)

// Order is the column order every client page renders
var Order = []string{
	"Invoice date", "Inv #", "Vendor1", "Description", "Income Type",
	"Net", "Gross", "Currency", "Paid in date", "Amount Received",
	"Currency (receipt)", "Adjustments", "Net Commissionable",
	"Commission %", "Mgmt Commission", "Mgmt Inv #",
}

// Headers maps property names to display headers
var Headers = map[string]string{
	"Invoice date":       "Date (Inv/Stmt)",
	"Inv #":              "Invoice #",
	"Vendor1":            "Vendor",
	"Description":        "Description",
	"Income Type":        "Income Type",
	"Net":                "Net Amount",
	"Gross":              "Gross Amount",
	"Currency":           "Currency (Inv/Stmt)",
	"Paid in date":       "Paid In Date",
	"Amount Received":    "Amount Received",
	"Currency (receipt)": "Currency (Received)",
	"Adjustments":        "Adjustments",
	"Net Commissionable": "Net Commissionable",
	"Commission %":       "Commission %",
	"Mgmt Commission":    "Mgmt Commission",
	"Mgmt Inv #":         "Mgmt Inv #",
}

// Metadata lists the filter options present in a result set
type Metadata struct {
	IncomeTypes []string `json:"incomeTypes"`
	Currencies  []string `json:"currencies"`
}

// Parse splits a comma separated column list, dropping blanks
func Parse(list string) []string {
	if strings.TrimSpace(list) == "" {
		return nil
	}
	var out []string
	for _, c := range strings.Split(list, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// Select keeps only the id, the Client property and the named properties of each record
func Select(records []notion.Page, cols []string) []notion.Page {

	out := make([]notion.Page, 0, len(records))
	for _, rec := range records {
		all := rec.Properties()
		props := map[string]interface{}{}
		if c, ok := all[notion.ClientProperty]; ok {
			props[notion.ClientProperty] = c
		}
		for _, col := range cols {
			if v, ok := all[col]; ok {
				props[col] = v
			}
		}
		out = append(out, notion.Page{"id": rec["id"], "properties": props})
	}
	return out
}

// Verify drops records that do not belong to client
func Verify(records []notion.Page, client string) []notion.Page {
	out := make([]notion.Page, 0, len(records))
	for _, rec := range records {
		if rec.SelectName(notion.ClientProperty) == client {
			out = append(out, rec)
		}
	}
	return out
}

// Summarise collects distinct income types and currencies in first seen order
func Summarise(records []notion.Page) Metadata {
	return Metadata{
		IncomeTypes: distinct(records, "Income Type"),
		Currencies:  distinct(records, "Currency"),
	}
}

func distinct(records []notion.Page, property string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0)
	for _, rec := range records {
		v := rec.SelectName(property)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
