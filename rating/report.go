package rating

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// =============================================================================
// TEXT REPORT - Rating sheet as handed to adjusters
// =============================================================================

// Report renders a result as a plain-text rating sheet: one section per
// outcome, each listing the impairments, the combination, weeks and payout.
func Report(res *Result) string {
	p := message.NewPrinter(language.AmericanEnglish)
	rated := res.Rated()

	var b strings.Builder
	writeSection(&b, p, "NO APPORTIONMENT     100%", res, rated, res.NoApportionment)

	if res.WithApportionment != nil {
		b.WriteString("\n")
		writeSection(&b, p, "WITH APPORTIONMENT", res, rated, *res.WithApportionment)
	}

	var skipped []Record
	for _, rec := range res.Records {
		if rec.Skipped != "" {
			skipped = append(skipped, rec)
		}
	}
	if len(skipped) > 0 {
		b.WriteString("\nSKIPPED IMPAIRMENTS\n")
		for _, rec := range skipped {
			fmt.Fprintf(&b, "(%s)\n%s\n", rec.Breakdown(), rec.BodyPart)
		}
	}
	return b.String()
}

func writeSection(b *strings.Builder, p *message.Printer, title string, res *Result, rated []Record, o Outcome) {
	b.WriteString(title + "\n")
	for i, rec := range rated {
		fmt.Fprintf(b, "(%s) %s%%\n%s\n\n", rec.Breakdown(), whole(o.Values[i]), rec.BodyPart)
	}
	for _, line := range CombinationSteps(o.Values) {
		b.WriteString(line + "\n")
	}
	fmt.Fprintf(b, "Combined Rating %s%%\n\n", whole(o.Percent))
	fmt.Fprintf(b, "Total of All Add-ons for Pain %s%%\n\n", res.TotalPainAddon().String())
	fmt.Fprintf(b, "Total Weeks of PD %s\n\n", o.Weeks.StringFixed(2))
	fmt.Fprintf(b, "Age on DOI %d\n\n", res.Age)
	fmt.Fprintf(b, "PD Weekly Rate: %s\n\n", money(p, o.WeeklyRate))
	fmt.Fprintf(b, "Total PD Payout %s\n", money(p, o.Payout))

	if lp := o.LifePension; lp != nil {
		b.WriteString("\nLife Pension\n")
		fmt.Fprintf(b, "Average Weekly Earnings %s (Life Pension Statutory Max)\n", money(p, lp.MaxEarnings))
		fmt.Fprintf(b, "Life Pension Weekly Rate %s\n", money(p, lp.WeeklyRate))
	}
}

// money renders exact cents; only the whole dollars go through p for
// digit grouping.
func money(p *message.Printer, v decimal.Decimal) string {
	sign := ""
	if v.Round(2).IsNegative() {
		sign = "-"
	}
	dollars, cents, _ := strings.Cut(v.Abs().StringFixed(2), ".")
	n, err := strconv.ParseInt(dollars, 10, 64)
	if err != nil {
		return sign + "$" + dollars + "." + cents
	}
	return sign + "$" + p.Sprintf("%d", n) + "." + cents
}
