package report

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/cwbudde/bodeplot/measure/response"
)

// Summary renders the measured points as a plain-text table, one row per
// frequency in sweep order.
func Summary(w io.Writer, points []response.Point) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Frequency [Hz]", "Gain [dB]", "Phase [deg]"})
	table.SetAutoFormatHeaders(false)

	for _, p := range points {
		table.Append([]string{
			fmt.Sprintf("%.6g", p.Frequency),
			fmt.Sprintf("%+.2f", p.GainDB),
			fmt.Sprintf("%+.2f", p.PhaseDeg),
		})
	}

	table.Render()
}
