// Package export renders tabular datasets as CSV or PDF documents.
package export

// Dataset defines tabular export content. Rows are keyed by header.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
	// Weights sets relative PDF column widths, one per header. Missing or
	// non-positive weights count as 1.
	Weights []float64
}

func (d Dataset) record(row map[string]string) []string {
	out := make([]string, len(d.Headers))
	for i, header := range d.Headers {
		out[i] = row[header]
	}
	return out
}

func (d Dataset) widths(total float64) []float64 {
	weights := make([]float64, len(d.Headers))
	var sum float64
	for i := range d.Headers {
		w := 1.0
		if i < len(d.Weights) && d.Weights[i] > 0 {
			w = d.Weights[i]
		}
		weights[i] = w
		sum += w
	}
	for i := range weights {
		weights[i] = total * weights[i] / sum
	}
	return weights
}
