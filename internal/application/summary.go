package app

import (
	"fmt"
	"strings"

	"leafscan/internal/domain/entity"
)

// FormatConfidence уверенность в процентах с двумя знаками.
func FormatConfidence(confidence float64) string {
	return fmt.Sprintf("%.2f%%", confidence*100)
}

// Summary текстовый отчёт: болезнь, уверенность, тяжесть по каждой находке.
func Summary(detections []entity.Detection) string {
	var b strings.Builder
	for i, d := range detections {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- Disease: %s\n", d.Disease)
		fmt.Fprintf(&b, "- Confidence: %s\n", FormatConfidence(d.Confidence))
		fmt.Fprintf(&b, "- Severity: %s\n", d.Severity)
	}
	return b.String()
}
