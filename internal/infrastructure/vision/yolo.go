package vision

import (
	"math"
	"sort"

	"leafscan/internal/domain/entity"
)

// DecodeOptions пороги постобработки
type DecodeOptions struct {
	ConfThreshold float64
	IoUThreshold  float64
	MaxDetections int
	Transposed    bool // выход [N, 4+nc] вместо [4+nc, N]
}

// DecodeYOLO разбирает выход головы YOLOv8 и применяет NMS по классам.
// rows = 4+nc, cols = число якорей (для транспонированного выхода наоборот).
func DecodeYOLO(out []float32, rows, cols int, params LetterboxParams, opts DecodeOptions, labels []string) []entity.Prediction {
	features, anchors := rows, cols
	if opts.Transposed {
		features, anchors = cols, rows
	}
	if features <= 4 || len(out) < features*anchors {
		return nil
	}

	at := func(feature, anchor int) float64 {
		if opts.Transposed {
			return float64(out[anchor*features+feature])
		}
		return float64(out[feature*anchors+anchor])
	}

	numClasses := features - 4
	candidates := make([]entity.Prediction, 0, 64)
	for i := 0; i < anchors; i++ {
		classID, score := 0, math.Inf(-1)
		for c := 0; c < numClasses; c++ {
			if s := at(4+c, i); s > score {
				classID, score = c, s
			}
		}
		if score < opts.ConfThreshold {
			continue
		}

		cx, cy, w, h := at(0, i), at(1, i), at(2, i), at(3, i)
		box := unletterbox(entity.Box{
			X1: cx - w/2,
			Y1: cy - h/2,
			X2: cx + w/2,
			Y2: cy + h/2,
		}, params)
		if box.Area() <= 0 {
			continue
		}

		candidates = append(candidates, entity.Prediction{
			ClassID:    classID,
			Label:      LabelFor(labels, classID),
			Confidence: score,
			Box:        box,
		})
	}

	return NonMaxSuppression(candidates, opts.IoUThreshold, opts.MaxDetections)
}

// unletterbox переводит рамку из входа модели в координаты исходного фото.
func unletterbox(b entity.Box, p LetterboxParams) entity.Box {
	if p.Scale <= 0 {
		return b
	}
	conv := func(v, pad float64, limit int) float64 {
		return clamp((v-pad)/p.Scale, 0, float64(limit))
	}
	return entity.Box{
		X1: conv(b.X1, p.PadX, p.OrigW),
		Y1: conv(b.Y1, p.PadY, p.OrigH),
		X2: conv(b.X2, p.PadX, p.OrigW),
		Y2: conv(b.Y2, p.PadY, p.OrigH),
	}
}

// NonMaxSuppression оставляет лучшие рамки внутри каждого класса.
// Результат отсортирован по уверенности по убыванию.
func NonMaxSuppression(preds []entity.Prediction, iouThreshold float64, maxDetections int) []entity.Prediction {
	sorted := make([]entity.Prediction, len(preds))
	copy(sorted, preds)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	kept := make([]entity.Prediction, 0, len(sorted))
	suppressed := make([]bool, len(sorted))
	for i := range sorted {
		if suppressed[i] {
			continue
		}
		kept = append(kept, sorted[i])
		if maxDetections > 0 && len(kept) >= maxDetections {
			break
		}
		for j := i + 1; j < len(sorted); j++ {
			if suppressed[j] || sorted[j].ClassID != sorted[i].ClassID {
				continue
			}
			if IoU(sorted[i].Box, sorted[j].Box) > iouThreshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}

// IoU отношение площади пересечения к площади объединения.
func IoU(a, b entity.Box) float64 {
	inter := entity.Box{
		X1: math.Max(a.X1, b.X1),
		Y1: math.Max(a.Y1, b.Y1),
		X2: math.Min(a.X2, b.X2),
		Y2: math.Min(a.Y2, b.Y2),
	}.Area()
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
