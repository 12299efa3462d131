package entity

import "encoding/json"

// Prediction сырой ответ модели после NMS
type Prediction struct {
	ClassID    int
	Label      string
	Confidence float64
	Box        Box
}

// Detection запись о найденном заболевании
type Detection struct {
	Disease    string   `json:"disease"`
	Confidence float64  `json:"confidence"`
	Severity   Severity `json:"severity"`
	Box        Box      `json:"-"`
}

// MarshalJSON отдаёт рамку массивом [x1, y1, x2, y2].
func (d Detection) MarshalJSON() ([]byte, error) {
	type plain Detection
	return json.Marshal(struct {
		plain
		Box []float64 `json:"box"`
	}{plain: plain(d), Box: d.Box.Slice()})
}

// UnmarshalJSON читает рамку из массива [x1, y1, x2, y2].
func (d *Detection) UnmarshalJSON(data []byte) error {
	type plain Detection
	var raw struct {
		plain
		Box []float64 `json:"box"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*d = Detection(raw.plain)
	if len(raw.Box) == 4 {
		d.Box = Box{X1: raw.Box[0], Y1: raw.Box[1], X2: raw.Box[2], Y2: raw.Box[3]}
	}
	return nil
}
