package models

type Overview struct {
	TotalFarmers   int            `json:"total_farmers"`
	TotalFields    int            `json:"total_fields"`
	FieldsByStatus map[string]int `json:"fields_by_status"`
	TotalCrops     int            `json:"total_crops"`
	CropsByStatus  map[string]int `json:"crops_by_status"`
	TotalArea      float64        `json:"total_area"`
	CultivatedArea float64        `json:"cultivated_area"`
	Detections     int            `json:"detections"`
}

// LabeledValue is one bar or slice of a chart.
type LabeledValue struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Count int     `json:"count"`
}
