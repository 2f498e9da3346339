package types

// PreviewMeta is the JSON metadata part of a preview message.
type PreviewMeta struct {
	W  int     `json:"w"`
	H  int     `json:"h"`
	TS float64 `json:"ts"`
}

// PoseMeta is the JSON metadata part of a pose message. Count is the
// number of landmarks; the payload carries exactly 4*Count floats.
type PoseMeta struct {
	Count int `json:"count"`
}
