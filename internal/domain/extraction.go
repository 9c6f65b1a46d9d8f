package domain

// ExtractedEntity is a person, place or thing mentioned in the text.
type ExtractedEntity struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Role string `json:"role"`
}

// ExtractedEvent is something that happened.
type ExtractedEvent struct {
	Action       string `json:"action"`
	Time         string `json:"time"`
	Significance string `json:"significance"`
}

// ExtractedEmotion is a feeling and what triggered it.
type ExtractedEmotion struct {
	Feeling   string `json:"feeling"`
	Intensity string `json:"intensity"`
	Trigger   string `json:"trigger"`
}

// Extraction is the structured who/what/how of a text.
// Raw keeps the model output verbatim; the slices are empty when it was not valid JSON.
type Extraction struct {
	Entities []ExtractedEntity  `json:"entities"`
	Events   []ExtractedEvent   `json:"events"`
	Emotions []ExtractedEmotion `json:"emotions"`
	Raw      string             `json:"raw"`
}
