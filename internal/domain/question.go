package domain

// Question belongs to exactly one competition. Index is sequential within
// the competition starting at 0; repeated AttachQuestions calls continue
// numbering from the current count.
type Question struct {
	CompetitionID int64    `json:"competition_id"`
	Index         int      `json:"index"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correct_option"`
	Points        int64    `json:"points"`
}

// QuestionInput is one entry of an AttachQuestions call, before a local
// index has been assigned.
type QuestionInput struct {
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correct_option"`
	Points        int64    `json:"points"`
}
