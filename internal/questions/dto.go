package questions

import "time"

// Response is the JSON shape of a question.
type Response struct {
	ID           string     `json:"id"`
	QuestionText string     `json:"questionText"`
	AIAnswer     string     `json:"aiAnswer"`
	AnswerHTML   string     `json:"answerHtml,omitempty"`
	Confidence   Confidence `json:"confidence,omitempty"`
	ContextUsed  string     `json:"contextUsed"`
	DocumentIDs  []string   `json:"documentIds"`
	CreatedDate  time.Time  `json:"createdDate"`
}

type dayGroupResponse struct {
	Date      string     `json:"date"`
	Questions []Response `json:"questions"`
}

// ToResponse maps a question to its JSON shape.
func ToResponse(q Question) Response {
	ids := q.DocumentIDs
	if ids == nil {
		ids = []string{}
	}
	return Response{
		ID:           q.ID,
		QuestionText: q.QuestionText,
		AIAnswer:     q.AIAnswer,
		Confidence:   q.Confidence,
		ContextUsed:  q.ContextUsed,
		DocumentIDs:  ids,
		CreatedDate:  q.CreatedDate,
	}
}

// ToResponses maps a slice of questions.
func ToResponses(qs []Question) []Response {
	out := make([]Response, 0, len(qs))
	for _, q := range qs {
		out = append(out, ToResponse(q))
	}
	return out
}
