package quiz

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Option is a stored answer choice, including whether it is the correct one.
// Only the owning teacher ever sees IsCorrect.
type Option struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// OwnedQuestion is the teacher's listing view.
type OwnedQuestion struct {
	ID      int64    `json:"id"`
	Text    string   `json:"question_text"`
	Options []Option `json:"options"`
}

// QuestionOptionRow is one row of the question/option left join. OptionID is
// nil for a question that has no options.
type QuestionOptionRow struct {
	QuestionID   int64
	QuestionText string
	OptionID     *int64
	OptionText   string
	IsCorrect    bool
}

// QuizOption and QuizQuestion are the student-facing projection. They must
// never grow a correctness field.
type QuizOption struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

type QuizQuestion struct {
	ID      int64        `json:"id"`
	Text    string       `json:"text"`
	Options []QuizOption `json:"options"`
}

// Index is a zero-based option position. It decodes from a JSON number or a
// decimal string, since form-style clients send it as text.
type Index int

func (i *Index) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*i = Index(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("correct_option: expected integer, got %s", string(b))
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("correct_option: %q is not an integer", s)
	}
	*i = Index(n)
	return nil
}

// QuestionInput is one entry of an authoring batch. The correct option is
// named by position only; there is no per-option flag for clients to set.
type QuestionInput struct {
	Text          string   `json:"question_text" validate:"required"`
	Options       []string `json:"options" validate:"required,min=1,dive,required"`
	CorrectOption *Index   `json:"correct_option" validate:"required"`
}

// Batch is a teacher submission keyed the way the form posts it
// ("0", "1", ...).
type Batch struct {
	Questions map[string]QuestionInput `json:"questions" validate:"required,min=1,dive"`
}

// Score is the result of grading one submission.
type Score struct {
	Score int `json:"score"`
	Total int `json:"total"`
}
