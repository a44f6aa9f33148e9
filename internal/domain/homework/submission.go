// internal/domain/homework/submission.go
package homework

import "encoding/json"

// Status is the review state of a submission as reported by the API.
type Status string

const (
	StatusApproved  Status = "approved"
	StatusReviewing Status = "reviewing"
	StatusRejected  Status = "rejected"
)

// Keys of a submission record that the bot relies on.
const (
	KeyHomeworks    = "homeworks"
	KeyHomeworkName = "homework_name"
	KeyStatus       = "status"
)

var verdicts = map[Status]string{
	StatusApproved:  "Работа проверена: ревьюеру всё понравилось. Ура!",
	StatusReviewing: "Работа взята на проверку ревьюером.",
	StatusRejected:  "Работа проверена: у ревьюера есть замечания.",
}

// Verdict returns the human readable text for a known status.
func Verdict(s Status) (string, bool) {
	v, ok := verdicts[s]
	return v, ok
}

// Response is the decoded top-level JSON object returned by the review API.
// Values are kept raw so that field presence and type can be checked explicitly.
type Response map[string]json.RawMessage

// Record is a single raw submission taken from the "homeworks" list.
type Record map[string]json.RawMessage

// Submission is the typed view of a Record.
type Submission struct {
	ID              int64  `json:"id"`
	HomeworkName    string `json:"homework_name"`
	Status          Status `json:"status"`
	LessonName      string `json:"lesson_name"`
	ReviewerComment string `json:"reviewer_comment"`
	DateUpdated     string `json:"date_updated"`
}
