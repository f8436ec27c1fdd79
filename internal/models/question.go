package models

// Question is produced by the question source and consumed verbatim by
// both clients. Choices always has four entries, one of which is Answer.
type Question struct {
	Type    string   `json:"type"`
	Prompt  string   `json:"prompt"`
	Answer  string   `json:"answer"`
	Choices []string `json:"choices"`
	Ref     []string `json:"ref,omitempty"` // scripture references
}
