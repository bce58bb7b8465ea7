package domain

import "encoding/json"

const DocumentKindQuiz = "quiz"

// Document is a reusable content item served by the content collaborator.
type Document struct {
	ID    string          `json:"id"`
	Kind  string          `json:"kind"`
	Title string          `json:"title"`
	Body  json.RawMessage `json:"body"`
}
