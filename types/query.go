package types

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

type Validater interface {
	Validate() map[string]string
}

func Validate(v Validater) map[string]string {
	return v.Validate()
}

// AskParams is the body of an ask request.
type AskParams struct {
	Question string `json:"question" validate:"required"`
}

func (params *AskParams) Validate() map[string]string {
	return validateStruct(params)
}

// AskResponse carries the agent's answer for one turn.
type AskResponse struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
	SessionID string     `json:"session_id"`
	Timestamp time.Time  `json:"timestamp"`
}

// UploadResponse reports the ingestion outcome for one uploaded file.
type UploadResponse struct {
	Status          IngestStatus `json:"status"`
	Filename        string       `json:"filename"`
	ContentHash     string       `json:"content_hash"`
	ChunksCommitted int          `json:"chunks_committed"`
}

// DocumentInfo is the listing view of a stored document.
type DocumentInfo struct {
	Filename   string    `json:"filename"`
	UploadedAt time.Time `json:"uploaded_at"`
	ChunkCount int       `json:"chunk_count"`
}

func validateStruct(v any) map[string]string {
	validate := validator.New()
	if err := validate.Struct(v); err != nil {
		errs := err.(validator.ValidationErrors)
		errors := make(map[string]string)
		for _, e := range errs {
			errors[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return errors
	}
	return nil
}
