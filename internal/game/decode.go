package game

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"

	"party_server/internal/domain"
)

var validate = validator.New()

// DecodeAction unmarshals and validates an action payload.
func DecodeAction(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return domain.Reject("invalid_payload", "malformed action payload")
	}
	if err := validate.Struct(dst); err != nil {
		return domain.Reject("invalid_payload", "action payload failed validation")
	}
	return nil
}

// DecodeOptions fills dst from raw; dst must already hold defaults.
func DecodeOptions(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return domain.Reject("invalid_options", "malformed game options")
	}
	if err := validate.Struct(dst); err != nil {
		return domain.Reject("invalid_options", err.Error())
	}
	return nil
}

// Validate checks v against its struct tags.
func Validate(v any) error {
	return validate.Struct(v)
}
