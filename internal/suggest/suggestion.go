package suggest

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"curator/internal/boards"
	"curator/internal/services"
)

// Action discriminates the payload of a Suggestion.
type Action string

const (
	ActionAddToExisting Action = "add_to_existing"
	ActionCreateNew     Action = "create_new"
)

// Suggestion is the classifier's proposal for one image. Exactly one of
// SuggestedBoards and NewBoard is populated, selected by Action.
type Suggestion struct {
	Action          Action        `json:"action" validate:"required,oneof=add_to_existing create_new"`
	Confidence      float64       `json:"confidence" validate:"gte=0,lte=1"`
	Reasoning       string        `json:"reasoning"`
	SuggestedBoards []int64       `json:"suggested_boards,omitempty" validate:"omitempty,dive,gt=0"`
	NewBoard        *boards.Draft `json:"new_board,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// Validate checks field ranges and that the payload matches the action.
// Draft names are trimmed in place.
func (s *Suggestion) Validate() error {
	if s.NewBoard != nil {
		s.NewBoard.Name = strings.TrimSpace(s.NewBoard.Name)
		s.NewBoard.Description = strings.TrimSpace(s.NewBoard.Description)
	}
	if err := validate.Struct(s); err != nil {
		return services.Wrap(services.ErrValidation, "suggest", "validate", formatValidationError(err), nil)
	}
	switch s.Action {
	case ActionAddToExisting:
		if len(s.SuggestedBoards) == 0 {
			return services.Wrap(services.ErrValidation, "suggest", "validate", "suggested_boards is required for add_to_existing", nil)
		}
		if s.NewBoard != nil {
			return services.Wrap(services.ErrValidation, "suggest", "validate", "new_board must be empty for add_to_existing", nil)
		}
	case ActionCreateNew:
		if s.NewBoard == nil {
			return services.Wrap(services.ErrValidation, "suggest", "validate", "new_board is required for create_new", nil)
		}
		if len(s.SuggestedBoards) > 0 {
			return services.Wrap(services.ErrValidation, "suggest", "validate", "suggested_boards must be empty for create_new", nil)
		}
	}
	return nil
}

// ValidateDraft checks a board draft before it is sent to storage.
func ValidateDraft(d boards.Draft) error {
	d.Name = strings.TrimSpace(d.Name)
	if err := validate.Struct(d); err != nil {
		return services.Wrap(services.ErrValidation, "suggest", "validate draft", formatValidationError(err), nil)
	}
	return nil
}

func formatValidationError(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, formatFieldError(fe))
	}
	return strings.Join(parts, "; ")
}

func formatFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	if idx := strings.Index(field, "."); idx >= 0 {
		field = field[idx+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "gte", "lte":
		return fmt.Sprintf("%s must be between 0 and 1", field)
	case "gt":
		return fmt.Sprintf("%s must be positive", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
