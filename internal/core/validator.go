package core

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"carewatch/internal/types"
)

// Validator wraps go-playground/validator with the domain enum tags used by
// request structs:
//
//	condition_type  one of the supported condition types
//	channel_type    one of the notification methods
//	threshold_unit  minutes, hours, days or empty
//	severity        low, medium, high or critical
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// ValidationError describes one failed field.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult collects every failure of a struct.
type ValidationResult struct {
	Errors []ValidationError `json:"errors,omitempty"`
}

// IsValid reports whether no field failed.
func (r ValidationResult) IsValid() bool { return len(r.Errors) == 0 }

// NewValidator creates a Validator with the domain tags registered. Field
// names in errors use the json tag so they match the request body.
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	mustRegister(v, "condition_type", func(fl validator.FieldLevel) bool {
		return types.ConditionType(fl.Field().String()).IsValid()
	})
	mustRegister(v, "channel_type", func(fl validator.FieldLevel) bool {
		return types.ChannelType(fl.Field().String()).IsValid()
	})
	mustRegister(v, "threshold_unit", func(fl validator.FieldLevel) bool {
		return types.ThresholdUnit(fl.Field().String()).IsValid()
	})
	mustRegister(v, "severity", func(fl validator.FieldLevel) bool {
		return types.Severity(fl.Field().String()).IsValid()
	})

	return &Validator{validate: v, logger: logger}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic("core: register validation " + tag + ": " + err.Error())
	}
}

// ValidateStruct validates req and returns nil or an AppError whose code is
// derived from the first failing field. All failures are listed under
// details["validation_errors"].
func (v *Validator) ValidateStruct(req any) error {
	result := v.ValidateStructWithWarnings(req)
	if result.IsValid() {
		return nil
	}
	first := result.Errors[0]
	return types.NewAppErrorWithDetails(
		types.ErrorCode(first.Code),
		first.Message,
		nil,
		map[string]any{"validation_errors": result.Errors},
	)
}

// ValidateStructWithWarnings validates req and returns every failure instead
// of stopping at the first one.
func (v *Validator) ValidateStructWithWarnings(req any) ValidationResult {
	err := v.validate.Struct(req)
	if err == nil {
		return ValidationResult{}
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		v.logger.Error("validator misuse", "error", err)
		return ValidationResult{Errors: []ValidationError{{
			Code:    string(types.ErrCodeValidationRequest),
			Message: "request could not be validated",
		}}}
	}

	out := make([]ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		field := fieldPath(fe)
		out = append(out, ValidationError{
			Field:   field,
			Code:    tagToErrorCode(fe.Tag()),
			Message: messageFor(field, fe),
		})
	}
	return ValidationResult{Errors: out}
}

// fieldPath strips the top-level struct name from the namespace, so
// "ConditionInput.notification_method[1]" becomes "notification_method[1]".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func tagToErrorCode(tag string) string {
	switch tag {
	case "required":
		return string(types.ErrCodeValidationMissingField)
	case "condition_type":
		return string(types.ErrCodeValidationConditionType)
	case "channel_type":
		return string(types.ErrCodeValidationChannel)
	case "threshold_unit":
		return string(types.ErrCodeValidationThresholdUnit)
	case "gte", "lte", "gt", "lt":
		return string(types.ErrCodeValidationThresholdRange)
	default:
		return string(types.ErrCodeValidationRequest)
	}
}

func messageFor(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "gte", "min":
		return field + " must be at least " + fe.Param()
	case "lte", "max":
		return field + " must be at most " + fe.Param()
	default:
		return field + " is invalid"
	}
}
