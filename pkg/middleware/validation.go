package middleware

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/voicewms/dispatch-service/pkg/errors"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// InitValidator initializes the shared validator with the dispatch
// domain's custom validators and registers them on gin's binding
// validator as well.
func InitValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		registerCustom(validate)

		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			registerCustom(v)
		}
	})
	return validate
}

// GetValidator returns the singleton validator instance.
func GetValidator() *validator.Validate {
	if validate == nil {
		return InitValidator()
	}
	return validate
}

func registerCustom(v *validator.Validate) {
	_ = v.RegisterValidation("role_tag", validateRoleTag)
	_ = v.RegisterValidation("worker_pin", validateWorkerPIN)
	_ = v.RegisterValidation("item_code", validateItemCode)
	_ = v.RegisterValidation("location_code", validateLocationCode)
	_ = v.RegisterValidation("task_priority", validateTaskPriority)

	// Report field names as they appear in JSON payloads.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return fld.Name
		}
		return name
	})
}

var (
	roleTagRegex  = regexp.MustCompile(`^[a-z][a-z0-9_-]{1,31}$`)
	itemCodeRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9-]{1,49}$`)
	// Matches the warehouse location grammar without knowing the
	// layout: section+aisle letters, three-digit bay, optional level
	// and subsection.
	locationCodeRegex = regexp.MustCompile(`^[A-Za-z]{2,4}-\d{3}(\.[0B-Nb-n](\.[1-9])?)?$`)
)

func validateRoleTag(fl validator.FieldLevel) bool {
	return roleTagRegex.MatchString(fl.Field().String())
}

func validateWorkerPIN(fl validator.FieldLevel) bool {
	pin := fl.Field().Int()
	return pin >= 1000 && pin <= 99999999
}

func validateItemCode(fl validator.FieldLevel) bool {
	return itemCodeRegex.MatchString(fl.Field().String())
}

func validateLocationCode(fl validator.FieldLevel) bool {
	return locationCodeRegex.MatchString(fl.Field().String())
}

func validateTaskPriority(fl validator.FieldLevel) bool {
	p := fl.Field().Int()
	return p >= 1 && p <= 10
}

// ValidationErrorFormatter flattens validator errors into a
// field-to-message map for API responses.
func ValidationErrorFormatter(err error) map[string]string {
	fields := make(map[string]string)
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			fields[e.Field()] = formatValidationError(e)
		}
	}
	return fields
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "oneof":
		return "must be one of: " + e.Param()
	case "role_tag":
		return "must be a lowercase role tag (letters, underscores, dashes)"
	case "worker_pin":
		return "must be a worker PIN of 4 to 8 digits"
	case "item_code":
		return "must be an alphanumeric item code (dashes allowed)"
	case "location_code":
		return "must be a location code like HA-045 or HA-045.B"
	case "task_priority":
		return "must be a priority between 1 and 10"
	default:
		return "is invalid"
	}
}

// BindAndValidate binds the JSON request body into obj and returns a
// validation error with per-field details on failure.
func BindAndValidate(c *gin.Context, obj interface{}) *errors.AppError {
	if err := c.ShouldBindJSON(obj); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			appErr := errors.ErrValidation("validation failed")
			for field, msg := range ValidationErrorFormatter(validationErrors) {
				appErr = appErr.WithDetail(field, msg)
			}
			return appErr
		}
		return errors.ErrBadRequest("invalid request body: " + err.Error())
	}
	return nil
}

// ValidateStruct runs struct validation outside of request binding.
func ValidateStruct(obj interface{}) *errors.AppError {
	if err := GetValidator().Struct(obj); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			appErr := errors.ErrValidation("validation failed")
			for field, msg := range ValidationErrorFormatter(validationErrors) {
				appErr = appErr.WithDetail(field, msg)
			}
			return appErr
		}
		return errors.ErrBadRequest("validation failed: " + err.Error())
	}
	return nil
}
