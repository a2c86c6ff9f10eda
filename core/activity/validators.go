package activity

import (
	"github.com/go-playground/validator/v10"

	"github.com/kazimoto/tarefa/core"
)

var (
	dateOrderTag  = "dateorder"
	dateOrderText = "end date must not be before start date"
)

func init() {
	core.Validate.RegisterStructValidation(newActivityStructValidation, NewActivity{})
	core.RegisterCustomTranslation(dateOrderTag, dateOrderText)
}

// newActivityStructValidation does struct level validation on NewActivity.
func newActivityStructValidation(sl validator.StructLevel) {
	na, ok := sl.Current().Interface().(NewActivity)
	if !ok {
		return
	}
	if na.StartDate.IsZero() || na.EndDate.IsZero() {
		return // covered by the required tags
	}
	if na.EndDate.Before(na.StartDate) {
		sl.ReportError(na.EndDate, "end_date", "EndDate", dateOrderTag, "")
	}
}
