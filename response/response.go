package response

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Response struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	ID      string `json:"id,omitempty"`
}

func OK(msg string) Response {
	return Response{Message: msg}
}

func Error(msg string) Response {
	return Response{Error: msg}
}

// ValidationError turns validator failures into one readable message.
func ValidationError(errs validator.ValidationErrors) Response {
	var msgs []string
	for _, err := range errs {
		field := strings.ToLower(err.Field())
		switch err.ActualTag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("field %s is required", field))
		case "email":
			msgs = append(msgs, fmt.Sprintf("field %s is not a valid email", field))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("field %s must be one of: %s", field, err.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("field %s is too long", field))
		default:
			msgs = append(msgs, fmt.Sprintf("field %s is not valid", field))
		}
	}
	return Error(strings.Join(msgs, ", "))
}

// Write renders body with status.
func Write(w http.ResponseWriter, r *http.Request, status int, body any) {
	render.Status(r, status)
	render.JSON(w, r, body)
}
