package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// DataResponse writes the envelope. The transport status is always 200; the outcome is
// carried in the envelope status so clients read one shape for every route.
func DataResponse(c echo.Context, status int, data interface{}) error {
	return c.JSON(http.StatusOK, APIResponse{
		Status:  status,
		Message: http.StatusText(status),
		Data:    data,
	})
}

func SuccessResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusOK, data)
}

// ListResponse wraps rows with their total count.
func ListResponse(c echo.Context, rows interface{}, total int64) error {
	return SuccessResponse(c, &ListDataResponse{Rows: rows, Total: total})
}

// BadRequestResponse writes 400 with validation details.
func BadRequestResponse(c echo.Context, details interface{}) error {
	return DataResponse(c, http.StatusBadRequest, details)
}

// InternalServerErrorResponse hides the cause and returns the request id for support.
func InternalServerErrorResponse(c echo.Context) error {
	data := map[string]string{"message": "Something went wrong"}
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		data["request_id"] = id
	}
	return DataResponse(c, http.StatusInternalServerError, data)
}

// AppErrorResponse writes an AppError found in err's chain, or a generic 500.
func AppErrorResponse(c echo.Context, err error) error {
	if appErr, ok := AsAppError(err); ok {
		return DataResponse(c, appErr.Status, []*AppError{appErr})
	}
	return InternalServerErrorResponse(c)
}
