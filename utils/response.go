package utils

import "github.com/gin-gonic/gin"

// JSONResponse defines the uniform structure for API responses.
// Error mirrors Message on failures so clients can read a single `error` string.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	resp := JSONResponse{
		Code:    code,
		Message: message,
		Data:    data,
	}
	if code != 0 {
		resp.Error = message
	}
	ctx.JSON(status, resp)
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, 200, 0, "success", data)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}
