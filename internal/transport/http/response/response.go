package response

import "github.com/gin-gonic/gin"

const (
	CodeOK                = 0
	CodeBadRequest        = 40000
	CodeUnsupportedFormat = 40001
	CodeUnknownEnum       = 40002
	CodeNoPrompts         = 40003
	CodeNotFound          = 40400
	CodeDimensionConflict = 40900
	CodeTooManyRequests   = 42900
	CodeInternalServer    = 50000
	CodeNotConfigured     = 50100
	CodeUnavailable       = 50300
)

type APIResponse struct {
	Status  int         `json:"status"`
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	JSON(c, 200, data)
}

func JSON(c *gin.Context, httpStatus int, data interface{}) {
	c.JSON(httpStatus, APIResponse{
		Status:  httpStatus,
		Code:    CodeOK,
		Message: "ok",
		Data:    data,
	})
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.AbortWithStatusJSON(httpStatus, APIResponse{
		Status:  httpStatus,
		Code:    code,
		Message: message,
	})
}
