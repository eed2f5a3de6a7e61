package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SourceDB marks payloads read from or written to the primary store.
const SourceDB = "DB"

// Response is the envelope every API route answers with. Clients branch on
// Success; Message, Error and Data are null when not set.
type Response struct {
	Success bool        `json:"success"`
	Message *string     `json:"message"`
	Error   interface{} `json:"error"`
	Data    interface{} `json:"data"`
	From    string      `json:"from"`
}

func messagePtr(message string) *string {
	if message == "" {
		return nil
	}
	return &message
}

// JSON writes a successful envelope with the given status.
func JSON(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Response{
		Success: true,
		Message: messagePtr(message),
		Data:    data,
		From:    SourceDB,
	})
}

// Success sends a 200 envelope.
func Success(c *gin.Context, message string, data interface{}) {
	JSON(c, http.StatusOK, message, data)
}

// Created sends a 201 envelope.
func Created(c *gin.Context, message string, data interface{}) {
	JSON(c, http.StatusCreated, message, data)
}

// Error sends a failed envelope. detail is a short string or a structured
// value such as a field error map.
func Error(c *gin.Context, status int, message string, detail interface{}) {
	c.JSON(status, Response{
		Success: false,
		Message: messagePtr(message),
		Error:   detail,
		From:    SourceDB,
	})
}

// BadRequest sends a 400 envelope.
func BadRequest(c *gin.Context, message string, detail interface{}) {
	Error(c, http.StatusBadRequest, message, detail)
}

// Forbidden sends a 403 envelope.
func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, message, "resource not accessible")
}

// NotFound sends a 404 envelope.
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message, "resource not found")
}

// InternalError sends a 500 envelope. The cause is never part of the body.
func InternalError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Something went wrong on our side.", "internal server error")
}
