package api

import (
	"github.com/gin-gonic/gin"

	"github.com/forPelevin/sportsight/internal/apperr"
)

// Response is the envelope of every JSON answer. Error is 0 on success.
type Response struct {
	Error  int    `json:"error"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
	Data   any    `json:"data"`
}

func success(c *gin.Context, data any) {
	c.JSON(apperr.HTTPStatus(apperr.CodeSuccess), Response{Msg: "ok", Data: data})
}

func fail(c *gin.Context, err *apperr.AppError) {
	c.AbortWithStatusJSON(apperr.HTTPStatus(err.Code), Response{
		Error:  err.Code,
		Msg:    err.Message,
		Detail: err.Detail,
	})
}
