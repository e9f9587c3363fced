package handler

import (
	"strconv"

	"tokenledger/pkg/response"

	"github.com/gin-gonic/gin"
)

func queryTgID(c *gin.Context) (int64, bool) {
	raw := c.Query("tg_id")
	tgID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || tgID == 0 {
		response.ParamError(c, "tg_id is required")
		return 0, false
	}
	return tgID, true
}

func queryInt(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return def
	}
	return v
}

func queryInt64(c *gin.Context, name string) int64 {
	v, err := strconv.ParseInt(c.Query(name), 10, 64)
	if err != nil {
		return 0
	}
	return v
}
