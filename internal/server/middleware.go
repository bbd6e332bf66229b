package server

import (
	"strings"

	"github.com/AdrianPopi/acont/internal/merchantcontext"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

const HeaderMerchant = "X-Merchant-ID"

// MerchantContext resolves the acting merchant from the gateway header.
// Authentication happens upstream; requests without a merchant are rejected.
func MerchantContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderMerchant))
		if raw == "" {
			AbortWithError(c, ErrMerchantRequired)
			return
		}
		merchantID, err := snowflake.ParseString(raw)
		if err != nil || merchantID <= 0 {
			AbortWithError(c, ErrMerchantRequired)
			return
		}

		ctx := merchantcontext.WithMerchantID(c.Request.Context(), merchantID.Int64())
		c.Request = c.Request.WithContext(ctx)
		c.Set("merchant_id", merchantID.String())
		c.Next()
	}
}

func merchantIDFromGin(c *gin.Context) string {
	if id, ok := merchantcontext.MerchantIDFromContext(c.Request.Context()); ok {
		return id.String()
	}
	return ""
}
