// Package httpmiddleware holds gin middleware shared by the three HTTP
// APIs (scraper, pricing, audit). RequestID is grounded in the
// teacher's PricingController.HandlePricingRequest, which stamps every
// request with uuid.New().String() before processing it.
package httpmiddleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader is the header the request ID is echoed back on.
const RequestIDHeader = "X-Request-ID"

// RequestID assigns a UUID to every request lacking one already and
// makes it available via gin.Context.Get("request_id").
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
