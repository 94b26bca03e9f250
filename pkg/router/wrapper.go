package router

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mitchellh/mapstructure"
	"github.com/referlab/backend/pkg/errorx"
	"github.com/referlab/backend/pkg/xcontext"
)

func wrapHandler[Request, Response any](
	r *Router,
	method string,
	handler HandlerFunc[Request, Response],
) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := xcontext.WithHTTPRequest(requestContext(r.baseCtx, c.Request.Context()), c.Request)

		var req Request
		var err error
		switch method {
		case http.MethodGet:
			err = bindQuery(c, &req)
		case http.MethodPost:
			err = c.ShouldBindJSON(&req)
		}
		if err != nil {
			berr := errorx.New(errorx.BadRequest, "Cannot bind the request")
			writeError(ctx, c, berr)
			r.close(ctx, c.Request, berr)
			return
		}

		resp, err := handler(ctx, &req)
		if err != nil {
			writeError(ctx, c, err)
		} else {
			c.JSON(http.StatusOK, newResponse(resp))
		}

		r.close(ctx, c.Request, err)
	}
}

func wrapMiddleware(r *Router, middleware MiddlewareFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := xcontext.WithHTTPRequest(requestContext(r.baseCtx, c.Request.Context()), c.Request)

		newCtx, err := middleware(ctx)
		if err != nil {
			writeError(ctx, c, err)
			r.close(ctx, c.Request, err)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(newCtx)
	}
}

// bindQuery decodes query parameters into the request struct through its
// json tags, converting strings to numeric fields along the way.
func bindQuery(c *gin.Context, req any) error {
	values := map[string]any{}
	for key, value := range c.Request.URL.Query() {
		if len(value) > 0 {
			values[key] = value[0]
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           req,
	})
	if err != nil {
		return err
	}

	return decoder.Decode(values)
}

func (r *Router) close(ctx context.Context, req *http.Request, err error) {
	for _, closer := range r.closers {
		closer(ctx, req, err)
	}
}
