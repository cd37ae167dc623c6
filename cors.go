package goshawk

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig configures the CORS middleware.
type CORSConfig struct {
	AllowOrigins     []string `yaml:"allowed_origins"`
	AllowMethods     []string `yaml:"allowed_methods"`
	AllowHeaders     []string `yaml:"allowed_headers"`
	ExposeHeaders    []string `yaml:"exposed_headers"`
	AllowCredentials bool     `yaml:"allow_credentials"`
	MaxAge           int      `yaml:"max_age"` // seconds
}

// CORS returns middleware that handles Cross-Origin Resource Sharing.
// Preflight requests (OPTIONS with Origin and Access-Control-Request-Method
// headers) short-circuit with a 204 carrying the computed Allow-* headers.
// Actual cross-origin requests get Access-Control-Allow-Origin appended to
// the outgoing response without altering its status or body. If no config is
// provided, permissive defaults are used.
func CORS(cfg ...CORSConfig) Middleware {
	c := CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Authorization"},
	}
	if len(cfg) > 0 {
		c = cfg[0]
		if len(c.AllowMethods) == 0 {
			c.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
		}
	}

	wildcard := len(c.AllowOrigins) == 1 && c.AllowOrigins[0] == "*"
	methods := strings.Join(c.AllowMethods, ", ")
	headers := strings.Join(c.AllowHeaders, ", ")
	expose := strings.Join(c.ExposeHeaders, ", ")

	allowed := func(origin string) bool {
		if wildcard {
			return true
		}
		for _, o := range c.AllowOrigins {
			if strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}

	// The wildcard form is not valid together with credentials; echo the
	// request origin in that case.
	allowOriginValue := func(origin string) string {
		if wildcard && !c.AllowCredentials {
			return "*"
		}
		return origin
	}

	return func(next Handler) Handler {
		return func(ctx *Context, req *Request) (*Response, error) {
			origin := req.Header.Get("Origin")
			if origin == "" {
				return next(ctx, req)
			}

			// Preflight: short-circuit without invoking the rest of the chain.
			if req.Method == http.MethodOptions && req.Header.Get("Access-Control-Request-Method") != "" {
				resp := NoContent()
				resp.Header.Add("Vary", "Origin")
				resp.Header.Add("Vary", "Access-Control-Request-Method")
				resp.Header.Add("Vary", "Access-Control-Request-Headers")
				if !allowed(origin) {
					return resp, nil
				}
				resp.Header.Set("Access-Control-Allow-Origin", allowOriginValue(origin))
				resp.Header.Set("Access-Control-Allow-Methods", methods)
				switch {
				case headers != "":
					resp.Header.Set("Access-Control-Allow-Headers", headers)
				case req.Header.Get("Access-Control-Request-Headers") != "":
					resp.Header.Set("Access-Control-Allow-Headers", req.Header.Get("Access-Control-Request-Headers"))
				}
				if c.AllowCredentials {
					resp.Header.Set("Access-Control-Allow-Credentials", "true")
				}
				if c.MaxAge > 0 {
					resp.Header.Set("Access-Control-Max-Age", strconv.Itoa(c.MaxAge))
				}
				return resp, nil
			}

			resp, err := next(ctx, req)
			if err != nil || resp == nil {
				return resp, err
			}

			if !wildcard {
				resp.Header.Add("Vary", "Origin")
			}
			if allowed(origin) {
				resp.Header.Set("Access-Control-Allow-Origin", allowOriginValue(origin))
				if c.AllowCredentials {
					resp.Header.Set("Access-Control-Allow-Credentials", "true")
				}
				if expose != "" {
					resp.Header.Set("Access-Control-Expose-Headers", expose)
				}
			}
			return resp, nil
		}
	}
}
