package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/isaqueitalo/restaurante-1.0/internal/apierror"
	"github.com/isaqueitalo/restaurante-1.0/internal/middleware"
	"github.com/isaqueitalo/restaurante-1.0/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

var validate = validator.New()

func init() {
	// decimal.Decimal is a struct; without this min=0 panics with
	// "Bad field type decimal.Decimal". Only the sign is exposed, so money
	// tags are limited to min=0.
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			return int64(v.Sign())
		}
		return nil
	}, decimal.Decimal{})
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
}

// bindAndValidate binds the JSON body and runs the validator tags. On failure
// it writes the response and returns false; the caller returns immediately.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid JSON: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
			return false
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// writeError maps service errors to HTTP statuses. Anything unknown is logged
// and answered with a generic 500.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionAlreadyOpen),
		errors.Is(err, service.ErrNoOpenSession):
		c.JSON(http.StatusConflict, apierror.New(err.Error()))
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrNoClosedSession):
		c.JSON(http.StatusNotFound, apierror.New(err.Error()))
	case errors.Is(err, service.ErrInsufficientPayment),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrUnsupportedPaymentMethod),
		errors.Is(err, service.ErrInvalidMovementKind):
		c.JSON(http.StatusUnprocessableEntity, apierror.New(err.Error()))
	default:
		log.Error().
			Err(err).
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Str("path", c.FullPath()).
			Msg("request failed")
		c.JSON(http.StatusInternalServerError, apierror.New("internal server error"))
	}
}

func sessionIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, apierror.New("invalid session id"))
		return 0, false
	}
	return id, true
}

// dateQuery parses ?<key>=YYYY-MM-DD in loc, defaulting to today.
func dateQuery(c *gin.Context, key string, now time.Time, loc *time.Location) (time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return now.In(loc), true
	}
	d, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(key+" must be YYYY-MM-DD"))
		return time.Time{}, false
	}
	return d, true
}

// instantQuery accepts an RFC 3339 instant or a bare date. A bare date means
// the start of that day, or its last instant when endOfDay is set.
func instantQuery(c *gin.Context, key string, endOfDay bool, loc *time.Location) (time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		c.JSON(http.StatusBadRequest, apierror.New(key+" is required"))
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	d, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(key+" must be RFC 3339 or YYYY-MM-DD"))
		return time.Time{}, false
	}
	if endOfDay {
		d = d.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return d, true
}
