package handler

import (
	"net/http"
	"reflect"

	"github.com/funkypatns/Progym-sub001/internal/apierror"
	"github.com/funkypatns/Progym-sub001/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails,
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeValidation, "invalid JSON: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		for _, fe := range err.(validator.ValidationErrors) {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewFieldErrors(fields))
		return false
	}
	return true
}

// claimsUserID parses the authenticated user's id out of the JWT claims.
// Writes a 400 response and returns false when the token subject is not a UUID.
func claimsUserID(c *gin.Context) (uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeValidation, "invalid user id in token"))
		return uuid.Nil, false
	}
	return id, true
}

// respondError serializes a service error. Domain errors keep their code and
// meta; anything else is masked as a storage failure.
func respondError(c *gin.Context, err error) {
	if e, ok := apierror.As(err); ok {
		c.JSON(apierror.HTTPStatus(e.Code), e)
		return
	}
	_ = c.Error(err) // picked up by the ErrorHandler middleware log
	c.JSON(http.StatusInternalServerError, apierror.New(apierror.CodeStorage, "internal server error"))
}
