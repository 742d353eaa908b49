package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"glyke/internal/services"

	"github.com/gin-gonic/gin"
)

// oopsPath is the generic error page; error_suffix carries the short cause.
const oopsPath = "/oops/"

func redirectOops(c *gin.Context, cause string) {
	c.Redirect(http.StatusFound, oopsPath+"?error_suffix="+url.QueryEscape(cause))
}

// respondError maps a service error onto the response: broken preconditions
// and rejected photo or category forms redirect to the error page, other
// field errors become 400, missing or forbidden records 404.
func respondError(c *gin.Context, err error) {
	var validationErr *services.ValidationError
	switch {
	case errors.Is(err, services.ErrNoCurrentOrder),
		errors.Is(err, services.ErrAmbiguousPhoto),
		errors.Is(err, services.ErrStatusUnchanged),
		errors.Is(err, services.ErrCartNotCleared),
		errors.Is(err, services.ErrPhotoForm),
		errors.Is(err, services.ErrCategoryForm):
		redirectOops(c, causeOf(err))
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "Validation failed",
			"fields": validationErr.Fields,
		})
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// causeOf picks the error-page cause out of err.
func causeOf(err error) string {
	for _, cause := range []error{
		services.ErrNoCurrentOrder,
		services.ErrAmbiguousPhoto,
		services.ErrStatusUnchanged,
		services.ErrCartNotCleared,
		services.ErrPhotoForm,
		services.ErrCategoryForm,
	} {
		if errors.Is(err, cause) {
			return cause.Error()
		}
	}
	return err.Error()
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return 0, false
	}
	return uint(id), true
}

// safeNext keeps redirects on this site.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/"
	}
	return next
}
