package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"vote_zone/internal/common"
	"vote_zone/internal/domain/model"

	"github.com/go-playground/validator/v10"
)

// validate is shared by every request struct in this package.
var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("objectkey", validateObjectKey)
	_ = validate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validateMaxBytes bounds the byte length of a string; the built-in max counts runes.
func validateMaxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

// uploadsPrefix is the only part of the bucket that file references may point into.
const uploadsPrefix = "uploads/"

// validateObjectKey accepts keys under uploadsPrefix with no "." or ".." segments.
func validateObjectKey(fl validator.FieldLevel) bool {
	key := fl.Field().String()
	if !strings.HasPrefix(key, uploadsPrefix) || strings.Contains(key, "\\") {
		return false
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." {
			return false
		}
	}
	return true
}

// validationError flattens validator errors into a single ErrValidation-wrapped message.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%v: %w", err, common.ErrValidation)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return fmt.Errorf("%s: %w", strings.Join(msgs, "; "), common.ErrValidation)
}

func requireCaller(caller *model.Caller) error {
	if !caller.Authenticated() {
		return fmt.Errorf("authentication required: %w", common.ErrUnauthorized)
	}
	return nil
}
