package repository

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/totegamma/eform-core/internal/domain"
)

var errFieldExists = domain.ConflictError{Reason: "the field already exists in this form"}

// translateError maps gorm errors to domain errors and wraps the rest.
func translateError(err error, resource string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NotFoundError{Resource: resource}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		if resource == "field" {
			return errFieldExists
		}
		return domain.ConflictError{Reason: resource + " already exists"}
	}
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrConflict) {
		return err
	}
	return errors.Wrap(err, resource)
}
