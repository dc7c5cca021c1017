package application

import (
	stderrors "errors"

	"github.com/voicewms/dispatch-service/internal/domain"
	"github.com/voicewms/dispatch-service/internal/layout"
	"github.com/voicewms/dispatch-service/pkg/errors"
)

// mapDomainError translates domain and layout sentinels into API errors.
// Unrecognized errors pass through FromError and surface as 500s.
func mapDomainError(err error) *errors.AppError {
	if err == nil {
		return nil
	}

	switch {
	case stderrors.Is(err, domain.ErrInvalidTask),
		stderrors.Is(err, domain.ErrUnknownRole),
		stderrors.Is(err, domain.ErrInvalidQuantity):
		return errors.ErrValidation(err.Error())
	case stderrors.Is(err, domain.ErrTaskNotFound):
		return errors.ErrNotFound("task")
	case stderrors.Is(err, domain.ErrWorkerNotFound):
		return errors.ErrNotFound("worker")
	case stderrors.Is(err, domain.ErrWorkerInactive):
		return errors.ErrWorkerInactive(err.Error())
	case stderrors.Is(err, domain.ErrRoleMismatch):
		return errors.ErrRoleMismatch(err.Error())
	case stderrors.Is(err, domain.ErrAlreadyAssigned),
		stderrors.Is(err, domain.ErrClaimLost):
		return errors.ErrAlreadyAssigned("task is already assigned to another worker")
	case stderrors.Is(err, domain.ErrNotTaskOwner):
		return errors.ErrRoleMismatch(err.Error())
	case stderrors.Is(err, domain.ErrInvalidTransition),
		stderrors.Is(err, domain.ErrStaleTask):
		return errors.ErrInvalidTransition(err.Error())
	case stderrors.Is(err, domain.ErrQuantityExceeded):
		return errors.ErrQuantityExceeded(err.Error())
	case stderrors.Is(err, layout.ErrInvalidLayout):
		return errors.ErrValidation(err.Error())
	case stderrors.Is(err, layout.ErrMalformedCode):
		return errors.ErrMalformedCode(err.Error())
	case stderrors.Is(err, layout.ErrUnknownSection):
		return errors.ErrUnknownSection(err.Error())
	case stderrors.Is(err, layout.ErrUnknownAisle),
		stderrors.Is(err, layout.ErrUnknownLevel),
		stderrors.Is(err, layout.ErrUnknownSubsection),
		stderrors.Is(err, layout.ErrBayOutOfRange):
		return errors.ErrUnknownAisle(err.Error())
	case stderrors.Is(err, layout.ErrSubsectionNotAllowed):
		return errors.ErrSubsectionNotAllowed(err.Error())
	case stderrors.Is(err, layout.ErrDuplicateAddress):
		return errors.ErrDuplicateAddress(err.Error())
	case stderrors.Is(err, layout.ErrCheckDigitMismatch):
		return errors.ErrCheckDigitMismatch(err.Error())
	default:
		return errors.FromError(err)
	}
}
