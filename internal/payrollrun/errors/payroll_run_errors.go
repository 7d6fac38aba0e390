package payrollrunerrors

import (
	"net/http"

	"orvit-payroll/internal/shared/apperror"
)

var (
	ErrInvalidCompanyID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid company id",
		http.StatusBadRequest,
	)
	ErrInvalidActorID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid actor id",
		http.StatusBadRequest,
	)
	ErrInvalidPeriodID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid period id",
		http.StatusBadRequest,
	)
	ErrInvalidRunType = apperror.New(
		apperror.CodeInvalidInput,
		"run type must be REGULAR, ADJUSTMENT or RETROACTIVE",
		http.StatusBadRequest,
	)
	ErrPeriodNotFound = apperror.New(
		apperror.CodeNotFound,
		"payroll period not found",
		http.StatusNotFound,
	)
	ErrPeriodClosed = apperror.New(
		apperror.CodeInvalidState,
		"payroll period is closed",
		http.StatusBadRequest,
	)
	ErrRunNotFound = apperror.New(
		apperror.CodeNotFound,
		"payroll run not found",
		http.StatusNotFound,
	)
	ErrUnknownConceptType = apperror.New(
		apperror.CodeInvalidInput,
		"concept line has an unknown type",
		http.StatusUnprocessableEntity,
	)
	ErrEmployeeDataInconsistent = apperror.New(
		apperror.CodeInvalidState,
		"employee record is missing data required for calculation",
		http.StatusUnprocessableEntity,
	)
	ErrRunNumberConflict = apperror.New(
		apperror.CodeConflict,
		"payroll run number reservation conflicted, giving up after retry",
		http.StatusConflict,
	)
	ErrInvalidStatusTransition = apperror.New(
		apperror.CodeInvalidState,
		"invalid payroll run status transition",
		http.StatusBadRequest,
	)
	ErrVoidReasonRequired = apperror.New(
		apperror.CodeInvalidInput,
		"a reason is required to void a payroll run",
		http.StatusBadRequest,
	)
)
