package shared

import "errors"

// Domain error taxonomy. Every generation or payment call either fully
// succeeds or fails with one of these; none are fatal to the process.
var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrConfiguration indicates bad or missing tax setup on a company.
	ErrConfiguration = errors.New("tax configuration invalid")
	// ErrInvalidPeriod indicates a billing month outside the PO date range.
	ErrInvalidPeriod = errors.New("billing period outside purchase order range")
	// ErrMissingTimesheet indicates an employee without an ingested timesheet.
	ErrMissingTimesheet = errors.New("timesheet missing for employee")
	// ErrDuplicateInvoice indicates a second generation for the same PO and period.
	ErrDuplicateInvoice = errors.New("invoice already generated for period")
	// ErrMalformedTimesheet indicates an unparseable timesheet file.
	ErrMalformedTimesheet = errors.New("timesheet file malformed")
	// ErrEmployeeMismatch indicates a timesheet whose embedded employee does not match the expected assignment.
	ErrEmployeeMismatch = errors.New("timesheet employee mismatch")
	// ErrInvalidAmount indicates a negative or unparseable monetary amount.
	ErrInvalidAmount = errors.New("amount invalid")
	// ErrRender indicates a template/data mismatch while rendering a document.
	ErrRender = errors.New("document render failed")
)
