package engine

import "errors"

var (
	// ErrJobIneligible is returned when a job is inactive or out of quota.
	ErrJobIneligible = errors.New("job is not eligible for processing")
	// ErrJobBusy is returned when another run holds the job's lock.
	ErrJobBusy = errors.New("job is already being processed")
	// ErrBatchBusy is returned when another process is running a batch.
	ErrBatchBusy = errors.New("batch is already running")
	// ErrCredentialsRejected aborts the remaining candidates of a job.
	ErrCredentialsRejected = errors.New("account credentials rejected")
	// ErrGeneration marks a failed reply generation. It is candidate-local.
	ErrGeneration = errors.New("reply generation failed")
)
