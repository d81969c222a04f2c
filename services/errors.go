package services

import "errors"

// Failure taxonomy surfaced to the API layer. Every operation boundary maps
// one of these to a distinct user-facing message; none of them leaves the
// in-memory ledger diverged from the durable store.
var (
	// ErrStoreUnavailable: the record store could not be opened or read.
	ErrStoreUnavailable = errors.New("record store unavailable")

	// ErrPersistFailed: a durable write or delete did not complete.
	ErrPersistFailed = errors.New("record store write failed")

	// ErrRecognitionFailed: the vision service errored or returned garbage.
	ErrRecognitionFailed = errors.New("recognition service failed")

	// ErrNoFoodRecognized: the vision service answered, but found nothing.
	ErrNoFoodRecognized = errors.New("no food recognized in image")

	// ErrReportFailed: health report generation errored.
	ErrReportFailed = errors.New("report generation failed")

	// ErrInvalidItem: a manual entry failed validation before any write.
	ErrInvalidItem = errors.New("invalid food item")

	// ErrNotEnoughRecords: a report was requested over fewer than two records.
	ErrNotEnoughRecords = errors.New("at least two records are required for a report")
)
