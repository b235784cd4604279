package controller

import "errors"

var (
	ErrParseRequest = errors.New("failed to parse request")

	ErrUserRegister  = errors.New("failed to register user")
	ErrGenerateToken = errors.New("failed to generate token")
	ErrUserLogin     = errors.New("failed to login")

	ErrIngestDocument   = errors.New("failed to ingest document")
	ErrGetDocuments     = errors.New("failed to get documents")
	ErrGetDocument      = errors.New("failed to get document")
	ErrDocumentNotFound = errors.New("document not found")
	ErrPurgeDocument    = errors.New("failed to purge document")

	ErrSearchChunks = errors.New("failed to search chunks")
	ErrGetStats     = errors.New("failed to get stats")

	ErrUpdateGlobalAnalysis = errors.New("failed to update global analysis")
	ErrGetPageAnalysis      = errors.New("failed to get page analysis")
	ErrListPageAnalyses     = errors.New("failed to list page analyses")
	ErrUpsertPageAnalysis   = errors.New("failed to save page analysis")
)
