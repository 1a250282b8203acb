package e

import "fmt"

var (
	// Внутренние ошибки с транзакциями
	ErrTransactionNotFound = fmt.Errorf("transaction not found")

	// Ошибки векторного индекса
	ErrVectorsIDsMismatch      = fmt.Errorf("vectors and ids length mismatch")
	ErrVectorDimensionMismatch = fmt.Errorf("vector dimension mismatch")
	ErrIndexEmpty              = fmt.Errorf("vector index is empty")
	ErrIndexArtifactMismatch   = fmt.Errorf("index artifacts are inconsistent")
	ErrEmptyVectors            = fmt.Errorf("empty vectors")

	// Ошибки построения рекомендаций
	ErrInsufficientData = fmt.Errorf("insufficient interaction data")
	ErrNoEmbedding      = fmt.Errorf("no embedding available")
	ErrProductNotFound  = fmt.Errorf("product not found")

	// 400 Bad Request
	ErrProductIDRequired   = fmt.Errorf("product id is required")
	ErrSessionIDRequired   = fmt.Errorf("session id is required")
	ErrProductNameRequired = fmt.Errorf("product title is required")
	ErrPriceMustBePositive = fmt.Errorf("price must be positive")
	ErrInvalidPrice        = fmt.Errorf("invalid price format")
	ErrPricePrecision      = fmt.Errorf("price must have at most 2 decimal places")
	ErrInvalidKind         = fmt.Errorf("invalid interaction kind")
	ErrInvalidLimit        = fmt.Errorf("limit must be at least 1")
	ErrInvalidSimilarity   = fmt.Errorf("min_similarity must be between 0 and 1")
	ErrInvalidAlgorithm    = fmt.Errorf("unknown recommendation algorithm")
	ErrInvalidWeights      = fmt.Errorf("score weights must sum to a positive value")
	ErrMissingFields       = fmt.Errorf("missing required fields")

	ErrStatusBadRequest     = fmt.Errorf("bad request")
	ErrInternalServerError  = fmt.Errorf("internal server error")
	ErrIncorrectEnvVariable = fmt.Errorf("incorrect env variable")
)

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}
