// Package mock provides test double implementations of the AI service
// interfaces.
//
// The mocks allow tests to run without external embedding services and
// enable controlled, deterministic behavior:
//
//	// Basic usage with default behavior
//	mockProvider := mock.NewMockProvider()
//	vector, err := mockProvider.Embedder().EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	mockEmbedder := mock.NewMockEmbedder()
//	mockEmbedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
//	    return nil, errors.New("service unavailable")
//	}
//
// The default MockEmbedder returns deterministic unit vectors derived
// from an FNV hash of the input text.
package mock
