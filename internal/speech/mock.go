package speech

import "context"

// MockProvider returns canned audio for tests and local development.
type MockProvider struct {
	Audio []byte
	Err   error
	Calls int
}

func NewMockProvider() *MockProvider {
	return &MockProvider{Audio: []byte("mock-audio")}
}

func (p *MockProvider) Synthesize(_ context.Context, _ Request) ([]byte, error) {
	p.Calls++
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Audio, nil
}
