package services

import (
	"context"
	"time"
)

// MockUpstreamService serves canned panel data, honoring the same paging
// contract as the real client.
type MockUpstreamService struct {
	Ranges   []UpstreamRange
	Numbers  map[string][]UpstreamNumber
	Messages map[string][]UpstreamMessage
	Err      error
}

func NewMockUpstreamService() *MockUpstreamService {
	return &MockUpstreamService{
		Numbers:  make(map[string][]UpstreamNumber),
		Messages: make(map[string][]UpstreamMessage),
	}
}

func (m *MockUpstreamService) FetchRanges(ctx context.Context, page, max int) ([]UpstreamRange, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return pageOf(m.Ranges, (page-1)*max, max), nil
}

func (m *MockUpstreamService) FetchNumbers(ctx context.Context, rangeName string, start, length int) ([]UpstreamNumber, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return pageOf(m.Numbers[rangeName], start, length), nil
}

func (m *MockUpstreamService) FetchMessages(ctx context.Context, number string, since time.Time) ([]UpstreamMessage, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Messages[number], nil
}

func pageOf[T any](rows []T, start, length int) []T {
	if start >= len(rows) || start < 0 || length <= 0 {
		return nil
	}
	end := start + length
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}
