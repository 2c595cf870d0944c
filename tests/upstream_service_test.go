package tests

import (
	"testing"

	"github.com/numbay/numbay/app/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRowsPayload(t *testing.T) {
	t.Run("PaginatedEnvelope", func(t *testing.T) {
		payload, err := services.ParseRowsPayload([]byte(`{"data":[{"number":"+111"},{"number":"+222"}],"total":57}`))
		require.NoError(t, err)
		assert.Equal(t, services.PayloadData, payload.Kind)
		assert.Len(t, payload.Rows, 2)
		assert.Equal(t, int64(57), payload.Total)
	})

	t.Run("EnvelopeWithoutTotalFallsBackToRowCount", func(t *testing.T) {
		payload, err := services.ParseRowsPayload([]byte(`{"data":[{"number":"+111"}]}`))
		require.NoError(t, err)
		assert.Equal(t, int64(1), payload.Total)
	})

	t.Run("RangesEnvelope", func(t *testing.T) {
		payload, err := services.ParseRowsPayload([]byte(`{"ranges":[{"range":"UK Three","count":120}]}`))
		require.NoError(t, err)
		assert.Equal(t, services.PayloadRanges, payload.Kind)
		assert.Len(t, payload.Rows, 1)
	})

	t.Run("DataTablesEnvelope", func(t *testing.T) {
		payload, err := services.ParseRowsPayload([]byte(`{"aaData":[["+111","hello"],["+222","world"]]}`))
		require.NoError(t, err)
		assert.Equal(t, services.PayloadAAData, payload.Kind)
		assert.Len(t, payload.Rows, 2)
	})

	t.Run("BareArray", func(t *testing.T) {
		payload, err := services.ParseRowsPayload([]byte(`[{"number":"+111"}]`))
		require.NoError(t, err)
		assert.Equal(t, services.PayloadBareList, payload.Kind)
		assert.Equal(t, int64(1), payload.Total)
	})

	t.Run("EmptyEnvelopeListIsNotAnError", func(t *testing.T) {
		payload, err := services.ParseRowsPayload([]byte(`{"data":[]}`))
		require.NoError(t, err)
		assert.Empty(t, payload.Rows)
		assert.Equal(t, int64(0), payload.Total)
	})

	t.Run("UnknownShapeRejected", func(t *testing.T) {
		_, err := services.ParseRowsPayload([]byte(`{"rows":[1,2,3]}`))
		assert.Error(t, err)
	})

	t.Run("MalformedBodyRejected", func(t *testing.T) {
		_, err := services.ParseRowsPayload([]byte(`<html>login</html>`))
		assert.Error(t, err)
	})
}

func TestSolveMathCaptcha(t *testing.T) {
	cases := []struct {
		question string
		answer   string
	}{
		{"What is 3 + 4?", "7"},
		{"7 - 2 = ?", "5"},
		{"6 * 7", "42"},
		{"9 / 3", "3"},
		{"7/2", "3"}, // integer division, matching the panel's own arithmetic
		{"Solve: 12+30 to continue", "42"},
		{"no math here", services.DefaultCaptchaAnswer},
		{"", services.DefaultCaptchaAnswer},
		{"5 / 0", services.DefaultCaptchaAnswer},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.answer, services.SolveMathCaptcha(tc.question), "question: %q", tc.question)
	}
}
