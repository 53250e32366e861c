package testkit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertAllCalled fails the test for every registered step that never matched.
func AssertAllCalled(t *testing.T, mt *MockTransport) {
	t.Helper()
	for _, err := range mt.Uncalled() {
		assert.NoError(t, err)
	}
}

// AssertJSONBody compares two JSON documents ignoring key order and whitespace.
func AssertJSONBody(t *testing.T, expected string, actual []byte) {
	t.Helper()

	var expVal, actVal interface{}
	require.NoError(t, json.Unmarshal([]byte(expected), &expVal), "expected value is not valid JSON")
	if !assert.NoError(t, json.Unmarshal(actual, &actVal), "actual body is not valid JSON: %s", string(actual)) {
		return
	}
	assert.Equal(t, expVal, actVal)
}
