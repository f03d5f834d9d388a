package rubyver_test

import (
	"testing"

	"github.com/hashicorp/go-version"
	"github.com/rubyci/matrixgen/internal/rubyver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaxSafeRuby(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		framework string
		expected  string
	}{
		{"6.1.7", "3.2"},
		{"7.0.8", "3.2"},
		{"7.1.0", "3.3"},
		{"7.2.2", "3.3"},
		{"8.0.0", "3.4"},
		{"8.1.0", ""},
		{"9.0.0", ""},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.framework, func(t *testing.T) {
			t.Parallel()

			framework := version.Must(version.NewVersion(testCase.framework))

			actual := rubyver.MaxSafeRuby(framework)

			if testCase.expected == "" {
				assert.Nil(t, actual)
				return
			}

			require.NotNil(t, actual)
			assert.Equal(t, testCase.expected, actual.Original())
		})
	}
}

func TestMaxSafeRubyUnknownFramework(t *testing.T) {
	t.Parallel()

	assert.Nil(t, rubyver.MaxSafeRuby(nil))
}
