package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemoveDuplicates(t *testing.T) {
	assert.Equal(t, []string{"bus", "tube"}, RemoveDuplicates([]string{"bus", "", "tube", "bus"}, []string{""}))
	assert.Equal(t, []int{}, RemoveDuplicates([]int{}, nil))
}

func TestInPlaceFilter(t *testing.T) {
	numbers := []int{1, 2, 3, 4, 5, 6}
	InPlaceFilter(&numbers, func(n int) bool { return n%2 == 0 })

	assert.Equal(t, []int{2, 4, 6}, numbers)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"bus", "tube"}, SplitList(" bus, ,tube,"))
	assert.Equal(t, []string{}, SplitList(""))
}

func TestGetEnvironmentVariable(t *testing.T) {
	t.Setenv("TFLBUS_TEST_VALUE", "set")

	assert.Equal(t, "set", GetEnvironmentVariable("TFLBUS_TEST_VALUE", "fallback"))
	assert.Equal(t, "fallback", GetEnvironmentVariable("TFLBUS_TEST_UNSET", "fallback"))
	assert.Equal(t, "set", GetEnvironmentVariables()["TFLBUS_TEST_VALUE"])
}
