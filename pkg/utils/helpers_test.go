package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Helpers(t *testing.T) {
	t.Run("Should compare addresses ignoring case", func(t *testing.T) {
		assert.True(t, AreAddressesEqual("0xAbC", "0xabc"))
		assert.False(t, AreAddressesEqual("0xabc", "0xabd"))
	})
	t.Run("Should detect hex prefixes", func(t *testing.T) {
		assert.True(t, HasHexPrefix("0x12"))
		assert.True(t, HasHexPrefix("0X12"))
		assert.False(t, HasHexPrefix("12"))
		assert.False(t, HasHexPrefix("0"))
	})
	t.Run("Should map filter and find", func(t *testing.T) {
		nums := []int{1, 2, 3, 4}
		assert.Equal(t, []int{2, 4, 6, 8}, Map(nums, func(n int, i uint64) int { return n * 2 }))
		assert.Equal(t, []int{2, 4}, Filter(nums, func(n int) bool { return n%2 == 0 }))
		assert.Equal(t, 3, *Find(nums, func(n int) bool { return n > 2 }))
		assert.Nil(t, Find(nums, func(n int) bool { return n > 10 }))
	})
}
